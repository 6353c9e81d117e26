package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lawmon-api/internal/dto"
	"github.com/noah-isme/lawmon-api/internal/middleware"
	"github.com/noah-isme/lawmon-api/internal/models"
	"github.com/noah-isme/lawmon-api/internal/service"
	appErrors "github.com/noah-isme/lawmon-api/pkg/errors"
	"github.com/noah-isme/lawmon-api/pkg/response"
)

type amendmentService interface {
	List(ctx context.Context, req dto.AmendmentListRequest) ([]models.AmendmentRecord, error)
	Get(ctx context.Context, id string) (*models.AmendmentRecord, error)
	Transition(ctx context.Context, id string, req dto.TransitionRequest, actor string) (*dto.TransitionResponse, error)
	RequestApproval(ctx context.Context, id string, req dto.ApprovalRequest) (*dto.TransitionResponse, error)
}

type amendmentExporter interface {
	Export(ctx context.Context, req dto.AmendmentListRequest, format service.ExportFormat) (*service.ExportResult, error)
}

// AmendmentHandler exposes the amendment lifecycle endpoints.
type AmendmentHandler struct {
	service  amendmentService
	exporter amendmentExporter
}

// NewAmendmentHandler constructs the handler.
func NewAmendmentHandler(service amendmentService, exporter amendmentExporter) *AmendmentHandler {
	return &AmendmentHandler{service: service, exporter: exporter}
}

// List godoc
// @Summary List law amendments
// @Tags Amendments
// @Produce json
// @Param status query string false "REVIEW, IN_PROGRESS or COMPLETED"
// @Param q query string false "Search law name or title"
// @Success 200 {object} response.Envelope
// @Router /law-amendments [get]
func (h *AmendmentHandler) List(c *gin.Context) {
	var req dto.AmendmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	items, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SetMeta(c, "total", len(items))
	response.JSON(c, http.StatusOK, items)
}

// Get godoc
// @Summary Get a law amendment with its notification settings
// @Tags Amendments
// @Produce json
// @Param id path string true "Amendment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /law-amendments/{id} [get]
func (h *AmendmentHandler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// UpdateStatus godoc
// @Summary Move an amendment forward in its review lifecycle
// @Tags Amendments
// @Accept json
// @Produce json
// @Param id path string true "Amendment ID"
// @Param payload body dto.TransitionRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /law-amendments/{id}/status [put]
func (h *AmendmentHandler) UpdateStatus(c *gin.Context) {
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	actor := middleware.Claims(c).DisplayName()
	result, err := h.service.Transition(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// RequestApproval godoc
// @Summary Ask an approver to sign off an amendment
// @Tags Amendments
// @Accept json
// @Produce json
// @Param id path string true "Amendment ID"
// @Param payload body dto.ApprovalRequest true "Approver"
// @Success 200 {object} response.Envelope
// @Router /law-amendments/{id}/approval-request [post]
func (h *AmendmentHandler) RequestApproval(c *gin.Context) {
	var req dto.ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approval request"))
		return
	}
	result, err := h.service.RequestApproval(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Export godoc
// @Summary Download the amendment list
// @Tags Amendments
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param status query string false "Status filter"
// @Param q query string false "Search law name or title"
// @Success 200 {file} file
// @Router /law-amendments/export [get]
func (h *AmendmentHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AmendmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	result, err := h.exporter.Export(c.Request.Context(), req, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Payload)
}
