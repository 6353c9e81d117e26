package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lawmon-api/internal/dto"
	"github.com/noah-isme/lawmon-api/internal/middleware"
	"github.com/noah-isme/lawmon-api/internal/models"
	"github.com/noah-isme/lawmon-api/internal/service"
	"github.com/noah-isme/lawmon-api/pkg/auth"
	appErrors "github.com/noah-isme/lawmon-api/pkg/errors"
)

type fakeAmendmentSrv struct {
	records       []models.AmendmentRecord
	err           error
	lastList      dto.AmendmentListRequest
	lastID        string
	lastActor     string
	lastReq       dto.TransitionRequest
	lastApprover  string
	transitionRes *dto.TransitionResponse
}

func (f *fakeAmendmentSrv) List(_ context.Context, req dto.AmendmentListRequest) ([]models.AmendmentRecord, error) {
	f.lastList = req
	return f.records, f.err
}

func (f *fakeAmendmentSrv) Get(_ context.Context, id string) (*models.AmendmentRecord, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.records {
		if f.records[i].ID == id {
			return &f.records[i], nil
		}
	}
	return nil, appErrors.ErrRecordNotFound
}

func (f *fakeAmendmentSrv) Transition(_ context.Context, id string, req dto.TransitionRequest, actor string) (*dto.TransitionResponse, error) {
	f.lastID, f.lastReq, f.lastActor = id, req, actor
	return f.transitionRes, f.err
}

func (f *fakeAmendmentSrv) RequestApproval(_ context.Context, id string, req dto.ApprovalRequest) (*dto.TransitionResponse, error) {
	f.lastID, f.lastApprover = id, req.Approver
	return f.transitionRes, f.err
}

type fakeExporter struct {
	format service.ExportFormat
	req    dto.AmendmentListRequest
}

func (f *fakeExporter) Export(_ context.Context, req dto.AmendmentListRequest, format service.ExportFormat) (*service.ExportResult, error) {
	f.format, f.req = format, req
	return &service.ExportResult{Filename: "law_amendments.csv", ContentType: "text/csv; charset=utf-8", Payload: []byte("Law Name\n")}, nil
}

func TestAmendmentHandlerList(t *testing.T) {
	srv := &fakeAmendmentSrv{records: []models.AmendmentRecord{{ID: "1", LawName: "개인정보 보호법"}}}
	h := NewAmendmentHandler(srv, nil)

	c, rec := newTestContext(http.MethodGet, "/law-amendments?status=REVIEW&q=privacy", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.AmendmentStatusReview, srv.lastList.Status)
	assert.Equal(t, "privacy", srv.lastList.Query)
	var items []models.AmendmentRecord
	decodeData(t, rec, &items)
	require.Len(t, items, 1)
	assert.Equal(t, float64(1), decodeEnvelope(t, rec).Meta["total"])
}

func TestAmendmentHandlerGetNotFound(t *testing.T) {
	h := NewAmendmentHandler(&fakeAmendmentSrv{}, nil)
	c, rec := newTestContext(http.MethodGet, "/law-amendments/404", nil)
	c.Params = gin.Params{{Key: "id", Value: "404"}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, appErrors.ErrRecordNotFound.Code, errorCode(t, rec))
}

func TestAmendmentHandlerUpdateStatusUsesCaller(t *testing.T) {
	comment := "ok"
	srv := &fakeAmendmentSrv{transitionRes: &dto.TransitionResponse{
		Record: &models.AmendmentRecord{ID: "1", Status: models.AmendmentStatusCompleted, ApprovalComment: &comment},
	}}
	h := NewAmendmentHandler(srv, nil)

	c, rec := newTestContext(http.MethodPut, "/law-amendments/1/status", `{"status":"COMPLETED","approvalComment":"ok"}`)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Set(middleware.ContextUserKey, &auth.Claims{Name: "김결재"})

	h.UpdateStatus(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", srv.lastID)
	assert.Equal(t, "김결재", srv.lastActor)
	assert.Equal(t, models.AmendmentStatusCompleted, srv.lastReq.Status)
	assert.Equal(t, "ok", srv.lastReq.Comment)
}

func TestAmendmentHandlerUpdateStatusErrors(t *testing.T) {
	h := NewAmendmentHandler(&fakeAmendmentSrv{}, nil)
	c, rec := newTestContext(http.MethodPut, "/law-amendments/1/status", `{"status":`)
	h.UpdateStatus(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	srv := &fakeAmendmentSrv{err: appErrors.Clone(appErrors.ErrAlreadyApproved, "already approved")}
	h = NewAmendmentHandler(srv, nil)
	c, rec = newTestContext(http.MethodPut, "/law-amendments/1/status", `{"status":"COMPLETED","approvalComment":"again"}`)
	h.UpdateStatus(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, srv.lastActor)

	srv.err = appErrors.ErrInvalidTransition
	c, rec = newTestContext(http.MethodPut, "/law-amendments/1/status", `{"status":"REVIEW"}`)
	h.UpdateStatus(c)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAmendmentHandlerRequestApproval(t *testing.T) {
	srv := &fakeAmendmentSrv{transitionRes: &dto.TransitionResponse{Record: &models.AmendmentRecord{ID: "2"}}}
	h := NewAmendmentHandler(srv, nil)
	c, rec := newTestContext(http.MethodPost, "/law-amendments/2/approval-request", dto.ApprovalRequest{Approver: "최부장"})
	c.Params = gin.Params{{Key: "id", Value: "2"}}

	h.RequestApproval(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "최부장", srv.lastApprover)
}

func TestAmendmentHandlerExport(t *testing.T) {
	exporter := &fakeExporter{}
	h := NewAmendmentHandler(&fakeAmendmentSrv{}, exporter)

	c, rec := newTestContext(http.MethodGet, "/law-amendments/export?format=PDF&status=COMPLETED", nil)
	h.Export(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.ExportFormatPDF, exporter.format)
	assert.Equal(t, models.AmendmentStatusCompleted, exporter.req.Status)
	assert.Equal(t, `attachment; filename="law_amendments.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "Law Name\n", rec.Body.String())

	c, rec = newTestContext(http.MethodGet, "/law-amendments/export?format=xlsx", nil)
	h.Export(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
