package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lawmon-api/internal/dto"
	"github.com/noah-isme/lawmon-api/internal/models"
	appErrors "github.com/noah-isme/lawmon-api/pkg/errors"
	"github.com/noah-isme/lawmon-api/pkg/export"
)

// ExportFormat identifies a rendered export type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

var amendmentExportHeaders = []string{
	"Law Name",
	"Amendment Date",
	"Department Review Date",
	"Reviewer",
	"Approver",
	"Status",
	"Applied",
}

type amendmentLister interface {
	List(ctx context.Context, req dto.AmendmentListRequest) ([]models.AmendmentRecord, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	Title string
}

// ExportResult is a rendered export ready to be streamed.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
	Rows        int
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Amendments amendmentLister
	CSV        csvRenderer
	PDF        pdfRenderer
	Logger     *zap.Logger
	Now        func() time.Time
	Config     ExportConfig
}

// ExportService renders the amendment list as CSV or PDF.
type ExportService struct {
	amendments amendmentLister
	csv        csvRenderer
	pdf        pdfRenderer
	logger     *zap.Logger
	now        func() time.Time
	cfg        ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(params ExportServiceParams) *ExportService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	cfg := params.Config
	if cfg.Title == "" {
		cfg.Title = "Law Amendments"
	}
	csv := params.CSV
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	pdf := params.PDF
	if pdf == nil {
		pdf = export.NewPDFExporter("")
	}
	return &ExportService{
		amendments: params.Amendments,
		csv:        csv,
		pdf:        pdf,
		logger:     logger,
		now:        now,
		cfg:        cfg,
	}
}

// ParseExportFormat normalises a requested format, defaulting to CSV.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
	}
}

// Export renders the amendments matching req in the requested format.
func (s *ExportService) Export(ctx context.Context, req dto.AmendmentListRequest, format ExportFormat) (*ExportResult, error) {
	records, err := s.amendments.List(ctx, req)
	if err != nil {
		return nil, err
	}
	dataset := BuildAmendmentDataset(records)

	var (
		payload     []byte
		contentType string
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv; charset=utf-8"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, s.cfg.Title)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to render export")
	}

	s.logger.Info("amendment export rendered",
		zap.String("format", string(format)),
		zap.Int("rows", len(records)),
		zap.Int("bytes", len(payload)),
	)
	return &ExportResult{
		Filename:    fmt.Sprintf("law_amendments_%s.%s", s.now().UTC().Format("20060102_150405"), format),
		ContentType: contentType,
		Payload:     payload,
		Rows:        len(records),
	}, nil
}

// BuildAmendmentDataset maps records onto export columns. Empty cells render as a placeholder.
func BuildAmendmentDataset(records []models.AmendmentRecord) export.Dataset {
	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, map[string]string{
			"Law Name":               rec.LawName,
			"Amendment Date":         rec.AmendmentDate,
			"Department Review Date": derefString(rec.DepartmentReviewDate),
			"Reviewer":               derefString(rec.Reviewer),
			"Approver":               derefString(rec.Approver),
			"Status":                 rec.Status.Label(),
			"Applied":                appliedMark(rec.IsApplied),
		})
	}
	return export.Dataset{Headers: amendmentExportHeaders, Rows: rows}
}

func appliedMark(applied *bool) string {
	switch {
	case applied == nil:
		return export.Placeholder
	case *applied:
		return "O"
	default:
		return "X"
	}
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
