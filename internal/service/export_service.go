package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gym-registration-api/internal/models"
	appErrors "github.com/noah-isme/gym-registration-api/pkg/errors"
	"github.com/noah-isme/gym-registration-api/pkg/export"
	"github.com/noah-isme/gym-registration-api/pkg/logger"
	"github.com/noah-isme/gym-registration-api/pkg/timeutil"
)

type registrationExportSource interface {
	ListAll(ctx context.Context) ([]models.RegistrationDetail, error)
	FindDetailByID(ctx context.Context, id int64) (*models.RegistrationDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	Receipt(title string, lines []export.ReceiptLine) ([]byte, error)
}

// ExportFile is a rendered document ready to be streamed to the caller.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

var rosterHeaders = []string{"id", "student", "email", "plan", "start_date", "end_date", "price", "active"}

// ExportService renders the registration roster and receipts.
type ExportService struct {
	source registrationExportSource
	gate   *AdminGate
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	clock  func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(source registrationExportSource, gate *AdminGate, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{source: source, gate: gate, csv: csv, pdf: pdf, logger: logger, clock: time.Now}
}

// Roster renders every registration in the requested format.
func (s *ExportService) Roster(ctx context.Context, callerID int64, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}
	if err := s.gate.Authorize(ctx, callerID); err != nil {
		return nil, err
	}

	registrations, err := s.source.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registrations")
	}
	dataset := s.rosterDataset(registrations)

	var body []byte
	switch format {
	case export.FormatPDF:
		body, err = s.pdf.Render(dataset, "Registrations")
	default:
		body, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	logger.FromContext(ctx, s.logger).Info("roster exported", zap.String("format", string(format)), zap.Int("rows", len(registrations)))
	return &ExportFile{
		Filename:    fmt.Sprintf("registrations-%s.%s", s.clock().UTC().Format("20060102"), format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

// Receipt renders a PDF receipt for one registration.
func (s *ExportService) Receipt(ctx context.Context, callerID, id int64) (*ExportFile, error) {
	if err := s.gate.Authorize(ctx, callerID); err != nil {
		return nil, err
	}
	detail, err := s.source.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrRegistrationNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}

	lines := []export.ReceiptLine{
		{Label: "Registration", Value: strconv.FormatInt(detail.ID, 10)},
		{Label: "Student", Value: detail.Student.Name},
		{Label: "Email", Value: detail.Student.Email},
		{Label: "Plan", Value: detail.Plan.Title},
		{Label: "Start", Value: timeutil.FormatDate(detail.StartDate)},
		{Label: "End", Value: timeutil.FormatDate(detail.EndDate)},
		{Label: "Total", Value: FormatPrice(detail.Price)},
	}
	if detail.Plan.Duration != nil {
		lines = append(lines, export.ReceiptLine{Label: "Months", Value: strconv.Itoa(*detail.Plan.Duration)})
	}
	body, err := s.pdf.Receipt("Registration receipt", lines)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("registration-%d.pdf", detail.ID),
		ContentType: export.FormatPDF.ContentType(),
		Body:        body,
	}, nil
}

func (s *ExportService) rosterDataset(registrations []models.RegistrationDetail) export.Dataset {
	now := s.clock()
	rows := make([]map[string]string, 0, len(registrations))
	for _, r := range registrations {
		active := models.Registration{StartDate: r.StartDate, EndDate: r.EndDate}.IsActiveAt(now)
		rows = append(rows, map[string]string{
			"id":         strconv.FormatInt(r.ID, 10),
			"student":    r.Student.Name,
			"email":      r.Student.Email,
			"plan":       r.Plan.Title,
			"start_date": timeutil.FormatDate(r.StartDate),
			"end_date":   timeutil.FormatDate(r.EndDate),
			"price":      FormatPrice(r.Price),
			"active":     strconv.FormatBool(active),
		})
	}
	return export.Dataset{Headers: rosterHeaders, Rows: rows}
}
