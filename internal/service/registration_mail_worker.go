package service

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"go.uber.org/zap"

	"github.com/noah-isme/gym-registration-api/internal/models"
	"github.com/noah-isme/gym-registration-api/pkg/jobs"
	"github.com/noah-isme/gym-registration-api/pkg/timeutil"
)

// Mail is a rendered message ready for delivery.
type Mail struct {
	To      string
	Name    string
	Subject string
	Body    string
}

// Mailer delivers rendered mails.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// LogMailer writes mails to the application log instead of delivering them.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer constructs a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs the mail.
func (m *LogMailer) Send(ctx context.Context, mail Mail) error {
	m.logger.Info("mail dispatched",
		zap.String("to", mail.To),
		zap.String("subject", mail.Subject),
		zap.String("body", mail.Body),
	)
	return nil
}

var registrationMailTemplate = template.Must(template.New("registration").Parse(
	`Hello {{.Name}},

your registration on the {{.Plan}} plan is confirmed.
It is valid until {{.EndDate}}.
Total price: {{.Price}}.
`))

// RegistrationMailWorker renders and sends registration confirmations.
type RegistrationMailWorker struct {
	mailer  Mailer
	metrics *MetricsService
	logger  *zap.Logger
}

// NewRegistrationMailWorker constructs the worker.
func NewRegistrationMailWorker(mailer Mailer, metrics *MetricsService, logger *zap.Logger) *RegistrationMailWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mailer == nil {
		mailer = NewLogMailer(logger)
	}
	return &RegistrationMailWorker{mailer: mailer, metrics: metrics, logger: logger}
}

// Handle processes a queued job. It satisfies jobs.Handler.
func (w *RegistrationMailWorker) Handle(ctx context.Context, job jobs.Job) (err error) {
	defer func() { w.metrics.RecordJob(job.Type, err) }()

	if job.Type != models.RegistrationMailJob {
		w.logger.Warn("unknown job type", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	var payload models.RegistrationMailPayload
	if err := jobs.DecodePayload(job, &payload); err != nil {
		return err
	}
	mail, err := RenderRegistrationMail(payload)
	if err != nil {
		return err
	}
	if err := w.mailer.Send(ctx, mail); err != nil {
		return fmt.Errorf("send registration mail to %s: %w", mail.To, err)
	}
	return nil
}

// RenderRegistrationMail builds the confirmation mail for a new registration.
func RenderRegistrationMail(payload models.RegistrationMailPayload) (Mail, error) {
	var body bytes.Buffer
	err := registrationMailTemplate.Execute(&body, map[string]string{
		"Name":    payload.Student.Name,
		"Plan":    payload.Plan.Title,
		"EndDate": timeutil.FormatDate(payload.EndDate),
		"Price":   FormatPrice(payload.Plan.TotalPrice()),
	})
	if err != nil {
		return Mail{}, fmt.Errorf("render registration mail: %w", err)
	}
	return Mail{
		To:      payload.Student.Email,
		Name:    payload.Student.Name,
		Subject: "Registration confirmed",
		Body:    body.String(),
	}, nil
}

// FormatPrice renders an amount in minor units with two decimals.
func FormatPrice(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
