package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/gym-registration-api/internal/models"
	appErrors "github.com/noah-isme/gym-registration-api/pkg/errors"
	"github.com/noah-isme/gym-registration-api/pkg/jobs"
	"github.com/noah-isme/gym-registration-api/pkg/logger"
	"github.com/noah-isme/gym-registration-api/pkg/timeutil"
)

const (
	registrationPageSize       = 10
	defaultPastDateTolerance   = 3 * time.Hour
	registrationCacheKeyPrefix = "registrations:show:"
)

type registrationRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Registration, error)
	FindDetailByID(ctx context.Context, id int64) (*models.RegistrationDetail, error)
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error)
	ExistsForStudent(ctx context.Context, studentID int64) (bool, error)
	Create(ctx context.Context, registration *models.Registration) error
	Update(ctx context.Context, registration *models.Registration) error
	Delete(ctx context.Context, id int64) error
}

type studentReader interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
}

type planReader interface {
	FindByID(ctx context.Context, id int64) (*models.Plan, error)
}

type registrationCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RegistrationRequest is the payload for creating or changing a registration.
type RegistrationRequest struct {
	StudentID int64  `json:"student_id" validate:"required,gt=0"`
	PlanID    int64  `json:"plan_id" validate:"required,gt=0"`
	StartDate string `json:"start_date" validate:"required,isodate"`
}

// RegistrationServiceConfig tunes registration rules.
type RegistrationServiceConfig struct {
	// PastDateTolerance is how far in the past a new start date may lie.
	PastDateTolerance time.Duration
	CacheTTL          time.Duration
	// Location interprets start dates sent without an offset.
	Location *time.Location
	Clock    func() time.Time
}

// RegistrationService implements the registration lifecycle.
type RegistrationService struct {
	repo      registrationRepository
	students  studentReader
	plans     planReader
	gate      *AdminGate
	queue     jobs.Enqueuer
	cache     registrationCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    RegistrationServiceConfig
}

// NewRegistrationService constructs the registration service. queue and cache
// may be nil.
func NewRegistrationService(
	repo registrationRepository,
	students studentReader,
	plans planReader,
	gate *AdminGate,
	queue jobs.Enqueuer,
	cache registrationCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg RegistrationServiceConfig,
) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	RegisterValidations(validate)
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PastDateTolerance <= 0 {
		cfg.PastDateTolerance = defaultPastDateTolerance
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &RegistrationService{
		repo:      repo,
		students:  students,
		plans:     plans,
		gate:      gate,
		queue:     queue,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    cfg,
	}
}

// RegisterValidations installs the custom rules used by registration payloads.
func RegisterValidations(v *validator.Validate) {
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := timeutil.ParseISO(fl.Field().String(), nil)
		return err == nil
	})
}

// Get returns a registration with its plan and student. A missing id yields a
// nil detail and no error. The boolean reports a cache hit.
func (s *RegistrationService) Get(ctx context.Context, id int64) (*models.RegistrationDetail, bool, error) {
	key := registrationCacheKey(id)
	if s.cache != nil {
		var cached models.RegistrationDetail
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			cached.Active = s.activeAt(cached.StartDate, cached.EndDate)
			return &cached, true, nil
		}
	}

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	detail.Active = s.activeAt(detail.StartDate, detail.EndDate)

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, detail, s.config.CacheTTL)
	}
	return detail, false, nil
}

// List returns one page of registrations for an administrator.
func (s *RegistrationService) List(ctx context.Context, callerID int64, page int) (registrations []models.RegistrationDetail, pagination *models.Pagination, err error) {
	defer func() { s.record("index", err) }()

	if err := s.gate.Authorize(ctx, callerID); err != nil {
		return nil, nil, err
	}
	if page < 1 {
		page = 1
	}
	registrations, total, err := s.repo.List(ctx, models.RegistrationFilter{Page: page, PageSize: registrationPageSize})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	for i := range registrations {
		registrations[i].Active = s.activeAt(registrations[i].StartDate, registrations[i].EndDate)
	}
	return registrations, &models.Pagination{Page: page, PageSize: registrationPageSize, TotalCount: total}, nil
}

// Create enrolls a student in a plan and queues the confirmation mail.
//
// The duplicate check and the insert are not atomic and the table carries no
// unique constraint, so concurrent requests for one student can both succeed.
func (s *RegistrationService) Create(ctx context.Context, callerID int64, req RegistrationRequest) (registration *models.Registration, err error) {
	defer func() { s.record("store", err) }()

	start, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(ctx, callerID); err != nil {
		return nil, err
	}
	student, plan, err := s.loadReferences(ctx, req)
	if err != nil {
		return nil, err
	}
	if start.Before(s.config.Clock().Add(-s.config.PastDateTolerance)) {
		return nil, appErrors.ErrPastDateRejected
	}
	exists, err := s.repo.ExistsForStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing registrations")
	}
	if exists {
		return nil, appErrors.ErrDuplicateRegistration
	}

	registration = schedule(student.ID, plan, start)
	if err := s.repo.Create(ctx, registration); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create registration")
	}
	registration.Active = s.activeAt(registration.StartDate, registration.EndDate)

	logger.FromContext(ctx, s.logger).Info("registration created",
		zap.Int64("registration_id", registration.ID),
		zap.Int64("student_id", student.ID),
		zap.Int64("plan_id", plan.ID),
	)
	s.notify(ctx, student, plan, registration.EndDate)
	return registration, nil
}

// Update recomputes an existing registration from a new student, plan and
// start date. Past start dates are accepted.
func (s *RegistrationService) Update(ctx context.Context, callerID, id int64, req RegistrationRequest) (registration *models.Registration, err error) {
	defer func() { s.record("update", err) }()

	start, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(ctx, callerID); err != nil {
		return nil, err
	}
	student, plan, err := s.loadReferences(ctx, req)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrRegistrationNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}

	next := schedule(student.ID, plan, start)
	existing.StudentID = next.StudentID
	existing.PlanID = next.PlanID
	existing.StartDate = next.StartDate
	existing.EndDate = next.EndDate
	existing.Price = next.Price
	if err := s.repo.Update(ctx, existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrRegistrationNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update registration")
	}
	existing.Active = s.activeAt(existing.StartDate, existing.EndDate)
	s.evict(ctx, id)

	logger.FromContext(ctx, s.logger).Info("registration updated", zap.Int64("registration_id", id))
	return existing, nil
}

// Delete removes a registration.
func (s *RegistrationService) Delete(ctx context.Context, callerID, id int64) (err error) {
	defer func() { s.record("delete", err) }()

	if err := s.gate.Authorize(ctx, callerID); err != nil {
		return err
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrRegistrationNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrRegistrationNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete registration")
	}
	s.evict(ctx, id)

	logger.FromContext(ctx, s.logger).Info("registration deleted", zap.Int64("registration_id", id))
	return nil
}

func (s *RegistrationService) validate(req RegistrationRequest) (time.Time, error) {
	if err := s.validator.Struct(req); err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "validation failed, check all fields")
	}
	start, err := timeutil.ParseISO(req.StartDate, s.config.Location)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "validation failed, check all fields")
	}
	return start, nil
}

func (s *RegistrationService) loadReferences(ctx context.Context, req RegistrationRequest) (*models.Student, *models.Plan, error) {
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.ErrStudentNotFound
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	plan, err := s.plans.FindByID(ctx, req.PlanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.ErrPlanNotFound
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
	}
	return student, plan, nil
}

// schedule derives the validity window and flat price from the plan.
func schedule(studentID int64, plan *models.Plan, start time.Time) *models.Registration {
	return &models.Registration{
		StudentID: studentID,
		PlanID:    plan.ID,
		StartDate: start,
		EndDate:   timeutil.AddMonths(start, plan.Duration),
		Price:     plan.TotalPrice(),
	}
}

// notify submits the confirmation mail job. Failures never reach the caller.
func (s *RegistrationService) notify(ctx context.Context, student *models.Student, plan *models.Plan, endDate time.Time) {
	if s.queue == nil {
		s.metrics.RecordNotification(NotificationSkipped)
		return
	}
	job := jobs.Job{
		Type: models.RegistrationMailJob,
		Payload: models.RegistrationMailPayload{
			Student: *student,
			EndDate: endDate,
			Plan:    *plan,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		logger.FromContext(ctx, s.logger).Warn("failed to enqueue registration mail",
			zap.Int64("student_id", student.ID),
			zap.Error(err),
		)
		s.metrics.RecordNotification(NotificationFailed)
		return
	}
	s.metrics.RecordNotification(NotificationEnqueued)
}

func (s *RegistrationService) evict(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, registrationCacheKey(id))
}

func (s *RegistrationService) activeAt(start, end time.Time) bool {
	return models.Registration{StartDate: start, EndDate: end}.IsActiveAt(s.config.Clock())
}

func (s *RegistrationService) record(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = appErrors.FromError(err).Code
	}
	s.metrics.RecordRegistration(operation, outcome)
}

func registrationCacheKey(id int64) string {
	return fmt.Sprintf("%s%d", registrationCacheKeyPrefix, id)
}
