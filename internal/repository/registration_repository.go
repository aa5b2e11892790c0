package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gym-registration-api/internal/models"
)

const (
	defaultRegistrationPageSize = 10

	registrationColumns = `id, student_id, plan_id, start_date, end_date, price, created_at, updated_at`

	detailSelect = `SELECT r.id, r.start_date, r.end_date, r.price,
        p.id AS "plan.id", p.title AS "plan.title", p.price AS "plan.price", p.duration AS "plan.duration",
        s.id AS "student.id", s.name AS "student.name", s.email AS "student.email"
        FROM registrations r
        JOIN plans p ON p.id = r.plan_id
        JOIN students s ON s.id = r.student_id`

	listSelect = `SELECT r.id, r.start_date, r.end_date, r.price,
        p.id AS "plan.id", p.title AS "plan.title",
        s.id AS "student.id", s.name AS "student.name", s.email AS "student.email"
        FROM registrations r
        JOIN plans p ON p.id = r.plan_id
        JOIN students s ON s.id = r.student_id`
)

// RegistrationRepository handles persistence of registrations.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// FindByID returns the bare registration row.
func (r *RegistrationRepository) FindByID(ctx context.Context, id int64) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	var registration models.Registration
	if err := r.db.GetContext(ctx, &registration, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return &registration, nil
}

// FindDetailByID returns a registration with its plan and student.
func (r *RegistrationRepository) FindDetailByID(ctx context.Context, id int64) (*models.RegistrationDetail, error) {
	query := detailSelect + ` WHERE r.id = $1`
	var detail models.RegistrationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find registration detail: %w", err)
	}
	return &detail, nil
}

// List returns a page of registrations together with the total count.
func (r *RegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = defaultRegistrationPageSize
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`%s ORDER BY r.id ASC LIMIT %d OFFSET %d`, listSelect, size, offset)
	registrations := []models.RegistrationDetail{}
	if err := r.db.SelectContext(ctx, &registrations, query); err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM registrations`); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}
	return registrations, total, nil
}

// ListAll returns every registration with full plan detail, used for exports.
func (r *RegistrationRepository) ListAll(ctx context.Context) ([]models.RegistrationDetail, error) {
	query := detailSelect + ` ORDER BY r.id ASC`
	registrations := []models.RegistrationDetail{}
	if err := r.db.SelectContext(ctx, &registrations, query); err != nil {
		return nil, fmt.Errorf("list all registrations: %w", err)
	}
	return registrations, nil
}

// ExistsForStudent reports whether any registration row references the
// student, regardless of its validity window.
func (r *RegistrationRepository) ExistsForStudent(ctx context.Context, studentID int64) (bool, error) {
	const query = `SELECT 1 FROM registrations WHERE student_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check student registration: %w", err)
	}
	return true, nil
}

// Create persists a new registration and fills the storage assigned fields.
func (r *RegistrationRepository) Create(ctx context.Context, registration *models.Registration) error {
	now := time.Now().UTC()
	registration.CreatedAt = now
	registration.UpdatedAt = now
	const query = `INSERT INTO registrations (student_id, plan_id, start_date, end_date, price, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	row := r.db.QueryRowxContext(ctx, query,
		registration.StudentID,
		registration.PlanID,
		registration.StartDate,
		registration.EndDate,
		registration.Price,
		registration.CreatedAt,
		registration.UpdatedAt,
	)
	if err := row.Scan(&registration.ID); err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// Update overwrites the mutable columns of a registration.
func (r *RegistrationRepository) Update(ctx context.Context, registration *models.Registration) error {
	registration.UpdatedAt = time.Now().UTC()
	const query = `UPDATE registrations SET student_id = $2, plan_id = $3, start_date = $4, end_date = $5, price = $6, updated_at = $7 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		registration.ID,
		registration.StudentID,
		registration.PlanID,
		registration.StartDate,
		registration.EndDate,
		registration.Price,
		registration.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a registration permanently.
func (r *RegistrationRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
