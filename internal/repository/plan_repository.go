package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gym-registration-api/internal/models"
)

// PlanRepository reads pricing plans.
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository constructs the repository.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// FindByID returns a plan by identifier.
func (r *PlanRepository) FindByID(ctx context.Context, id int64) (*models.Plan, error) {
	const query = `SELECT id, title, price, duration, created_at, updated_at FROM plans WHERE id = $1`
	var plan models.Plan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find plan: %w", err)
	}
	return &plan, nil
}
