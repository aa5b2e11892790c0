package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/gym-registration-api/internal/models"
	appErrors "github.com/noah-isme/gym-registration-api/pkg/errors"
)

type administratorReader interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// AdminGate admits callers whose id resolves to a stored user. Any stored
// user counts as an administrator; there are no roles.
type AdminGate struct {
	users administratorReader
}

// NewAdminGate constructs the gate.
func NewAdminGate(users administratorReader) *AdminGate {
	return &AdminGate{users: users}
}

// Authorize returns ErrNotAdministrator unless callerID is a stored user.
func (g *AdminGate) Authorize(ctx context.Context, callerID int64) error {
	if callerID <= 0 {
		return appErrors.ErrNotAdministrator
	}
	if _, err := g.users.FindByID(ctx, callerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotAdministrator
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify administrator")
	}
	return nil
}
