package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gym-registration-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestRegistrationRepositoryFindDetailByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	start := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "start_date", "end_date", "price", "plan.id", "plan.title", "plan.price", "plan.duration", "student.id", "student.name", "student.email"}).
		AddRow(1, start, end, 300, 2, "Gold", 100, 3, 7, "Ana", "ana@example.com")
	mock.ExpectQuery(`(?s)SELECT r\.id.*FROM registrations r.*WHERE r\.id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	detail, err := repo.FindDetailByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(300), detail.Price)
	assert.Equal(t, "Gold", detail.Plan.Title)
	require.NotNil(t, detail.Plan.Duration)
	assert.Equal(t, 3, *detail.Plan.Duration)
	assert.Equal(t, "ana@example.com", detail.Student.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM registrations WHERE id = $1")).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 9)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryListPaginates(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "start_date", "end_date", "price", "plan.id", "plan.title", "student.id", "student.name", "student.email"}).
		AddRow(11, now, now.AddDate(0, 1, 0), 100, 1, "Start", 3, "Bo", "bo@example.com")
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY r.id ASC LIMIT 10 OFFSET 10")).WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM registrations")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	list, total, err := repo.List(context.Background(), models.RegistrationFilter{Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Plan.Price)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryExistsForStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	query := regexp.QuoteMeta("SELECT 1 FROM registrations WHERE student_id = $1 LIMIT 1")
	mock.ExpectQuery(query).WithArgs(int64(7)).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))
	mock.ExpectQuery(query).WithArgs(int64(8)).WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsForStudent(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsForStudent(context.Background(), 8)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	start := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO registrations").
		WithArgs(int64(7), int64(2), start, end, int64(300), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	registration := &models.Registration{StudentID: 7, PlanID: 2, StartDate: start, EndDate: end, Price: 300}
	require.NoError(t, repo.Create(context.Background(), registration))
	assert.Equal(t, int64(42), registration.ID)
	assert.False(t, registration.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET")).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Registration{ID: 5})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM registrations WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM registrations WHERE id = $1")).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), 3))
	assert.ErrorIs(t, repo.Delete(context.Background(), 4), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
