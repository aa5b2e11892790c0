package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gym-registration-api/internal/models"
	appErrors "github.com/noah-isme/gym-registration-api/pkg/errors"
)

func newExportFixture(t *testing.T) (*ExportService, *memoryRegistrations) {
	t.Helper()
	f := newRegistrationFixture(t)
	users := &stubUsers{users: map[int64]models.User{adminID: {ID: adminID}}}
	svc := NewExportService(f.repo, NewAdminGate(users), nil, nil, nil)
	svc.clock = func() time.Time { return testNow }

	_, err := f.svc.Create(context.Background(), adminID, RegistrationRequest{StudentID: 7, PlanID: 1, StartDate: "2024-01-01T12:00:00Z"})
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), adminID, RegistrationRequest{StudentID: 8, PlanID: 2, StartDate: "2024-03-01"})
	require.NoError(t, err)
	return svc, f.repo
}

func TestExportServiceRosterCSV(t *testing.T) {
	svc, _ := newExportFixture(t)

	file, err := svc.Roster(context.Background(), adminID, "csv")
	require.NoError(t, err)
	assert.Equal(t, "registrations-20240101.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	records, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, rosterHeaders, records[0])
	assert.Equal(t, []string{"1", "Ana", "ana@example.com", "Start", "2024-01-01", "2024-04-01", "3.00", "true"}, records[1])
	assert.Equal(t, "false", records[2][7])
}

func TestExportServiceRosterPDF(t *testing.T) {
	svc, _ := newExportFixture(t)

	file, err := svc.Roster(context.Background(), adminID, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))
}

func TestExportServiceRosterRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportFixture(t)

	_, err := svc.Roster(context.Background(), adminID, "xlsx")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestExportServiceIsGated(t *testing.T) {
	svc, _ := newExportFixture(t)

	_, err := svc.Roster(context.Background(), 99, "csv")
	assert.ErrorIs(t, err, appErrors.ErrNotAdministrator)

	_, err = svc.Receipt(context.Background(), 99, 1)
	assert.ErrorIs(t, err, appErrors.ErrNotAdministrator)
}

func TestExportServiceReceipt(t *testing.T) {
	svc, _ := newExportFixture(t)

	file, err := svc.Receipt(context.Background(), adminID, 1)
	require.NoError(t, err)
	assert.Equal(t, "registration-1.pdf", file.Filename)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))

	_, err = svc.Receipt(context.Background(), adminID, 404)
	assert.ErrorIs(t, err, appErrors.ErrRegistrationNotFound)
}
