package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gym-registration-api/internal/handler"
	"github.com/noah-isme/gym-registration-api/internal/models"
	"github.com/noah-isme/gym-registration-api/internal/service"
	appErrors "github.com/noah-isme/gym-registration-api/pkg/errors"
)

type tokens struct{}

func (tokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "admin" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return &models.JWTClaims{UserID: 1}, nil
}

type registrations struct{ lastCaller int64 }

func (r *registrations) Get(ctx context.Context, id int64) (*models.RegistrationDetail, bool, error) {
	return &models.RegistrationDetail{ID: id}, false, nil
}

func (r *registrations) List(ctx context.Context, callerID int64, page int) ([]models.RegistrationDetail, *models.Pagination, error) {
	r.lastCaller = callerID
	return []models.RegistrationDetail{}, &models.Pagination{Page: page, PageSize: 10}, nil
}

func (r *registrations) Create(ctx context.Context, callerID int64, req service.RegistrationRequest) (*models.Registration, error) {
	return &models.Registration{ID: 1}, nil
}

func (r *registrations) Update(ctx context.Context, callerID, id int64, req service.RegistrationRequest) (*models.Registration, error) {
	return &models.Registration{ID: id}, nil
}

func (r *registrations) Delete(ctx context.Context, callerID, id int64) error {
	return nil
}

type exports struct{}

func (exports) Roster(ctx context.Context, callerID int64, format string) (*service.ExportFile, error) {
	return &service.ExportFile{Filename: "roster.csv", ContentType: "text/csv", Body: []byte("id\n")}, nil
}

func (exports) Receipt(ctx context.Context, callerID, id int64) (*service.ExportFile, error) {
	return nil, appErrors.ErrRegistrationNotFound
}

type sessions struct{}

func (sessions) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	return nil, appErrors.ErrInvalidCredentials
}

func newTestRouter(t *testing.T) (*gin.Engine, *registrations) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	regs := &registrations{}
	metrics := service.NewMetricsService()
	r := NewRouter(Options{Env: "test", Metrics: metrics, Tokens: tokens{}}, Handlers{
		Auth:          handler.NewAuthHandler(sessions{}),
		Registrations: handler.NewRegistrationHandler(regs),
		Exports:       handler.NewExportHandler(exports{}),
		Ops:           handler.NewMetricsHandler(metrics, nil),
	})
	return r, regs
}

func perform(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouterRoutes(t *testing.T) {
	r, regs := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{name: "health", method: http.MethodGet, path: "/health", status: http.StatusOK},
		{name: "ready without checks", method: http.MethodGet, path: "/ready", status: http.StatusOK},
		{name: "show is public", method: http.MethodGet, path: "/api/v1/registrations/5", status: http.StatusOK},
		{name: "index requires token", method: http.MethodGet, path: "/api/v1/registrations", status: http.StatusUnauthorized},
		{name: "index with token", method: http.MethodGet, path: "/api/v1/registrations", token: "admin", status: http.StatusOK},
		{name: "delete requires token", method: http.MethodDelete, path: "/api/v1/registrations/5", status: http.StatusUnauthorized},
		{name: "delete with token", method: http.MethodDelete, path: "/api/v1/registrations/5", token: "admin", status: http.StatusNoContent},
		{name: "export is not show", method: http.MethodGet, path: "/api/v1/registrations/export", token: "admin", status: http.StatusOK},
		{name: "receipt", method: http.MethodGet, path: "/api/v1/registrations/5/receipt", token: "admin", status: http.StatusNotFound},
		{name: "login", method: http.MethodPost, path: "/api/v1/sessions", status: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := perform(r, tc.method, tc.path, tc.token)
			assert.Equal(t, tc.status, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
	assert.Equal(t, int64(1), regs.lastCaller)

	w := perform(r, http.MethodGet, "/api/v1/registrations/export", "admin")
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}

func TestRouterExposesMetrics(t *testing.T) {
	r, _ := newTestRouter(t)
	perform(r, http.MethodGet, "/api/v1/registrations/5", "")

	w := perform(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/api/v1/registrations/:id",status="200"} 1`)
}
