package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gym-registration-api/internal/middleware"
	"github.com/noah-isme/gym-registration-api/internal/models"
	"github.com/noah-isme/gym-registration-api/internal/service"
	appErrors "github.com/noah-isme/gym-registration-api/pkg/errors"
	"github.com/noah-isme/gym-registration-api/pkg/response"
)

type registrationService interface {
	Get(ctx context.Context, id int64) (*models.RegistrationDetail, bool, error)
	List(ctx context.Context, callerID int64, page int) ([]models.RegistrationDetail, *models.Pagination, error)
	Create(ctx context.Context, callerID int64, req service.RegistrationRequest) (*models.Registration, error)
	Update(ctx context.Context, callerID, id int64, req service.RegistrationRequest) (*models.Registration, error)
	Delete(ctx context.Context, callerID, id int64) error
}

// RegistrationHandler exposes registration lifecycle endpoints.
type RegistrationHandler struct {
	service registrationService
}

// NewRegistrationHandler builds a new handler.
func NewRegistrationHandler(service registrationService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

// Show godoc
// @Summary Get registration detail
// @Description Returns the registration with its plan and student. Unknown ids yield an empty body.
// @Tags Registrations
// @Produce json
// @Param id path int true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id} [get]
func (h *RegistrationHandler) Show(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, hit, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)

	var data interface{}
	if detail != nil {
		data = detail
	}
	response.JSON(c, http.StatusOK, data, nil, middleware.ExtractMeta(c))
}

// Index godoc
// @Summary List registrations
// @Tags Registrations
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (10 per page)"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /registrations [get]
func (h *RegistrationHandler) Index(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	registrations, pagination, err := h.service.List(c.Request.Context(), callerID(c), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registrations, pagination, middleware.ExtractMeta(c))
}

// Store godoc
// @Summary Enroll a student in a plan
// @Tags Registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.RegistrationRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Store(c *gin.Context) {
	var req service.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "validation failed, check all fields"))
		return
	}
	registration, err := h.service.Create(c.Request.Context(), callerID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, registration)
}

// Update godoc
// @Summary Change a registration
// @Tags Registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Registration ID"
// @Param payload body service.RegistrationRequest true "Registration payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /registrations/{id} [put]
func (h *RegistrationHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "validation failed, check all fields"))
		return
	}
	registration, err := h.service.Update(c.Request.Context(), callerID(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registration, nil)
}

// Delete godoc
// @Summary Delete a registration
// @Tags Registrations
// @Security BearerAuth
// @Param id path int true "Registration ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /registrations/{id} [delete]
func (h *RegistrationHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), callerID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
