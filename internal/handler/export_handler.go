package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gym-registration-api/internal/service"
	"github.com/noah-isme/gym-registration-api/pkg/response"
)

type exportService interface {
	Roster(ctx context.Context, callerID int64, format string) (*service.ExportFile, error)
	Receipt(ctx context.Context, callerID, id int64) (*service.ExportFile, error)
}

// ExportHandler streams generated registration documents.
type ExportHandler struct {
	service exportService
}

// NewExportHandler builds a new handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Roster godoc
// @Summary Export the registration roster
// @Tags Registrations
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /registrations/export [get]
func (h *ExportHandler) Roster(c *gin.Context) {
	file, err := h.service.Roster(c.Request.Context(), callerID(c), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// Receipt godoc
// @Summary Download a registration receipt
// @Tags Registrations
// @Produce application/pdf
// @Security BearerAuth
// @Param id path int true "Registration ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /registrations/{id}/receipt [get]
func (h *ExportHandler) Receipt(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.service.Receipt(c.Request.Context(), callerID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
