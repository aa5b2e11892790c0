package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gym-registration-api/internal/middleware"
	appErrors "github.com/noah-isme/gym-registration-api/pkg/errors"
)

// callerID returns the authenticated user id, or 0 for anonymous callers.
func callerID(c *gin.Context) int64 {
	if claims := middleware.Claims(c); claims != nil {
		return claims.UserID
	}
	return 0
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.New(appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration id")
	}
	return id, nil
}
