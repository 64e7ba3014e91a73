package handlers

import (
	"errors"
	"net/http"

	"nemt/internal/domain"
	"nemt/internal/http/middleware"
	"nemt/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	resp := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}
	reqID := middleware.GetRequestID(c)
	if reqID != "" {
		c.JSON(status, gin.H{
			"error":      resp.Error,
			"code":       resp.Code,
			"details":    resp.Details,
			"request_id": reqID,
			"message":    message,
		})
		return
	}
	c.JSON(status, resp)
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	var ist domain.InvalidStateTransition
	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.As(err, &ist):
		respondError(c, http.StatusConflict, "invalid_state_transition", err.Error(), gin.H{
			"current":      ist.Current,
			"transition":   ist.Transition,
			"precondition": ist.Precondition,
		})
	case domain.IsInvalidMileage(err):
		respondError(c, http.StatusUnprocessableEntity, "invalid_mileage", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error(), nil)
	case domain.IsStorage(err):
		utils.LogWarn(middleware.GetRequestID(c), "HTTP", "storage", "report storage failed", err)
		respondError(c, http.StatusInternalServerError, "storage_error", "report document unavailable", nil)
	default:
		utils.LogWarn(middleware.GetRequestID(c), "HTTP", "internal", "unhandled error", err)
		respondError(c, http.StatusInternalServerError, "internal_error", "internal server error", nil)
	}
}
