package api

import (
	"errors"
	"net/http"

	"giving-api/internal/response"
	"giving-api/internal/services"
	"giving-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// handleServiceError maps service errors onto HTTP responses. Validation
// problems carry their field map; capability messages pass through
// verbatim; storage/transport failures get a generic retry prompt.
func handleServiceError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var capabilityErr *services.CapabilityError
	var apiErr *services.ApiError

	switch {
	case errors.As(err, &validationErr):
		response.JSON(c, http.StatusBadRequest, response.FieldErrors("Validation failed", validationErr.Fields))
	case errors.As(err, &capabilityErr):
		response.ErrorJSON(c, http.StatusPaymentRequired, capabilityErr.Message)
	case errors.As(err, &apiErr):
		logging.Errorf("Service error - %v", apiErr)
		response.ErrorJSON(c, http.StatusBadGateway, "Service temporarily unavailable, please try again")
	case errors.Is(err, services.ErrInvalidState):
		response.ErrorJSON(c, http.StatusConflict, "Operation not allowed in the current state")
	case errors.Is(err, services.ErrNotFound):
		response.ErrorJSON(c, http.StatusNotFound, "Not found")
	default:
		logging.Errorf("Unexpected error - %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
}
