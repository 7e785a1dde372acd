package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/gin-gonic/gin"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Success: true, Message: message})
}

// respondError maps a domain error onto its status code. Unexpected errors
// are logged and reported without detail.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := envelope{Success: false, Message: err.Error()}

	var verr *entity.ValidationError
	switch {
	case errors.As(err, &verr):
		body.Errors = verr.Fields
	case status == http.StatusNotFound:
		body.Message = "not found"
	case status == http.StatusInternalServerError:
		slog.Error("Request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
		body.Message = "Internal server error"
	}
	c.AbortWithStatusJSON(status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrValidation), errors.Is(err, entity.ErrInvalidTransition):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// bind decodes the JSON body into dst, reporting malformed bodies as validation errors.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, entity.NewValidationError("body", "must be valid JSON"))
		return false
	}
	return true
}

// bindAuthenticated rejects anonymous callers before the body is decoded, so
// they see 401 regardless of what they sent.
func bindAuthenticated(c *gin.Context, dst any) bool {
	if !identity(c).Authenticated() {
		respondError(c, entity.ErrUnauthenticated)
		return false
	}
	return bind(c, dst)
}
