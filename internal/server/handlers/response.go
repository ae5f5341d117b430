package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/pharmacy/internal/cart"
	"github.com/mamadbah2/pharmacy/internal/catalog"
	"github.com/mamadbah2/pharmacy/internal/domain/models"
	"github.com/mamadbah2/pharmacy/internal/notify"
)

// SessionHeader carries the cart session id. Requests without it share the anonymous cart.
const SessionHeader = "X-Cart-Session"

// Recorder attaches a notice recorder to every request so handlers can return the notices raised
// while serving it.
func Recorder() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _ := notify.WithRecorder(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func notices(c *gin.Context) []models.Notice {
	if rec := notify.RecorderFrom(c.Request.Context()); rec != nil {
		return rec.Notices()
	}
	return []models.Notice{}
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"data": data, "notices": notices(c)})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message, "notices": notices(c)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidMedicine), errors.Is(err, cart.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrEmptyCart):
		return http.StatusUnprocessableEntity
	case errors.Is(err, cart.ErrPersist):
		return http.StatusInternalServerError
	case errors.Is(err, cart.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
