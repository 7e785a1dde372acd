package http

import (
	"log/slog"
	"strings"
	"time"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// identify resolves the caller from a Bearer token or the session cookie. It
// never rejects a request: services decide what an anonymous caller may do.
func (h *Handler) identify(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token, _ = c.Cookie(h.cfg.CookieName)
	}
	if token == "" && c.FullPath() == "/api/orders/events" {
		token = c.Query("token")
	}
	if token != "" && h.deps.Identities != nil {
		if id, err := h.deps.Identities.ResolveIdentity(token); err == nil {
			c.Set(identityKey, id)
		}
	}
	c.Next()
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// identity returns the resolved caller, or the zero Identity when anonymous.
func identity(c *gin.Context) entity.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(entity.Identity); ok {
			return id
		}
	}
	return entity.Identity{}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
