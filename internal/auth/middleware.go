// Package auth carries the HTTP middleware: bearer-token gating for the API
// surface and a write-audit log for mutating requests.
package auth

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func RequireBearerMiddleware() gin.HandlerFunc {
	disabled := strings.EqualFold(os.Getenv("LP_AUTH_DISABLED"), "true") || os.Getenv("LP_AUTH_DISABLED") == "1"
	requireGatewayHeader := strings.EqualFold(os.Getenv("LP_REQUIRE_GATEWAY"), "true") || os.Getenv("LP_REQUIRE_GATEWAY") == "1"

	return func(c *gin.Context) {
		if disabled {
			c.Next()
			return
		}
		p := c.Request.URL.Path
		// Keep infra endpoints open.
		if p == "/healthz" || p == "/readyz" || p == "/metrics" {
			c.Next()
			return
		}
		// Protect API + swagger + docs.
		if strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/swagger") || p == "/docs" {
			auth := strings.TrimSpace(c.GetHeader("Authorization"))
			if !strings.HasPrefix(auth, "Bearer ") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
				return
			}
			if requireGatewayHeader {
				if strings.TrimSpace(c.GetHeader("X-Launchpad-Project")) == "" {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-Launchpad-Project"})
					return
				}
			}
		}
		c.Next()
	}
}

// WriteAuditMiddleware logs every mutating API request: bid placement,
// reveals, intent submission, manual clearing triggers.
func WriteAuditMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		method := strings.ToUpper(c.Request.Method)
		if !strings.HasPrefix(path, "/api/") {
			return
		}
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return
		}

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		switch {
		case status >= 500:
			logger.Error("api write", fields...)
		case status >= 400:
			logger.Warn("api write", fields...)
		default:
			logger.Info("api write", fields...)
		}
	}
}
