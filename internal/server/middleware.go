package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/jonwraymond/sidenav/auth"
	"github.com/jonwraymond/sidenav/observe"
)

const requestIDKey = "request_id"

// requestID propagates the caller's X-Request-ID or assigns a ULID.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = ulid.Make().String()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func accessLog(logger observe.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info(c.Request.Context(), "http request",
			observe.F("request_id", c.GetString(requestIDKey)),
			observe.F("subject", auth.SubjectFromContext(c.Request.Context())),
			observe.F("method", c.Request.Method),
			observe.F("path", c.FullPath()),
			observe.F("status", c.Writer.Status()),
			observe.F("duration_ms", time.Since(start).Milliseconds()),
		)
	}
}

// identify attaches the viewer identity to the request context.
func identify(a auth.Authenticator, logger observe.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auth.Identify(c.Request.Context(), a, c.Request, logger)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// requireRole rejects viewers without role. An empty role admits everyone.
func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if role == "" {
			c.Next()
			return
		}
		id := auth.IdentityFromContext(c.Request.Context())
		switch {
		case id == nil || id.IsAnonymous():
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		case !id.HasRole(role):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role " + role + " required"})
		default:
			c.Next()
		}
	}
}
