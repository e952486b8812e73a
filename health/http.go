package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Response is the JSON body of the detailed endpoint.
type Response struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Checks    map[string]CheckResponse `json:"checks,omitempty"`
}

// CheckResponse is one check in Response.
type CheckResponse struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func statusCode(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func toResponse(r Result) CheckResponse {
	out := CheckResponse{
		Status:   string(r.Status),
		Message:  r.Message,
		Duration: r.Duration.String(),
		Details:  r.Details,
	}
	if r.Error != nil {
		out.Error = r.Error.Error()
	}
	return out
}

// Liveness answers 200 while the process runs.
func Liveness() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	}
}

// Readiness runs all checks and answers 503 when any is unhealthy.
func Readiness(agg *Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := Overall(agg.CheckAll(c.Request.Context()))
		switch status {
		case StatusHealthy:
			c.String(http.StatusOK, "OK")
		case StatusDegraded:
			c.String(http.StatusOK, "DEGRADED")
		default:
			c.String(http.StatusServiceUnavailable, "UNHEALTHY")
		}
	}
}

// Detailed reports every check as JSON.
func Detailed(agg *Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		results := agg.CheckAll(c.Request.Context())
		status := Overall(results)
		resp := Response{
			Status:    string(status),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]CheckResponse, len(results)),
		}
		for name, r := range results {
			resp.Checks[name] = toResponse(r)
		}
		c.JSON(statusCode(status), resp)
	}
}

// Single reports the checker named by the ":name" path parameter.
func Single(agg *Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := agg.Check(c.Request.Context(), c.Param("name"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(statusCode(r.Status), toResponse(r))
	}
}

// Register mounts /healthz, /readyz, /health and /health/:name on r.
func Register(r gin.IRoutes, agg *Aggregator) {
	r.GET("/healthz", Liveness())
	r.GET("/readyz", Readiness(agg))
	r.GET("/health", Detailed(agg))
	r.GET("/health/:name", Single(agg))
}
