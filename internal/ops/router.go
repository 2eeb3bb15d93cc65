// Package ops exposes the monitor's operational HTTP surface: health,
// last-run status, a manual sweep trigger, and Prometheus metrics. It is
// meant for operators and support tooling, not end users.
package ops

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/sparklecrew/sparkle-be/internal/telemetry"
)

// Dependencies collects what the ops handlers need.
type Dependencies struct {
	Logger  *slog.Logger
	Runner  MonitorRunner
	Checker HealthChecker
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))

	h := newHandler(deps)

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(telemetry.Handler()))

	v1 := r.Group("/api/v1")
	{
		monitor := v1.Group("/monitor")
		{
			// GET /api/v1/monitor/status - summary of the last sweep
			monitor.GET("/status", h.Status)

			// POST /api/v1/monitor/run - trigger an immediate sweep
			monitor.POST("/run", h.Run)
		}
	}

	return r
}

// LoggerMiddleware logs HTTP requests with slog. Health probes are noisy
// and skipped.
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		c.Next()

		if path == "/health" || path == "/metrics" {
			return
		}

		logger.Info("HTTP Request",
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("ip", c.ClientIP()),
		)

		for _, e := range c.Errors {
			logger.Error("Request error", slog.String("error", e.Error()))
		}
	}
}
