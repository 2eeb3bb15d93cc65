package ops

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sparklecrew/sparkle-be/internal/monitor"
	"github.com/sparklecrew/sparkle-be/internal/monitor/domain"
)

// MonitorRunner is the slice of the runner the ops surface needs.
type MonitorRunner interface {
	RunOnce(ctx context.Context) (monitor.Summary, error)
	LastSummary() (monitor.Summary, bool)
}

// HealthChecker reports the health of a downstream dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type handler struct {
	logger  *slog.Logger
	runner  MonitorRunner
	checker HealthChecker
}

func newHandler(deps *Dependencies) *handler {
	return &handler{
		logger:  deps.Logger,
		runner:  deps.Runner,
		checker: deps.Checker,
	}
}

// Health handles GET /health
func (h *handler) Health(c *gin.Context) {
	if h.checker != nil {
		if err := h.checker.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "monitor-service",
	})
}

// Status handles GET /api/v1/monitor/status
func (h *handler) Status(c *gin.Context) {
	summary, ok := h.runner.LastSummary()
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"has_run": false,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"has_run":  true,
		"last_run": summary,
	})
}

// Run handles POST /api/v1/monitor/run - a manual sweep for support staff.
// It reuses the exact periodic path, including the overlap guard.
func (h *handler) Run(c *gin.Context) {
	summary, err := h.runner.RunOnce(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "a monitor run is already in progress",
			})
			return
		}
		h.logger.Error("Manual monitor run failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "monitor run failed",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summary": summary,
	})
}
