package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/citizenwatch/roadwatch-server/internal/models"
)

// Version is reported by the health endpoints.
const Version = "1.0.0"

var startTime = time.Now()

// Pinger is anything whose connectivity can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health check endpoints
type HealthHandler struct {
	repo   Pinger
	driver string
	logger *zap.SugaredLogger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(repo Pinger, driver string, logger *zap.SugaredLogger) *HealthHandler {
	return &HealthHandler{repo: repo, driver: driver, logger: logger}
}

// Check handles GET /api/v1/health (liveness probe)
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.HealthStatus{
		Status:  "ok",
		Version: Version,
		Uptime:  time.Since(startTime).String(),
	})
}

// Ready handles GET /api/v1/health/ready (readiness probe)
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.repo.Ping(ctx); err != nil {
		h.logger.Warnw("Repository not ready", "driver", h.driver, "error", err)
		respondJSON(w, http.StatusServiceUnavailable, models.HealthStatus{
			Status:     "not ready",
			Version:    Version,
			Repository: h.driver + ": disconnected",
		})
		return
	}

	respondJSON(w, http.StatusOK, models.HealthStatus{
		Status:     "ready",
		Version:    Version,
		Uptime:     time.Since(startTime).String(),
		Repository: h.driver + ": connected",
	})
}
