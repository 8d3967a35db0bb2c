package api

import (
	"context"
	"net/http"
	"time"

	"github.com/edulite/backend/pkg/response"
	"go.uber.org/zap"
)

// Pinger is a dependency the readiness endpoint checks
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db     Pinger
	logger *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version,omitempty"`
}

func status(s string) HealthResponse {
	return HealthResponse{Status: s, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// Health returns the health status
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := status("ok")
	resp.Version = "1.0.0"
	response.OK(w, resp)
}

// Ready reports whether the database is reachable
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", zap.Error(err))
			response.JSON(w, http.StatusServiceUnavailable, status("unavailable"))
			return
		}
	}
	response.OK(w, status("ready"))
}

// Live returns the liveness status
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	response.OK(w, status("alive"))
}
