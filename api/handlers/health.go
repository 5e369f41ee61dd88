package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// ServiceName is the identifier reported by the health endpoint.
const ServiceName = "browser-use-api"

// HealthHandler answers liveness probes.
type HealthHandler struct {
	logger *zap.Logger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{logger: logger}
}

// Handle serves GET /health.
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
	})
}
