package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"keymint/internal/services"
	"keymint/pkg/contracts"
	api "keymint/pkg/contracts/api/v1"
)

// HealthHandler reports server liveness and store reachability.
type HealthHandler struct {
	service services.LicenseService
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service services.LicenseService, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "health")),
	}
}

// Health handles GET /healthz
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := api.HealthResponse{
		Status:  "ok",
		Version: contracts.GetVersionInfo(),
		Time:    time.Now().UTC(),
	}

	if err := h.service.Health(ctx); err != nil {
		h.logger.ErrorContext(ctx, "health check failed", slog.String("error", err.Error()))
		resp.Status = "degraded"
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, resp)
		return
	}

	render.JSON(w, r, resp)
}
