package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	licerrors "keymint/internal/errors"
	"keymint/internal/infrastructure"
	"keymint/internal/middleware"
	"keymint/internal/services"
	api "keymint/pkg/contracts/api/v1"
)

// AdminHandler handles administrative session requests.
type AdminHandler struct {
	service services.LicenseService
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(service services.LicenseService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "admin")),
	}
}

// Routes returns a chi router for admin endpoints
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	return r
}

// Login handles POST /api/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("admin-handler")

	ctx, span := tracer.Start(ctx, "admin_handler.login",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/admin/login"),
		),
	)
	defer span.End()

	var req api.AdminLoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.renderProblem(w, r, licerrors.FieldError("password"))
		return
	}
	if req.Password == "" {
		h.renderProblem(w, r, licerrors.FieldError("password"))
		return
	}

	session, err := h.service.AdminLogin(ctx, req.Password)
	if err != nil {
		span.SetAttributes(attribute.Bool("login.success", false))
		h.logger.WarnContext(ctx, "admin login rejected",
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.String("remote_addr", r.RemoteAddr),
		)
		h.renderProblem(w, r, err)
		return
	}

	span.SetAttributes(attribute.Bool("login.success", true))
	h.logger.InfoContext(ctx, "admin login succeeded",
		slog.String("request_id", middleware.GetReqID(ctx)),
	)

	render.JSON(w, r, api.AdminLoginResponse{Token: session.Token})
}

func (h *AdminHandler) renderProblem(w http.ResponseWriter, r *http.Request, err error) {
	traceID := infrastructure.GetTraceID(r.Context())
	problem := licerrors.MapLicenseError(err, r.URL.Path, traceID)
	render.Render(w, r, problem)
}
