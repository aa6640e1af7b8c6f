// Package http contains the HTTP transport layer: thin handlers that
// decode requests, call the license service and render responses.
package http

import (
	"log/slog"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	licerrors "keymint/internal/errors"
	"keymint/internal/infrastructure"
	"keymint/internal/license"
	"keymint/internal/middleware"
	"keymint/internal/services"
	api "keymint/pkg/contracts/api/v1"
)

// newValidator builds the request validator used by all handlers. Error
// messages reference JSON field names rather than Go struct fields.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// LicenseHandler handles license lifecycle HTTP requests.
type LicenseHandler struct {
	service  services.LicenseService
	logger   *slog.Logger
	validate *validator.Validate
}

// NewLicenseHandler creates a new license handler
func NewLicenseHandler(service services.LicenseService, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service:  service,
		logger:   logger.With(slog.String("handler", "license")),
		validate: newValidator(),
	}
}

// Routes returns a chi router for the license endpoints. Routes that mutate
// the key space are wrapped with adminOnly; activation is wrapped with
// activateLimit.
func (h *LicenseHandler) Routes(adminOnly, activateLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.With(activateLimit).Post("/activate", h.Activate)
	r.Get("/", h.List)
	r.Get("/{serialKey}", h.Get)

	r.Group(func(admin chi.Router) {
		admin.Use(adminOnly)
		admin.Post("/issue", h.Issue)
		admin.Delete("/{serialKey}", h.Remove)
		admin.Put("/{serialKey}", h.Edit)
	})

	return r
}

// Issue handles POST /api/license/issue
func (h *LicenseHandler) Issue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.issue",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/license/issue"),
		),
	)
	defer span.End()

	var req api.IssueRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.renderProblem(w, r, licerrors.FieldError("customerName"))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if err := h.validate.Struct(&req); err != nil {
		h.renderValidationProblem(w, r, err)
		return
	}

	result, err := h.service.Issue(ctx, req.CustomerName, req.Quantity)
	if err != nil {
		span.RecordError(err)
		h.renderProblem(w, r, err)
		return
	}

	span.SetAttributes(attribute.Int("license.issued", len(result.Created)))
	h.logger.InfoContext(ctx, "serials issued",
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.String("customer", result.CustomerName),
		slog.Int("count", len(result.Created)),
	)

	resp := api.IssueResponse{CustomerName: result.CustomerName}
	for _, created := range result.Created {
		resp.Created = append(resp.Created, api.CreatedKey{
			SerialKey: created.SerialKey,
			Token:     created.Token,
		})
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// Activate handles POST /api/license/activate
func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.activate",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/license/activate"),
		),
	)
	defer span.End()

	var req api.ActivateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.renderProblem(w, r, licerrors.FieldError("serialKey"))
		return
	}

	result, err := h.service.Activate(ctx, req.SerialKey, req.HWID, req.CustomerName)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("activation.outcome", "error"))
		h.renderProblem(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("activation.outcome", "success"),
		attribute.Bool("activation.bound", result.Bound),
	)
	h.logger.InfoContext(ctx, "license activated",
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.String("serial_key", result.SerialKey),
		slog.Bool("bound", result.Bound),
	)

	render.JSON(w, r, api.ActivateResponse{
		Success:      true,
		SerialKey:    result.SerialKey,
		HWID:         result.HWID,
		CustomerName: result.CustomerName,
		Token:        result.Token,
	})
}

// List handles GET /api/license
func (h *LicenseHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.service.List(ctx)
	if err != nil {
		h.renderProblem(w, r, err)
		return
	}

	resp := api.ListResponse{
		Count:    len(records),
		Licenses: make([]api.LicenseView, 0, len(records)),
	}
	for serialKey, rec := range records {
		resp.Licenses = append(resp.Licenses, recordView(serialKey, rec))
	}
	sort.Slice(resp.Licenses, func(i, j int) bool {
		return resp.Licenses[i].SerialKey < resp.Licenses[j].SerialKey
	})

	render.JSON(w, r, resp)
}

// Get handles GET /api/license/{serialKey}
func (h *LicenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	serialKey := chi.URLParam(r, "serialKey")

	rec, err := h.service.Get(ctx, serialKey)
	if err != nil {
		h.renderProblem(w, r, err)
		return
	}

	render.JSON(w, r, recordView(serialKey, *rec))
}

// Remove handles DELETE /api/license/{serialKey}
func (h *LicenseHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	serialKey := chi.URLParam(r, "serialKey")

	if err := h.service.Remove(ctx, serialKey); err != nil {
		h.renderProblem(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "license removed",
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.String("serial_key", serialKey),
	)

	render.JSON(w, r, api.DeleteResponse{Deleted: true, SerialKey: serialKey})
}

// Edit handles PUT /api/license/{serialKey}
func (h *LicenseHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	serialKey := chi.URLParam(r, "serialKey")

	var req api.EditRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.renderProblem(w, r, licerrors.FieldError("customerName"))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.renderValidationProblem(w, r, err)
		return
	}

	rec, err := h.service.Edit(ctx, serialKey, req.CustomerName, req.HWID)
	if err != nil {
		h.renderProblem(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "license edited",
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.String("serial_key", serialKey),
	)

	render.JSON(w, r, recordView(serialKey, *rec))
}

// recordView projects a stored record into its public API shape.
func recordView(serialKey string, rec license.Record) api.LicenseView {
	return api.LicenseView{
		SerialKey:    serialKey,
		CustomerName: rec.CustomerName,
		HWID:         rec.HWID,
		Active:       rec.Active,
		State:        string(rec.State()),
		CreatedAt:    rec.CreatedAt,
		ActivatedAt:  rec.ActivatedAt,
	}
}

// renderProblem maps a service error to RFC 7807 and writes it.
func (h *LicenseHandler) renderProblem(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)

	h.logger.WarnContext(ctx, "request failed",
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)

	problem := licerrors.MapLicenseError(err, r.URL.Path, traceID)
	render.Render(w, r, problem)
}

// renderValidationProblem converts validator output into a 400 problem.
func (h *LicenseHandler) renderValidationProblem(w http.ResponseWriter, r *http.Request, err error) {
	var fields []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
	}

	detail := "request validation failed"
	if len(fields) > 0 {
		detail = "invalid fields: " + strings.Join(fields, ", ")
	}

	problem := licerrors.NewProblemDetails(
		http.StatusBadRequest,
		"/errors/missing-field",
		"Missing Required Field",
		detail,
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))

	render.Render(w, r, problem)
}
