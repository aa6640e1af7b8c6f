package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"keymint/internal/config"
	"keymint/internal/infrastructure"
	"keymint/internal/license"
	custommw "keymint/internal/middleware"
	"keymint/internal/services"
	"keymint/internal/store"
	"keymint/internal/token"
	handlers "keymint/internal/transport/http"
	"keymint/pkg/contracts"
)

// Application is the main application container. All components are wired
// together at construction so the server can be started and stopped as a
// unit.
type Application struct {
	Config         *config.Config
	Router         *chi.Mux
	Server         *http.Server
	LicenseService services.LicenseService
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders

	codec *token.Codec
}

// NewApplication creates a new application instance with dependency injection.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewApplicationWithConfig(cfg)
}

// NewApplicationWithConfig wires the application from an explicit
// configuration. Tests use this to avoid touching process environment.
func NewApplicationWithConfig(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("version", contracts.GetVersionString()),
		slog.Int("port", cfg.Server.Port),
		slog.String("license_file", cfg.LicenseFilePath()),
	)

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	metrics, err := infrastructure.NewLicenseMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create license metrics: %w", err)
	}

	codec, err := token.NewCodec(cfg.Security.SigningSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create token codec: %w", err)
	}

	fileStore := store.NewFileStore(cfg.LicenseFilePath(), logger)
	generator := license.NewGenerator(cfg.License.SerialPrefix)

	svc := services.NewLicenseService(
		fileStore,
		generator,
		codec,
		cfg.Security,
		cfg.License,
		logger,
		metrics,
	)

	app := &Application{
		Config:         cfg,
		LicenseService: svc,
		Logger:         logger,
		OTelProviders:  otelProviders,
		codec:          codec,
	}

	app.setupRouter()
	app.setupServer()

	return app, nil
}

// setupRouter builds the middleware chain and mounts all routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.StructuredLogger(a.Logger))
	r.Use(custommw.Recoverer(a.Logger))

	if a.Config.Security.EnableCORS {
		r.Use(custommw.CORS(custommw.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
		}))
	}

	adminGuard := custommw.AdminGuard(a.codec, a.Config.Security.AdminAuthEnabled)

	activateLimit := passthroughMiddleware
	if a.Config.Security.RateLimit.Enabled {
		activateLimit = custommw.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler
	}

	licenseHandler := handlers.NewLicenseHandler(a.LicenseService, a.Logger)
	adminHandler := handlers.NewAdminHandler(a.LicenseService, a.Logger)
	healthHandler := handlers.NewHealthHandler(a.LicenseService, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Mount("/license", licenseHandler.Routes(adminGuard, activateLimit))
		r.Mount("/admin", adminHandler.Routes())
	})

	r.Get("/healthz", healthHandler.Health)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

func (a *Application) setupServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start begins serving. It returns immediately; server errors cancel the
// supplied context through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "server listening",
		slog.String("addr", a.Server.Addr),
	)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	return nil
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down telemetry", slog.String("error", err.Error()))
		}
	}

	infrastructure.CloseLogFile()
	return nil
}

// Run starts the application and blocks until a termination signal arrives
// or the server fails.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigCh:
		a.Logger.Info("signal received", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}

func passthroughMiddleware(next http.Handler) http.Handler {
	return next
}
