// Package services provides the business logic behind the HTTP surface:
// issuance, activation, admin login and record administration.
package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"keymint/internal/config"
	licerrors "keymint/internal/errors"
	"keymint/internal/infrastructure"
	"keymint/internal/license"
	"keymint/internal/store"
	"keymint/internal/token"
)

// LicenseService provides the license lifecycle operations exposed to callers.
type LicenseService interface {
	Issue(ctx context.Context, customerName string, quantity int) (*IssueResult, error)
	Activate(ctx context.Context, serialKey, hwid, customerName string) (*ActivationResult, error)
	List(ctx context.Context) (map[string]license.Record, error)
	Get(ctx context.Context, serialKey string) (*license.Record, error)
	Remove(ctx context.Context, serialKey string) error
	Edit(ctx context.Context, serialKey string, customerName, hwid string) (*license.Record, error)
	AdminLogin(ctx context.Context, password string) (*AdminSession, error)
	Health(ctx context.Context) error
}

// CreatedKey is one serial minted by Issue, with its long-lived issuance token.
type CreatedKey struct {
	SerialKey string `json:"serial_key"`
	Token     string `json:"token"`
}

// IssueResult is the outcome of a batch issuance.
type IssueResult struct {
	CustomerName string       `json:"customer_name"`
	Created      []CreatedKey `json:"created"`
}

// ActivationResult is the outcome of a successful activation.
type ActivationResult struct {
	SerialKey    string `json:"serial_key"`
	HWID         string `json:"hwid"`
	CustomerName string `json:"customer_name"`
	Token        string `json:"token"`
	// Rebound is false for idempotent re-activations from the same machine.
	Bound bool `json:"bound"`
}

// AdminSession is a short-lived admin credential issued after login.
type AdminSession struct {
	Token string `json:"token"`
}

// licenseService is the production implementation of LicenseService.
type licenseService struct {
	store     store.Store
	generator *license.Generator
	engine    *license.Engine
	codec     *token.Codec
	security  config.SecurityConfig
	licenses  config.LicenseConfig
	logger    *slog.Logger
	metrics   *infrastructure.LicenseMetrics

	// mu serializes load/mutate/save sequences so two concurrent mutations
	// cannot overwrite each other's changes (lost update).
	mu sync.Mutex
}

// NewLicenseService creates the license service.
func NewLicenseService(
	st store.Store,
	generator *license.Generator,
	codec *token.Codec,
	security config.SecurityConfig,
	licenses config.LicenseConfig,
	logger *slog.Logger,
	metrics *infrastructure.LicenseMetrics,
) LicenseService {
	return &licenseService{
		store:     st,
		generator: generator,
		engine:    license.NewEngine(),
		codec:     codec,
		security:  security,
		licenses:  licenses,
		logger:    logger.With(slog.String("service", "license")),
		metrics:   metrics,
	}
}

// Issue mints quantity serial keys for the named customer. Each key is
// generated against the cumulative set including keys created earlier in the
// same batch, so batch keys are pairwise distinct.
func (s *licenseService) Issue(ctx context.Context, customerName string, quantity int) (*IssueResult, error) {
	tracer := otel.Tracer("license-service")
	ctx, span := tracer.Start(ctx, "license_service.issue",
		trace.WithAttributes(attribute.Int("license.quantity", quantity)))
	defer span.End()

	customerName = strings.TrimSpace(customerName)
	if customerName == "" {
		return nil, licerrors.FieldError("customer_name")
	}
	if quantity < 1 {
		quantity = 1
	}
	if quantity > s.licenses.MaxBatchQuantity {
		return nil, fmt.Errorf("%w: quantity exceeds maximum of %d",
			licerrors.ErrMissingField, s.licenses.MaxBatchQuantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.Load()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	created := make([]CreatedKey, 0, quantity)
	for i := 0; i < quantity; i++ {
		serialKey, err := s.generator.Generate(records)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		records[serialKey] = license.NewRecord(customerName, time.Now())

		issuanceToken, err := s.codec.Sign(token.IssuanceClaims{
			SerialKey:    serialKey,
			CustomerName: customerName,
		}, 0)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		created = append(created, CreatedKey{SerialKey: serialKey, Token: issuanceToken})
	}

	if err := s.store.Save(records); err != nil {
		span.RecordError(err)
		s.recordSaveFailure(ctx)
		return nil, err
	}

	if s.metrics != nil && s.metrics.SerialsIssued != nil {
		s.metrics.SerialsIssued.Add(ctx, int64(quantity))
	}

	s.logger.InfoContext(ctx, "serial keys issued",
		slog.String("customer_name", customerName),
		slog.Int("quantity", quantity))

	return &IssueResult{CustomerName: customerName, Created: created}, nil
}

// Activate runs the activation state machine and, on success, returns the
// activation token the client holds from then on.
func (s *licenseService) Activate(ctx context.Context, serialKey, hwid, customerName string) (*ActivationResult, error) {
	tracer := otel.Tracer("license-service")
	ctx, span := tracer.Start(ctx, "license_service.activate")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.Load()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result, err := s.engine.Activate(records, serialKey, hwid, customerName)
	if err != nil {
		span.RecordError(err)
		s.metrics.RecordActivationAttempt(ctx, "failure")
		return nil, err
	}

	if result.Mutated {
		if err := s.store.Save(records); err != nil {
			// The bind was not committed; the caller should retry.
			span.RecordError(err)
			s.recordSaveFailure(ctx)
			s.metrics.RecordActivationAttempt(ctx, "failure")
			return nil, err
		}
		s.logger.InfoContext(ctx, "license activated",
			slog.String("serial_key", strings.TrimSpace(serialKey)),
			slog.String("hwid", strings.TrimSpace(hwid)),
			slog.String("customer_name", result.Record.CustomerName))
		if s.metrics != nil && s.metrics.ActivationSuccesses != nil {
			s.metrics.ActivationSuccesses.Add(ctx, 1)
		}
	}
	s.metrics.RecordActivationAttempt(ctx, "success")

	activationToken, err := s.codec.Sign(token.ActivationClaims{
		SerialKey:    strings.TrimSpace(serialKey),
		HWID:         *result.Record.HWID,
		CustomerName: strings.TrimSpace(customerName),
	}, s.licenses.ActivationTokenTTL)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &ActivationResult{
		SerialKey:    strings.TrimSpace(serialKey),
		HWID:         *result.Record.HWID,
		CustomerName: strings.TrimSpace(customerName),
		Token:        activationToken,
		Bound:        result.Mutated,
	}, nil
}

// List returns a fresh snapshot of the full mapping.
func (s *licenseService) List(ctx context.Context) (map[string]license.Record, error) {
	return s.store.Load()
}

// Get returns a single record by serial key.
func (s *licenseService) Get(ctx context.Context, serialKey string) (*license.Record, error) {
	serialKey = strings.TrimSpace(serialKey)
	if serialKey == "" {
		return nil, licerrors.FieldError("serial_key")
	}

	records, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	record, ok := records[serialKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", licerrors.ErrLicenseNotFound, serialKey)
	}
	return &record, nil
}

// Remove deletes a record. Deletion is the only way a record is destroyed.
func (s *licenseService) Remove(ctx context.Context, serialKey string) error {
	serialKey = strings.TrimSpace(serialKey)
	if serialKey == "" {
		return licerrors.FieldError("serial_key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.Load()
	if err != nil {
		return err
	}

	if _, ok := records[serialKey]; !ok {
		return fmt.Errorf("%w: %s", licerrors.ErrLicenseNotFound, serialKey)
	}

	delete(records, serialKey)
	if err := s.store.Save(records); err != nil {
		s.recordSaveFailure(ctx)
		return err
	}

	s.logger.InfoContext(ctx, "license removed", slog.String("serial_key", serialKey))
	return nil
}

// Edit overwrites customerName and/or hwid directly. This is an intentional
// administrative override of the single-activation rule; it bypasses the
// activation state machine entirely. Empty arguments leave the stored value
// untouched.
func (s *licenseService) Edit(ctx context.Context, serialKey string, customerName, hwid string) (*license.Record, error) {
	serialKey = strings.TrimSpace(serialKey)
	if serialKey == "" {
		return nil, licerrors.FieldError("serial_key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	record, ok := records[serialKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", licerrors.ErrLicenseNotFound, serialKey)
	}

	if name := strings.TrimSpace(customerName); name != "" {
		record.CustomerName = name
	}
	if hw := strings.TrimSpace(hwid); hw != "" {
		record.HWID = &hw
	}
	records[serialKey] = record

	if err := s.store.Save(records); err != nil {
		s.recordSaveFailure(ctx)
		return nil, err
	}

	s.logger.InfoContext(ctx, "license edited", slog.String("serial_key", serialKey))
	return &record, nil
}

// AdminLogin verifies the shared admin password and issues a short-lived
// admin-role token. When an admin password hash is configured it takes
// precedence over the plain password.
func (s *licenseService) AdminLogin(ctx context.Context, password string) (*AdminSession, error) {
	if password == "" {
		return nil, licerrors.ErrAdminPasswordWrong
	}

	if s.security.AdminPasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(s.security.AdminPasswordHash), []byte(password)); err != nil {
			s.logger.WarnContext(ctx, "admin login rejected")
			return nil, licerrors.ErrAdminPasswordWrong
		}
	} else if subtle.ConstantTimeCompare([]byte(s.security.AdminPassword), []byte(password)) != 1 {
		s.logger.WarnContext(ctx, "admin login rejected")
		return nil, licerrors.ErrAdminPasswordWrong
	}

	adminToken, err := s.codec.Sign(token.AdminClaims{Role: token.RoleAdmin}, s.licenses.AdminTokenTTL)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "admin login succeeded")
	return &AdminSession{Token: adminToken}, nil
}

// Health reports whether the license store is reachable.
func (s *licenseService) Health(ctx context.Context) error {
	_, err := s.store.Load()
	return err
}

func (s *licenseService) recordSaveFailure(ctx context.Context) {
	if s.metrics != nil && s.metrics.StoreSaveFailures != nil {
		s.metrics.StoreSaveFailures.Add(ctx, 1)
	}
}
