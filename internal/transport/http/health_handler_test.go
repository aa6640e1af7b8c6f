package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"keymint/pkg/contracts"
	api "keymint/pkg/contracts/api/v1"
)

func TestHealthHandler_OK(t *testing.T) {
	svc := new(MockLicenseService)
	svc.On("Health", mock.Anything).Return(nil)

	handler := NewHealthHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp api.HealthResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, contracts.Version, resp.Version.Version)
	assert.Equal(t, contracts.APIVersion, resp.Version.APIVersion)
	assert.NotEmpty(t, resp.Version.GoVersion)
}

func TestHealthHandler_Degraded(t *testing.T) {
	svc := new(MockLicenseService)
	svc.On("Health", mock.Anything).Return(errors.New("store unreachable"))

	handler := NewHealthHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp api.HealthResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "degraded", resp.Status)
}
