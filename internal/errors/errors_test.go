package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteProblem(t *testing.T) {
	problem := NewProblemDetails(
		http.StatusTooManyRequests,
		"/errors/rate-limit-exceeded",
		"Too Many Requests",
		"Rate limit exceeded. Please retry after 60 seconds.",
		"/api/license/activate",
	).WithExtension("trace_id", "trace-9")

	rec := httptest.NewRecorder()
	WriteProblem(rec, problem)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, "/errors/rate-limit-exceeded", decoded["type"])
	assert.Equal(t, float64(http.StatusTooManyRequests), decoded["status"])
	assert.Equal(t, "trace-9", decoded["trace_id"])
}

func TestWriteProblemFor(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteProblemFor(rec, ErrTokenExpired, "/api/license/issue", "trace-7")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, "/errors/unauthorized", decoded["type"])
	assert.Equal(t, "/api/license/issue", decoded["instance"])
	assert.Equal(t, "trace-7", decoded["trace_id"])
}

func TestMapLicenseError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "missing field maps to 400",
			err:        FieldError("hwid"),
			wantStatus: http.StatusBadRequest,
			wantType:   "/errors/missing-field",
		},
		{
			name:       "unknown serial maps to 404",
			err:        ErrLicenseNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   "/errors/serial-not-found",
		},
		{
			name:       "name mismatch maps to 401",
			err:        ErrCustomerNameMismatch,
			wantStatus: http.StatusUnauthorized,
			wantType:   "/errors/name-mismatch",
		},
		{
			name:       "machine mismatch maps to 403",
			err:        ErrMachineMismatch,
			wantStatus: http.StatusForbidden,
			wantType:   "/errors/machine-bound",
		},
		{
			name:       "missing admin role maps to 403",
			err:        ErrAdminRoleRequired,
			wantStatus: http.StatusForbidden,
			wantType:   "/errors/admin-required",
		},
		{
			name:       "store failure maps to 500",
			err:        fmt.Errorf("save licenses: %w", ErrStoreSaveFailed),
			wantStatus: http.StatusInternalServerError,
			wantType:   "/errors/storage-failure",
		},
		{
			name:       "wrong password maps to 401",
			err:        ErrAdminPasswordWrong,
			wantStatus: http.StatusUnauthorized,
			wantType:   "/errors/unauthorized",
		},
		{
			name:       "unknown error maps to 500 without leaking detail",
			err:        fmt.Errorf("disk exploded"),
			wantStatus: http.StatusInternalServerError,
			wantType:   "/errors/internal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := MapLicenseError(tt.err, "/api/license/activate#req-1", "trace-1")
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "trace-1", problem.Extensions["trace_id"])
		})
	}
}

func TestProblemDetails_MarshalJSON_IncludesExtensions(t *testing.T) {
	problem := NewProblemDetails(http.StatusForbidden, "/errors/machine-bound", "Serial Bound To Another Machine", "detail", "/api/license/activate").
		WithExtension("trace_id", "abc123")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "abc123", decoded["trace_id"])
	assert.Equal(t, float64(http.StatusForbidden), decoded["status"])
	assert.Equal(t, "/errors/machine-bound", decoded["type"])
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrLicenseNotFound))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(ErrMachineMismatch))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("boom")))
}
