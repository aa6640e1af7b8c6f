package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// License-specific errors (using errors package for sentinel errors)
var (
	ErrLicenseNotFound      = errors.New("serial key not found")
	ErrCustomerNameMismatch = errors.New("customer name does not match serial")
	ErrMachineMismatch      = errors.New("serial already activated on another machine")
	ErrMissingField         = errors.New("missing required field")
	ErrStoreSaveFailed      = errors.New("license store save failed")
	ErrTokenInvalid         = errors.New("token invalid")
	ErrTokenExpired         = errors.New("token expired")
	ErrAdminRoleRequired    = errors.New("admin role required")
	ErrAdminPasswordWrong   = errors.New("wrong admin password")
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	for k, v := range pd.Extensions {
		data[k] = v
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// MapLicenseError maps a domain error to the matching RFC 7807 problem.
// Unknown errors map to a generic 500 so internals never leak to clients.
func MapLicenseError(err error, instance, traceID string) *ProblemDetails {
	var problem *ProblemDetails

	switch {
	case errors.Is(err, ErrMissingField):
		problem = NewProblemDetails(
			http.StatusBadRequest,
			"/errors/missing-field",
			"Missing Required Field",
			err.Error(),
			instance,
		)
	case errors.Is(err, ErrLicenseNotFound):
		problem = NewProblemDetails(
			http.StatusNotFound,
			"/errors/serial-not-found",
			"Serial Key Not Found",
			"The supplied serial key does not exist.",
			instance,
		)
	case errors.Is(err, ErrCustomerNameMismatch):
		problem = NewProblemDetails(
			http.StatusUnauthorized,
			"/errors/name-mismatch",
			"Customer Name Mismatch",
			"The customer name does not match this serial key.",
			instance,
		)
	case errors.Is(err, ErrAdminPasswordWrong), errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrTokenExpired):
		problem = NewProblemDetails(
			http.StatusUnauthorized,
			"/errors/unauthorized",
			"Unauthorized",
			"Invalid or missing credentials.",
			instance,
		)
	case errors.Is(err, ErrMachineMismatch):
		problem = NewProblemDetails(
			http.StatusForbidden,
			"/errors/machine-bound",
			"Serial Bound To Another Machine",
			"This serial key has already been activated on a different machine.",
			instance,
		)
	case errors.Is(err, ErrAdminRoleRequired):
		problem = NewProblemDetails(
			http.StatusForbidden,
			"/errors/admin-required",
			"Admin Role Required",
			"This operation requires an admin token.",
			instance,
		)
	case errors.Is(err, ErrStoreSaveFailed):
		problem = NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/storage-failure",
			"License Store Failure",
			"The license store could not be written. The operation was not committed.",
			instance,
		)
	default:
		problem = NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/internal",
			"Internal Server Error",
			"An unexpected error occurred.",
			instance,
		)
	}

	if traceID != "" {
		problem.WithExtension("trace_id", traceID)
	}
	return problem
}

// HTTPStatus reports the HTTP status a domain error maps to.
func HTTPStatus(err error) int {
	return MapLicenseError(err, "", "").Status
}

// FieldError decorates ErrMissingField with the offending field name.
func FieldError(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}
