package errors

import (
	"encoding/json"
	"net/http"
)

// WriteProblem writes an RFC 7807 problem document straight to the
// response writer. Handlers render problems through chi/render; this path
// is for middleware that replies before any render context exists.
func WriteProblem(w http.ResponseWriter, problem *ProblemDetails) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	json.NewEncoder(w).Encode(problem)
}

// WriteProblemFor maps a domain error and writes the resulting problem
// document in one step.
func WriteProblemFor(w http.ResponseWriter, err error, instance, traceID string) {
	WriteProblem(w, MapLicenseError(err, instance, traceID))
}
