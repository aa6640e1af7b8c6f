package license

import (
	"fmt"
	"strings"
	"time"

	licerrors "keymint/internal/errors"
)

// Engine is the state machine governing a record's transition from issued to
// bound. Activation is the only path allowed to fire that transition; there
// is no transition back (unbinding happens only through an administrative
// edit or deletion, outside the state machine).
type Engine struct {
	now func() time.Time
}

// NewEngine creates an activation engine.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// ActivationResult reports the outcome of an Activate call.
type ActivationResult struct {
	Record Record
	// Mutated is true when the record transitioned issued -> bound and the
	// caller must persist the mapping. A re-activation from the same machine
	// is a success with Mutated false; no write occurs.
	Mutated bool
}

// Activate validates an activation attempt against the current mapping and,
// when the record is unbound, binds it to the supplied hwid. The mapping is
// mutated in place on a bind; callers own persistence and must treat the
// mutation as uncommitted until the store save succeeds.
//
// Validation order: missing fields, unknown serial, customer name mismatch
// (case-insensitive after trimming), machine-binding violation.
func (e *Engine) Activate(records map[string]Record, serialKey, hwid, customerName string) (ActivationResult, error) {
	serialKey = strings.TrimSpace(serialKey)
	hwid = strings.TrimSpace(hwid)
	customerName = strings.TrimSpace(customerName)

	switch {
	case serialKey == "":
		return ActivationResult{}, licerrors.FieldError("serial_key")
	case hwid == "":
		return ActivationResult{}, licerrors.FieldError("hwid")
	case customerName == "":
		return ActivationResult{}, licerrors.FieldError("customer_name")
	}

	record, ok := records[serialKey]
	if !ok {
		return ActivationResult{}, fmt.Errorf("%w: %s", licerrors.ErrLicenseNotFound, serialKey)
	}

	if !record.MatchesCustomer(customerName) {
		return ActivationResult{}, licerrors.ErrCustomerNameMismatch
	}

	if record.Bound() && *record.HWID != hwid {
		return ActivationResult{}, licerrors.ErrMachineMismatch
	}

	if !record.Bound() {
		activatedAt := e.now().UTC()
		record.HWID = &hwid
		record.ActivatedAt = &activatedAt
		records[serialKey] = record
		return ActivationResult{Record: record, Mutated: true}, nil
	}

	// Already bound to this exact machine: idempotent success.
	return ActivationResult{Record: record, Mutated: false}, nil
}
