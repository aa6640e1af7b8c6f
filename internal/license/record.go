// Package license implements the license lifecycle: serial key generation,
// the activation state machine, and the record model persisted by the store.
package license

import (
	"strings"
	"time"
)

// State is the activation state of a license record.
type State string

const (
	// StateIssued means the serial exists but no machine has activated it.
	StateIssued State = "issued"
	// StateBound means the serial is permanently bound to one machine.
	StateBound State = "bound"
)

// Record is a single license, keyed in the store by its serial key.
//
// JSON field names match the persisted store layout; hwid and activatedAt are
// null until the first successful activation and are always set together.
type Record struct {
	CustomerName string     `json:"customerName"`
	HWID         *string    `json:"hwid"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"createdAt"`
	ActivatedAt  *time.Time `json:"activatedAt"`
}

// NewRecord creates an unbound record for the given customer.
// The customer name is stored trimmed but case-preserving.
func NewRecord(customerName string, now time.Time) Record {
	return Record{
		CustomerName: strings.TrimSpace(customerName),
		Active:       true,
		CreatedAt:    now.UTC(),
	}
}

// State reports whether the record is issued or bound.
func (r Record) State() State {
	if r.HWID == nil {
		return StateIssued
	}
	return StateBound
}

// Bound reports whether the record is bound to a machine.
func (r Record) Bound() bool {
	return r.HWID != nil
}

// MatchesCustomer compares the stored customer name against a supplied one,
// trimmed and case-insensitively. A mismatch is treated as a guessing
// attempt, not a typo.
func (r Record) MatchesCustomer(name string) bool {
	return strings.EqualFold(strings.TrimSpace(r.CustomerName), strings.TrimSpace(name))
}
