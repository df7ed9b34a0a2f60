package model

import "time"

// Status is the binary authorization outcome.
type Status string

const (
	Authorized   Status = "AUTHORIZED"
	Unauthorized Status = "UNAUTHORIZED"
)

// Reason explains which rule produced a decision.
type Reason string

const (
	ReasonMatch         Reason = "match"
	ReasonNoReference   Reason = "no_reference"
	ReasonMissingField  Reason = "missing_field"
	ReasonFieldMismatch Reason = "field_mismatch"
)

// Decision is the result of comparing live attributes to the active reference.
// Only the most recent decision is persisted.
type Decision struct {
	Status      Status    `json:"status"`
	Fingerprint string    `json:"fingerprint"`
	Timestamp   time.Time `json:"timestamp"`
	Reason      Reason    `json:"reason"`
	Field       string    `json:"field,omitempty"`
}

// Authorized reports whether the decision grants authorization.
func (d Decision) Authorized() bool {
	return d.Status == Authorized
}
