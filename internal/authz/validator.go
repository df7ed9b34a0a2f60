// Package authz compares live host attributes to the active reference
// profile and produces a binary authorization decision.
package authz

import (
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/hostpin/internal/fingerprint"
	"github.com/ppiankov/hostpin/internal/model"
)

// ReferenceLoader reads the active reference profile.
type ReferenceLoader interface {
	LoadActive() (model.Attributes, error)
}

// Comparator reports whether a live value satisfies a reference value.
type Comparator func(live, reference string) bool

// Field is a required field and the comparator applied to it.
type Field struct {
	Key     string
	Compare Comparator
}

// Exact requires byte-exact equality.
func Exact(live, reference string) bool {
	return live == reference
}

// UpperReference requires the live value to equal the upper-cased
// reference. Live system names are always collected upper-case.
func UpperReference(live, reference string) bool {
	return live == strings.ToUpper(reference)
}

// RequiredFields are checked in order; the first failure decides.
var RequiredFields = []Field{
	{Key: model.KeySystemName, Compare: UpperReference},
	{Key: model.KeySerialNumber, Compare: Exact},
	{Key: model.KeyIPAddress, Compare: Exact},
	{Key: model.KeyMACAddress, Compare: Exact},
	{Key: model.KeyOSFamily, Compare: Exact},
	{Key: model.KeyArchitecture, Compare: Exact},
}

// Validator produces authorization decisions.
type Validator struct {
	refs   ReferenceLoader
	now    func() time.Time
	logger *slog.Logger
}

// Option customizes a Validator.
type Option func(*Validator)

// WithClock sets the time source used for decision timestamps.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// NewValidator creates a validator reading references from refs.
func NewValidator(refs ReferenceLoader, opts ...Option) *Validator {
	v := &Validator{refs: refs, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate compares live to the active reference. It never fails: a
// missing or unreadable reference is an UNAUTHORIZED decision.
func (v *Validator) Validate(live model.Attributes) model.Decision {
	d := model.Decision{
		Status:      model.Unauthorized,
		Fingerprint: fingerprint.Generate(live),
		Timestamp:   v.now(),
	}

	ref, err := v.refs.LoadActive()
	if err != nil {
		v.logger.Info("no active reference", "error", err)
		d.Reason = model.ReasonNoReference
		return d
	}

	d.Status, d.Reason, d.Field = Compare(live, ref)
	if d.Status == model.Unauthorized {
		v.logger.Debug("reference mismatch", "reason", d.Reason, "field", d.Field)
	}
	return d
}

// Compare applies RequiredFields to live and ref and returns the outcome,
// the reason, and the deciding field (empty on a full match).
func Compare(live, ref model.Attributes) (model.Status, model.Reason, string) {
	for _, f := range RequiredFields {
		// Absent from the reference: nothing pinned for this field.
		refVal, ok := ref.Lookup(f.Key)
		if !ok {
			return model.Unauthorized, model.ReasonMissingField, f.Key
		}

		if !f.Compare(live[f.Key], refVal) {
			return model.Unauthorized, model.ReasonFieldMismatch, f.Key
		}
	}
	return model.Authorized, model.ReasonMatch, ""
}
