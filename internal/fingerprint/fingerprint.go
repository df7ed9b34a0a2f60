// Package fingerprint derives a deterministic digest from a host attribute set.
// The attribute map is serialized as RFC 8785 canonical JSON (keys sorted,
// no insignificant whitespace) and hashed with SHA-256.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gowebpki/jcs"

	"github.com/ppiankov/hostpin/internal/model"
)

// Empty is returned by Generate when the digest cannot be produced.
const Empty = ""

// ErrInvalidUTF8 marks an attribute key or value that is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid UTF-8")

// SerializationError reports a failure to canonicalize an attribute set.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("fingerprint: serialize attributes: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// Canonical returns the canonical byte encoding of attrs.
// Keys and values must be valid UTF-8; encoding/json would otherwise
// replace invalid bytes and map distinct values to one encoding.
func Canonical(attrs model.Attributes) ([]byte, error) {
	for k, v := range attrs {
		if !utf8.ValidString(k) || !utf8.ValidString(v) {
			return nil, &SerializationError{Err: fmt.Errorf("field %q: %w", strings.ToValidUTF8(k, "?"), ErrInvalidUTF8)}
		}
	}
	raw, err := json.Marshal(map[string]string(attrs))
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	return out, nil
}

// Compute returns the lower-case hex SHA-256 of the canonical encoding.
func Compute(attrs model.Attributes) (string, error) {
	data, err := Canonical(attrs)
	if err != nil {
		return Empty, err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Generate is Compute with the error collapsed to the Empty sentinel.
func Generate(attrs model.Attributes) string {
	digest, err := Compute(attrs)
	if err != nil {
		return Empty
	}
	return digest
}
