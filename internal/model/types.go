package model

import (
	"regexp"
	"sort"
	"strings"
)

// Attribute keys of a host attribute set.
const (
	KeySystemName   = "system_name"
	KeyOSFamily     = "os_family"
	KeyOSVersion    = "os_version"
	KeyArchitecture = "architecture"
	KeyHostname     = "hostname"
	KeyIPAddress    = "ip_address"
	KeyMACAddress   = "mac_address"
	KeySerialNumber = "serial_number"
)

// Sentinel values substituted when an attribute cannot be obtained.
const (
	Unknown     = "Unknown"
	Unsupported = "Unsupported"
)

// Keys lists every attribute key in canonical (sorted) order.
var Keys = []string{
	KeyArchitecture,
	KeyHostname,
	KeyIPAddress,
	KeyMACAddress,
	KeyOSFamily,
	KeyOSVersion,
	KeySerialNumber,
	KeySystemName,
}

var variantIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Attributes is a host attribute set keyed by the Key* constants.
// A freshly collected set always holds every key. A set read back from
// disk may lack keys; use Lookup to tell absent from empty.
type Attributes map[string]string

// NewAttributes returns a set with every key holding the Unknown sentinel.
func NewAttributes() Attributes {
	a := make(Attributes, len(Keys))
	for _, k := range Keys {
		a[k] = Unknown
	}
	return a
}

// Lookup returns the value for key and whether it is present.
func (a Attributes) Lookup(key string) (string, bool) {
	v, ok := a[key]
	return v, ok
}

// Clone returns an independent copy.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// With returns a copy with the overrides applied.
func (a Attributes) With(overrides map[string]string) Attributes {
	out := a.Clone()
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Missing returns the known keys absent from the set, sorted.
func (a Attributes) Missing() []string {
	var missing []string
	for _, k := range Keys {
		if _, ok := a[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

// IsKey reports whether key is one of the fixed attribute keys.
func IsKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// IsSentinel reports whether v is a reserved placeholder value.
// Comparison ignores case because system_name sentinels are upper-cased.
func IsSentinel(v string) bool {
	return strings.EqualFold(v, Unknown) || strings.EqualFold(v, Unsupported)
}

// ValidVariantID reports whether id can name a reference profile variant.
// Variant ids become file name components, so separators are rejected.
func ValidVariantID(id string) bool {
	return variantIDPattern.MatchString(id)
}
