// Package identity collects the host attributes a device is pinned to.
//
// Every attribute is gathered independently. A failure on one attribute
// degrades only that attribute to a sentinel value and is reported as a
// *FieldError in the Result; Collect itself never fails.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/ppiankov/hostpin/internal/model"
)

const (
	defaultSerialTimeout = 5 * time.Second
	defaultLookupTimeout = 3 * time.Second
)

var (
	// ErrUnsupported marks an attribute the platform cannot provide.
	// It degrades to model.Unsupported instead of model.Unknown.
	ErrUnsupported = errors.New("not supported on this platform")

	// ErrRandomizedMAC marks a node identifier that is not a real
	// hardware address (multicast bit set or randomly generated).
	ErrRandomizedMAC = errors.New("node identifier is randomized")

	errEmptyValue = errors.New("empty value")
)

// FieldError is a per-attribute collection failure.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("identity: collect %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Result is the outcome of one collection pass.
type Result struct {
	Attributes model.Attributes
	Failures   []*FieldError
}

// Degraded reports whether any attribute fell back to a sentinel.
func (r Result) Degraded() bool {
	return len(r.Failures) > 0
}

// Failed returns the failure for field, or nil.
func (r Result) Failed(field string) *FieldError {
	for _, f := range r.Failures {
		if f.Field == field {
			return f
		}
	}
	return nil
}

// Options configures a Collector. Zero values select defaults.
type Options struct {
	SerialTimeout time.Duration
	LookupTimeout time.Duration
	// Serial overrides the platform serial-number query.
	Serial SerialQuery
	Logger *slog.Logger
}

// Collector gathers host attributes.
type Collector struct {
	serial        SerialQuery
	serialTimeout time.Duration
	lookupTimeout time.Duration
	logger        *slog.Logger
}

// NewCollector creates a collector. The serial query is chosen once here.
func NewCollector(opts Options) *Collector {
	c := &Collector{
		serial:        opts.Serial,
		serialTimeout: opts.SerialTimeout,
		lookupTimeout: opts.LookupTimeout,
		logger:        opts.Logger,
	}
	if c.serial == nil {
		c.serial = SerialQueryFor(runtimeGOOS)
	}
	if c.serialTimeout <= 0 {
		c.serialTimeout = defaultSerialTimeout
	}
	if c.lookupTimeout <= 0 {
		c.lookupTimeout = defaultLookupTimeout
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// SerialQuery returns the serial-number strategy in use.
func (c *Collector) SerialQuery() SerialQuery {
	return c.serial
}

// Collect gathers every attribute. It always returns a complete set.
func (c *Collector) Collect(ctx context.Context) Result {
	res := Result{Attributes: model.NewAttributes()}

	uname, unameErr := unameInfo()
	hostname, hostErr := osHostname()

	c.field(&res, model.KeySystemName, func() (string, error) {
		if unameErr == nil && uname.NodeName != "" {
			return uname.NodeName, nil
		}
		return hostname, hostErr
	})
	// Sentinels included: a fresh system_name is always upper-case.
	res.Attributes[model.KeySystemName] = strings.ToUpper(res.Attributes[model.KeySystemName])

	c.field(&res, model.KeyOSFamily, func() (string, error) {
		return osFamily(runtimeGOOS), nil
	})
	c.field(&res, model.KeyOSVersion, func() (string, error) {
		return uname.Version, unameErr
	})
	c.field(&res, model.KeyArchitecture, func() (string, error) {
		if unameErr == nil && uname.Machine != "" {
			return uname.Machine, nil
		}
		return runtimeArch, nil
	})
	c.field(&res, model.KeyHostname, func() (string, error) {
		return hostname, hostErr
	})
	c.field(&res, model.KeyIPAddress, func() (string, error) {
		if hostErr != nil {
			return "", hostErr
		}
		return bounded(ctx, c.lookupTimeout, func(ctx context.Context) (string, error) {
			return resolveIPv4(ctx, hostname)
		})
	})
	c.field(&res, model.KeyMACAddress, macAddress)
	c.field(&res, model.KeySerialNumber, func() (string, error) {
		return bounded(ctx, c.serialTimeout, c.serial.Serial)
	})

	return res
}

// field runs fn and stores its value, substituting a sentinel on failure.
func (c *Collector) field(res *Result, key string, fn func() (string, error)) {
	value, err := safeCall(fn)
	// Undecodable bytes are dropped so stored values survive a JSON round trip.
	value = strings.ToValidUTF8(value, "")
	if err == nil && strings.TrimSpace(value) == "" {
		err = errEmptyValue
	}
	if err != nil {
		sentinel := model.Unknown
		if errors.Is(err, ErrUnsupported) {
			sentinel = model.Unsupported
		}
		res.Attributes[key] = sentinel
		res.Failures = append(res.Failures, &FieldError{Field: key, Err: err})
		c.logger.Debug("attribute degraded", "field", key, "sentinel", sentinel, "error", err)
		return
	}
	res.Attributes[key] = strings.TrimSpace(value)
}

func safeCall(fn func() (string, error)) (value string, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = "", fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// bounded runs query with a deadline. The query runs on its own goroutine
// so a read that ignores ctx still cannot hold the caller past the
// deadline; such a goroutine is abandoned and its result discarded.
func bounded(ctx context.Context, d time.Duration, query func(context.Context) (string, error)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type answer struct {
		value string
		err   error
	}
	done := make(chan answer, 1)
	go func() {
		v, err := safeCall(func() (string, error) { return query(ctx) })
		done <- answer{v, err}
	}()

	select {
	case a := <-done:
		return a.value, a.err
	case <-ctx.Done():
		return "", fmt.Errorf("query timed out after %s: %w", d, ctx.Err())
	}
}

func resolveIPv4(ctx context.Context, host string) (string, error) {
	addrs, err := lookupIPAddr(ctx, host)
	if err != nil {
		return "", err
	}
	for _, a := range addrs {
		if v4 := a.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return "", fmt.Errorf("no IPv4 address for %q", host)
}

// macAddress returns the node identifier as a colon separated address.
// A multicast bit in the first octet means the identifier was not read
// from real hardware, so it is rejected rather than reported.
func macAddress() (string, error) {
	node := uuidNodeID()
	if iface := uuidNodeInterface(); iface == "" || iface == "random" {
		return "", ErrRandomizedMAC
	}
	if len(node) < 6 {
		return "", fmt.Errorf("node identifier has %d bytes", len(node))
	}
	if node[0]&0x01 != 0 {
		return "", ErrRandomizedMAC
	}
	return net.HardwareAddr(node[:6]).String(), nil
}

func osFamily(goos string) string {
	switch goos {
	case "darwin":
		return "Darwin"
	case "freebsd":
		return "FreeBSD"
	case "netbsd":
		return "NetBSD"
	case "openbsd":
		return "OpenBSD"
	case "dragonfly":
		return "DragonFly"
	case "aix":
		return "AIX"
	case "":
		return ""
	default:
		return strings.ToUpper(goos[:1]) + goos[1:]
	}
}
