package identity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// linuxSerialPath is the DMI product serial exposed by the kernel.
const linuxSerialPath = "/sys/class/dmi/id/product_serial"

// SerialQuery retrieves the hardware serial number.
// Implementations honour ctx where the underlying call allows it; the
// collector additionally enforces its own deadline.
type SerialQuery interface {
	Name() string
	Serial(ctx context.Context) (string, error)
}

// SerialQueryFor returns the serial strategy for a GOOS value.
func SerialQueryFor(goos string) SerialQuery {
	switch goos {
	case "windows":
		return WMICQuery{}
	case "linux":
		return SysfsQuery{Path: linuxSerialPath}
	case "darwin":
		return IORegQuery{}
	default:
		return UnsupportedQuery{}
	}
}

// WMICQuery asks WMI for the BIOS serial number and falls back to the
// registry copy of the SMBIOS data when wmic is unavailable.
type WMICQuery struct{}

func (WMICQuery) Name() string { return "wmic" }

func (WMICQuery) Serial(ctx context.Context) (string, error) {
	out, err := execCommand(ctx, "wmic", "bios", "get", "serialnumber").Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if serial, regErr := registrySerial(); regErr == nil && serial != "" {
			return serial, nil
		}
		return "", fmt.Errorf("wmic: %w", err)
	}
	return parseWMICSerial(string(out))
}

// parseWMICSerial returns the first row that is neither blank nor the header.
func parseWMICSerial(output string) (string, error) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "\u0000\r"))
		if line == "" || strings.Contains(strings.ToLower(line), "serialnumber") {
			continue
		}
		if strings.Contains(strings.ToLower(line), "no instance") {
			continue
		}
		return line, nil
	}
	return "", errors.New("wmic: no serial number row")
}

// SysfsQuery reads the serial from a sysfs file. A missing file means the
// platform does not expose DMI data.
type SysfsQuery struct {
	Path string
}

func (SysfsQuery) Name() string { return "sysfs" }

func (q SysfsQuery) Serial(ctx context.Context) (string, error) {
	data, err := osReadFile(q.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", q.Path, ErrUnsupported)
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// IORegQuery reads IOPlatformSerialNumber from the IOKit registry.
type IORegQuery struct{}

func (IORegQuery) Name() string { return "ioreg" }

func (IORegQuery) Serial(ctx context.Context) (string, error) {
	out, err := execCommand(ctx, "ioreg", "-rd1", "-c", "IOPlatformExpertDevice").Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// cron and launchd jobs may run without /usr/sbin on PATH
		out, err = execCommand(ctx, "/usr/sbin/ioreg", "-rd1", "-c", "IOPlatformExpertDevice").Output()
		if err != nil {
			return "", fmt.Errorf("ioreg: %w", err)
		}
	}
	return parseIORegSerial(string(out))
}

func parseIORegSerial(output string) (string, error) {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, `"IOPlatformSerialNumber"`) {
			continue
		}
		parts := strings.SplitAfter(line, `" = "`)
		if len(parts) == 2 {
			return strings.TrimRight(strings.TrimSpace(parts[1]), `"`), nil
		}
	}
	return "", errors.New("ioreg: IOPlatformSerialNumber not found")
}

// UnsupportedQuery is used on platforms without a serial source.
type UnsupportedQuery struct{}

func (UnsupportedQuery) Name() string { return "unsupported" }

func (UnsupportedQuery) Serial(context.Context) (string, error) {
	return "", ErrUnsupported
}
