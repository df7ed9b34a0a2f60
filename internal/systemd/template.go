// Package systemd renders the units that run hostpin at boot and on a timer.
package systemd

import (
	"fmt"
	"time"
)

const (
	// ServicePath is the oneshot unit that performs one run.
	ServicePath = "/etc/systemd/system/hostpin.service"
	// TimerPath schedules the service.
	TimerPath = "/etc/systemd/system/hostpin.timer"

	DefaultBinary   = "/usr/local/bin/hostpin"
	DefaultInterval = time.Hour
)

// ServiceUnit returns the oneshot service that performs a single run.
// configPath may be empty to use the default config location.
func ServiceUnit(binary, configPath string) string {
	if binary == "" {
		binary = DefaultBinary
	}
	exec := binary
	if configPath != "" {
		exec = fmt.Sprintf("%s --config %s", binary, configPath)
	}
	return fmt.Sprintf(`[Unit]
Description=hostpin host authorization run
After=network-online.target
Wants=network-online.target

[Service]
Type=oneshot
ExecStart=%s
# Exit code 3 is an UNAUTHORIZED decision, not a unit failure.
SuccessExitStatus=3
NoNewPrivileges=true
PrivateTmp=true
`, exec)
}

// TimerUnit returns a timer that runs the service at boot and then every
// interval.
func TimerUnit(interval time.Duration) string {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return fmt.Sprintf(`[Unit]
Description=Run hostpin at boot and every %s

[Timer]
OnBootSec=1min
OnUnitActiveSec=%s
Unit=hostpin.service

[Install]
WantedBy=timers.target
`, interval, unitDuration(interval))
}

// unitDuration renders d in systemd time span syntax.
func unitDuration(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dmin", d/time.Minute)
	default:
		return fmt.Sprintf("%ds", (d+time.Second-1)/time.Second)
	}
}
