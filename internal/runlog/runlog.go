// Package runlog writes the plain-text run artifacts: the last-run record,
// overwritten on every run, and the append-only advisory note log.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ppiankov/hostpin/internal/fsutil"
	"github.com/ppiankov/hostpin/internal/model"
)

const (
	// RecordFile holds the most recent decision.
	RecordFile = "lastrun_log.txt"
	// AdvisoryFile accumulates one advisory line per run.
	AdvisoryFile = "reminder_log.txt"

	// TimeLayout is the timestamp format used in both files.
	TimeLayout = "2006-01-02 15:04:05"

	// DefaultAdvisory is the fixed advisory message.
	DefaultAdvisory = "Shower occurred before earlier outing. Reminder acknowledged."
)

// Recorder is the run-logging surface consumed by a run.
type Recorder interface {
	Record(d model.Decision) error
	Advise(ts time.Time) error
}

// Log writes run artifacts under a directory.
type Log struct {
	dir     string
	message string
	mu      sync.Mutex
}

// New returns a Log writing into dir. An empty message selects DefaultAdvisory.
func New(dir, message string) *Log {
	if message == "" {
		message = DefaultAdvisory
	}
	return &Log{dir: dir, message: message}
}

// RecordPath returns the last-run record path.
func (l *Log) RecordPath() string { return filepath.Join(l.dir, RecordFile) }

// AdvisoryPath returns the advisory log path.
func (l *Log) AdvisoryPath() string { return filepath.Join(l.dir, AdvisoryFile) }

// FormatRecord renders the three-line last-run record.
func FormatRecord(d model.Decision) string {
	return fmt.Sprintf("Last Run: %s\nStatus: %s\nSystem Hash: %s\n",
		d.Timestamp.Format(TimeLayout), d.Status, d.Fingerprint)
}

// FormatAdvisory renders one advisory line.
func FormatAdvisory(ts time.Time, message string) string {
	return fmt.Sprintf("[Reminder @ %s] %s\n", ts.Format(TimeLayout), message)
}

// Record replaces the last-run record with d. The file is written to a
// temp path and renamed so a reader never sees a partial record.
func (l *Log) Record(d model.Decision) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o750); err != nil {
		return fmt.Errorf("runlog: create directory: %w", err)
	}

	if err := fsutil.WriteFileAtomic(l.RecordPath(), []byte(FormatRecord(d)), 0o600); err != nil {
		return fmt.Errorf("runlog: replace record: %w", err)
	}
	return nil
}

// Advise appends one advisory line stamped ts.
func (l *Log) Advise(ts time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o750); err != nil {
		return fmt.Errorf("runlog: create directory: %w", err)
	}

	f, err := os.OpenFile(l.AdvisoryPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("runlog: open advisory log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatAdvisory(ts, l.message)); err != nil {
		return fmt.Errorf("runlog: write advisory: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("runlog: sync: %w", err)
	}
	return nil
}
