// Package clierror provides structured errors for CLI output with codes,
// exit codes, and remediation hints.
package clierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes returned by the hostpin binary.
const (
	ExitSuccess      = 0 // Host authorized or command completed
	ExitGeneral      = 1 // Unknown/unhandled error
	ExitConfig       = 2 // Config file unreadable or invalid
	ExitUnauthorized = 3 // Host did not match the active reference
)

// Error codes (strings) for programmatic error handling
const (
	CodeNotAuthorized     = "NOT_AUTHORIZED"
	CodeReferenceNotFound = "REFERENCE_NOT_FOUND"
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodePersistenceFailed = "PERSISTENCE_FAILED"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeChecksFailed      = "CHECKS_FAILED"
)

// CLIError represents a structured error for CLI output.
type CLIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Hint      string `json:"hint,omitempty"`
	Retryable bool   `json:"retryable"`
	ExitCode  int    `json:"-"`
	Cause     error  `json:"-"`
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Cause
}

// NotAuthorized reports an UNAUTHORIZED decision.
func NotAuthorized(reason, field string) *CLIError {
	msg := fmt.Sprintf("host not authorized (%s)", reason)
	if field != "" {
		msg = fmt.Sprintf("host not authorized (%s: %s)", reason, field)
	}
	return &CLIError{
		Code:     CodeNotAuthorized,
		Message:  msg,
		Hint:     "Run 'hostpin fingerprint' to inspect the live attributes",
		ExitCode: ExitUnauthorized,
	}
}

// ReferenceNotFound reports a missing or unreadable reference profile.
func ReferenceNotFound(path string, cause error) *CLIError {
	return &CLIError{
		Code:     CodeReferenceNotFound,
		Message:  fmt.Sprintf("no usable reference profile at '%s'", path),
		Hint:     "Run 'hostpin provision' and then 'hostpin pin <variant>'",
		ExitCode: ExitUnauthorized,
		Cause:    cause,
	}
}

// ConfigInvalid reports a config file that cannot be loaded.
func ConfigInvalid(path string, cause error) *CLIError {
	msg := "invalid configuration"
	if cause != nil {
		msg = fmt.Sprintf("invalid configuration: %s", cause.Error())
	}
	hint := "Run 'hostpin init --force' to regenerate the default config"
	if path != "" {
		hint = fmt.Sprintf("Fix '%s' or run 'hostpin init --force'", path)
	}
	return &CLIError{
		Code:     CodeConfigInvalid,
		Message:  msg,
		Hint:     hint,
		ExitCode: ExitConfig,
		Cause:    cause,
	}
}

// PersistenceFailed reports a write or read failure on the state directory.
func PersistenceFailed(cause error) *CLIError {
	msg := "failed to persist state"
	if cause != nil {
		msg = fmt.Sprintf("failed to persist state: %s", cause.Error())
	}
	return &CLIError{
		Code:      CodePersistenceFailed,
		Message:   msg,
		Hint:      "Check that the base directory exists and is writable",
		Retryable: true,
		ExitCode:  ExitGeneral,
		Cause:     cause,
	}
}

// ChecksFailed reports readiness checks that did not pass.
func ChecksFailed(failed, total int) *CLIError {
	return &CLIError{
		Code:     CodeChecksFailed,
		Message:  fmt.Sprintf("%d of %d readiness checks failed", failed, total),
		Hint:     "Run the suggested commands printed next to each failed check",
		ExitCode: ExitGeneral,
	}
}

// InternalError creates an error for unexpected internal errors.
func InternalError(err error) *CLIError {
	msg := "an unexpected internal error occurred"
	if err != nil {
		msg = fmt.Sprintf("internal error: %s", err.Error())
	}
	return &CLIError{
		Code:     CodeInternalError,
		Message:  msg,
		ExitCode: ExitGeneral,
		Cause:    err,
	}
}

// From converts any error into a CLIError. CLIErrors in the chain are
// returned as is; everything else becomes an internal error.
func From(err error) *CLIError {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	return InternalError(err)
}

// FormatError returns the error formatted for the given output format.
// Supported formats: "json" for JSON output, anything else for human-readable text.
func FormatError(err *CLIError, outputFormat string) string {
	if outputFormat == "json" {
		data, jsonErr := json.MarshalIndent(err, "", "  ")
		if jsonErr != nil {
			return fmt.Sprintf(`{"code":%q,"message":%q}`, err.Code, err.Message)
		}
		return string(data)
	}

	output := fmt.Sprintf("Error [%s]: %s", err.Code, err.Message)
	if err.Hint != "" {
		output += fmt.Sprintf("\nHint: %s", err.Hint)
	}
	return output
}

// PrintError writes the error to w in the appropriate format.
func PrintError(w io.Writer, err *CLIError, outputFormat string) {
	fmt.Fprintln(w, FormatError(err, outputFormat))
}
