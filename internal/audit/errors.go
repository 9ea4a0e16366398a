package audit

import (
	"errors"
	"fmt"
)

var (
	// ErrAuditFailed is returned when the auditor could not produce a report.
	ErrAuditFailed = errors.New("audit failed")

	// ErrReportNotFound is returned when the auditor exited successfully
	// but wrote no report.
	ErrReportNotFound = errors.New("audit report not found")

	// ErrInvalidReport is returned when the report cannot be decoded.
	ErrInvalidReport = errors.New("invalid audit report")

	// ErrAuditorNotFound is returned when the auditor binary is not installed.
	ErrAuditorNotFound = errors.New("auditor binary not found")
)

// Error describes a failed auditor run.
// errors.Is(err, ErrAuditFailed) is true for every *Error.
type Error struct {
	// URL is the audited address.
	URL string

	// ExitCode is the exit status of the auditor process, or -1 if it did
	// not exit normally.
	ExitCode int

	// Stderr is the tail of the auditor's standard error.
	Stderr string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("audit of %s failed (exit code %d)", e.URL, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Unwrap returns ErrAuditFailed and the underlying error.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAuditFailed}
	}
	return []error{ErrAuditFailed, e.Err}
}
