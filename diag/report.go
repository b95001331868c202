// Package diag defines the diagnostics model shared by every stage of the
// compiler core: structural invariant violations, pattern/rewrite failures,
// convergence failures and unsupported constructs all surface as a *Report.
package diag

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Span identifies a range in a source document. Line and Col are 1-based;
// a zero Span means "no known source location" (e.g. a report raised by a
// synthetic pass over already-lowered IR).
type Span struct {
	File      string
	Line, Col int
	EndLine   int
	EndCol    int
}

// IsZero reports whether the span carries no location information.
func (s Span) IsZero() bool { return s == Span{} }

func (s Span) String() string {
	if s.IsZero() {
		return "<unknown>"
	}
	if s.EndLine == 0 {
		return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
	}
	return fmt.Sprintf("%s:%d:%d-%d:%d", s.File, s.Line, s.Col, s.EndLine, s.EndCol)
}

// Severity classifies a Report.
type Severity uint8

// The severities a Report may carry.
const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	default:
		return "error"
	}
}

// Report describes a single diagnostic. All kernel-level errors are
// constructed as *Report so the Context's diagnostics sink can collect and
// print them uniformly; it is also the value that satisfies the error
// interface returned by fallible operations across this module.
type Report struct {
	// Module names the subsystem that raised the report (e.g.
	// "ir.verify", "rewrite.greedy", "scheduler").
	Module string
	// Message is the primary human-readable label.
	Message string
	// Span is the primary source location, if any.
	Span Span
	// CorrelationID groups reports emitted while processing the same
	// top-level compile request, so a driver-side log aggregator can
	// stitch together reports raised by nested pass-manager invocations.
	CorrelationID uuid.UUID
	// Severity distinguishes fatal reports from warnings/notes.
	Severity Severity
	// cause is an optional wrapped error, set via Wrap.
	cause error
}

// New creates an error-severity Report with a fresh correlation id.
func New(module, message string) *Report {
	return &Report{Module: module, Message: message, CorrelationID: uuid.New()}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(module, format string, args ...interface{}) *Report {
	return New(module, fmt.Sprintf(format, args...))
}

// At returns a copy of r anchored at span.
func (r *Report) At(span Span) *Report {
	cp := *r
	cp.Span = span
	return &cp
}

// Wrap attaches cause as the underlying reason for r, preserving cause's
// stack trace via github.com/pkg/errors so a driver can print the full
// causal chain back to the originating verifier or pattern failure.
func (r *Report) Wrap(cause error) *Report {
	cp := *r
	cp.cause = errors.WithStack(cause)
	return &cp
}

// Cause returns the wrapped error, or nil.
func (r *Report) Cause() error { return r.cause }

// Error implements the error interface.
func (r *Report) Error() string {
	if r.Span.IsZero() {
		return fmt.Sprintf("[%s] %s: %s", r.Module, r.Severity, r.Message)
	}
	return fmt.Sprintf("%s: [%s] %s: %s", r.Span, r.Module, r.Severity, r.Message)
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (r *Report) Unwrap() error { return r.cause }
