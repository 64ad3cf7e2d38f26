package errors

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// Kind classifies a failure so callers can decide how to degrade.
type Kind string

// Error kinds. PlatformUnsupported and Config stop the command; the rest are
// converted into in-band unavailable markers by the collectors.
const (
	PlatformUnsupported Kind = "PLATFORM_UNSUPPORTED"
	PermissionDenied    Kind = "PERMISSION_DENIED"
	SourceUnavailable   Kind = "SOURCE_UNAVAILABLE"
	ParseFailure        Kind = "PARSE_FAILURE"
	Timeout             Kind = "TIMEOUT"
	Config              Kind = "CONFIG"
)

// Error is a structured error with a kind, the source that produced it, and an
// optional suggestion and cause. It renders as:
//
//	✗ <What failed>
//
//	  <Why it failed>
//
//	  <How to fix it>
type Error struct {
	Kind       Kind
	Source     string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a structured error.
func New(kind Kind, message, suggestion string) *Error {
	return &Error{
		Kind:       kind,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps err under the given kind with a message.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   err,
	}
}

// WithSource returns a copy of e tagged with the source name (e.g. "disk").
func (e *Error) WithSource(source string) *Error {
	cp := *e
	cp.Source = source
	return &cp
}

// WithSuggestion returns a copy of e with a fix-it hint.
func (e *Error) WithSuggestion(suggestion string) *Error {
	cp := *e
	cp.Suggestion = suggestion
	return &cp
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	if e.Source != "" {
		b.WriteString(fmt.Sprintf("✗ %s: %s\n", e.Source, e.Message))
	} else {
		b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))
	}

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsKind checks if err is a structured Error of the given kind.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	var hiErr *Error
	if errors.As(err, &hiErr) {
		return hiErr.Kind == kind
	}
	return false
}

// Classify maps an arbitrary error onto a Kind.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}

	var hiErr *Error
	if errors.As(err, &hiErr) && hiErr.Kind != "" {
		return hiErr.Kind
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout
	case errors.Is(err, os.ErrPermission),
		errors.Is(err, syscall.EPERM),
		errors.Is(err, syscall.EACCES):
		return PermissionDenied
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return SourceUnavailable
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission denied") || strings.Contains(msg, "operation not permitted") {
		return PermissionDenied
	}
	return SourceUnavailable
}

// Reason produces the human-readable text shown in place of a missing value.
func Reason(kind Kind, source string, err error) string {
	var detail string
	if err != nil {
		var hiErr *Error
		if errors.As(err, &hiErr) {
			detail = hiErr.Message
		} else {
			detail = err.Error()
		}
	}

	var base string
	switch kind {
	case PermissionDenied:
		base = source + " requires elevated privileges (try running with sudo)"
	case Timeout:
		base = source + " timed out"
	case ParseFailure:
		base = source + " returned output that could not be parsed"
	case PlatformUnsupported:
		base = source + " is not supported on this platform"
	default:
		base = source + " is unavailable"
	}
	if detail == "" {
		return base
	}
	return base + ": " + firstLine(detail)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "✗ ")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
