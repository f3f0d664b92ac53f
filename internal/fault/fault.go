// Package fault defines the typed error kinds the processing pipeline
// surfaces to the HTTP layer. Every stage failure is wrapped in exactly
// one *fault.Error before it leaves the pipeline.
package fault

import (
	"context"
	"errors"
	"fmt"
)

// Kind names a category of pipeline failure.
type Kind string

const (
	InvalidQuery         Kind = "invalid_query"
	UnreadablePDF        Kind = "unreadable_pdf"
	EncryptedPDF         Kind = "encrypted_pdf"
	AnnotationFailed     Kind = "annotation_failed"
	SummarizeUnavailable Kind = "summarization_unavailable"
	Timeout              Kind = "timeout"
	Internal             Kind = "internal_error"
)

// Error carries a Kind plus the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind. A nil err still produces a valid Error.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Errorf is New with fmt.Errorf formatting.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err. Unrecognized errors map to Internal;
// context deadline errors map to Timeout.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Timeout
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
