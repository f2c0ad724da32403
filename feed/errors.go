package feed

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an ingestion attempt failed.
type ErrorKind string

const (
	ErrNetwork         ErrorKind = "network"
	ErrTimeout         ErrorKind = "timeout"
	ErrHTTPStatus      ErrorKind = "http_status"
	ErrDecode          ErrorKind = "decode"
	ErrUnsupportedKind ErrorKind = "unsupported_kind"
	ErrEmptyResult     ErrorKind = "empty_result"
	ErrStoreFailed     ErrorKind = "store_failed"
)

// Error is the typed failure produced anywhere in the fetch/parse/store
// pipeline. StatusCode is set only for ErrHTTPStatus.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == ErrHTTPStatus {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap attaches a kind to an underlying cause.
func Wrap(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Errf builds an Error around a formatted cause. The format accepts %w.
func Errf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// HTTPStatusError reports a non-200 response.
func HTTPStatusError(code int) *Error {
	return &Error{Kind: ErrHTTPStatus, StatusCode: code}
}

// KindOf extracts the ErrorKind carried by err, or "" when err has none.
func KindOf(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
