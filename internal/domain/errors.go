package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures for the HTTP boundary.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindUpstream
	KindUnauthorized
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUpstream:
		return "upstream"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is a classified failure. Message is safe to show to the browser;
// Details carries the captured cause (upstream status and body, decode error).
type Error struct {
	Kind    ErrorKind
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewValidationError reports missing or malformed input.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewUpstreamError reports a failed Shopify call. details should describe
// what Shopify returned.
func NewUpstreamError(message, details string, err error) *Error {
	if details == "" && err != nil {
		details = err.Error()
	}
	return &Error{Kind: KindUpstream, Message: message, Details: details, Err: err}
}

// NewUnauthorizedError reports a missing or expired session.
func NewUnauthorizedError(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// NewInternalError wraps a failure of our own infrastructure.
func NewInternalError(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of err, KindInternal when err is not a *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
