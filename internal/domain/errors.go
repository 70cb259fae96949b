package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies failures so callers can react without string matching.
type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration"
	KindValidation    ErrorKind = "validation"
	KindUpstream      ErrorKind = "upstream"
	KindTimeout       ErrorKind = "timeout"
	KindNetwork       ErrorKind = "network"
	KindNotFound      ErrorKind = "not_found"
	KindConflict      ErrorKind = "conflict"
)

// Error is the typed error returned by clients and the watchlist store.
// Status carries the upstream HTTP status for KindUpstream, zero otherwise.
type Error struct {
	Kind   ErrorKind
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfigurationError reports a missing or rejected credential.
func NewConfigurationError(op, msg string) error {
	return &Error{Kind: KindConfiguration, Op: op, Err: errors.New(msg)}
}

// NewValidationError reports a caller-supplied value that was rejected.
func NewValidationError(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Err: errors.New(msg)}
}

// NewUpstreamError reports a non-2xx provider response.
func NewUpstreamError(op string, status int) error {
	return &Error{Kind: KindUpstream, Op: op, Status: status}
}

// NewTimeoutError reports a request that exceeded its deadline.
func NewTimeoutError(op string, err error) error {
	return &Error{Kind: KindTimeout, Op: op, Err: err}
}

// NewNetworkError reports a transport-level failure.
func NewNetworkError(op string, err error) error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

// NewNotFoundError reports an unknown symbol or resource.
func NewNotFoundError(op, msg string) error {
	return &Error{Kind: KindNotFound, Op: op, Err: errors.New(msg)}
}

// NewConflictError reports a request that collides with work already in progress.
func NewConflictError(op, msg string) error {
	return &Error{Kind: KindConflict, Op: op, Err: errors.New(msg)}
}

// FromTransportError classifies an HTTP client error as a timeout or network failure.
func FromTransportError(op string, err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return NewTimeoutError(op, err)
	}
	return NewNetworkError(op, err)
}

// IsKind reports whether any error in err's chain is a domain Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// HTTPStatus maps an error to the status code the dashboard API answers with.
func HTTPStatus(err error) int {
	var de *Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	switch de.Kind {
	case KindConfiguration:
		return http.StatusPreconditionFailed
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
