package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("invalid search query")
	ErrInvalidCredential = errors.New("invalid API credential")
	ErrQuotaExceeded     = errors.New("API quota exceeded")
	ErrTransport         = errors.New("search request failed")
	ErrMalformedResponse = errors.New("malformed search response")
	ErrProtocolAnomaly   = errors.New("pagination protocol anomaly")
	ErrCanceled          = errors.New("search canceled")
)

var (
	ErrEmptyKeyword      = fmt.Errorf("%w: empty keyword", ErrValidation)
	ErrInvalidDateRange  = fmt.Errorf("%w: start date is after end date", ErrValidation)
	ErrInvalidResultCap  = fmt.Errorf("%w: result cap must be positive", ErrValidation)
	ErrResultCapTooLarge = fmt.Errorf("%w: result cap too large", ErrValidation)
)

// ErrorKind is the machine-readable class of a failed aggregation.
type ErrorKind string

const (
	KindUnknown           ErrorKind = ""
	KindValidation        ErrorKind = "validation"
	KindInvalidCredential ErrorKind = "invalid_credential"
	KindQuotaExceeded     ErrorKind = "quota_exceeded"
	KindTransport         ErrorKind = "transport"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindProtocolAnomaly   ErrorKind = "protocol_anomaly"
	KindCanceled          ErrorKind = "canceled"
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindInvalidCredential:
		return ErrInvalidCredential
	case KindQuotaExceeded:
		return ErrQuotaExceeded
	case KindTransport:
		return ErrTransport
	case KindMalformedResponse:
		return ErrMalformedResponse
	case KindProtocolAnomaly:
		return ErrProtocolAnomaly
	case KindCanceled:
		return ErrCanceled
	default:
		return nil
	}
}

// AggregateError is the single failure shape returned by an aggregation.
// Page is 1-based; zero means the failure happened before any fetch.
type AggregateError struct {
	Kind ErrorKind
	Page int
	Err  error
}

func (e *AggregateError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("%s (page %d): %v", e.Kind, e.Page, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is.
func (e *AggregateError) Unwrap() []error {
	if s := e.Kind.sentinel(); s != nil && !errors.Is(e.Err, s) {
		return []error{s, e.Err}
	}
	return []error{e.Err}
}

// KindOf reports the kind carried by err. Bare sentinels are recognised too,
// so callers don't have to care whether the error went through an aggregation.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var aggErr *AggregateError
	if errors.As(err, &aggErr) {
		return aggErr.Kind
	}
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrInvalidCredential):
		return KindInvalidCredential
	case errors.Is(err, ErrQuotaExceeded):
		return KindQuotaExceeded
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	case errors.Is(err, ErrProtocolAnomaly):
		return KindProtocolAnomaly
	case errors.Is(err, ErrCanceled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrTransport):
		return KindTransport
	default:
		return KindUnknown
	}
}
