package models

import "fmt"

// ErrorType classifies rate lookup failures
type ErrorType int

const (
	ErrorTypeNetwork ErrorType = iota + 1
	ErrorTypeMalformedResponse
	ErrorTypeRatesUnavailable
	ErrorTypeRateNotFound
)

func (errorType ErrorType) String() string {
	switch errorType {
	case ErrorTypeNetwork:
		return "network_error"
	case ErrorTypeMalformedResponse:
		return "malformed_response"
	case ErrorTypeRatesUnavailable:
		return "rates_unavailable"
	case ErrorTypeRateNotFound:
		return "rate_not_found"
	default:
		return "unknown"
	}
}

// RateError is the error returned by the cache and the upstream providers.
type RateError struct {
	Type    ErrorType
	Base    string
	Target  string
	Message string
	Cause   error
}

// Sentinels for errors.Is; only Type is compared.
var (
	ErrNetwork           = &RateError{Type: ErrorTypeNetwork, Message: "network error"}
	ErrMalformedResponse = &RateError{Type: ErrorTypeMalformedResponse, Message: "malformed response"}
	ErrRatesUnavailable  = &RateError{Type: ErrorTypeRatesUnavailable, Message: "rates unavailable"}
	ErrRateNotFound      = &RateError{Type: ErrorTypeRateNotFound, Message: "rate not found"}
)

func (e *RateError) Error() string {
	message := e.Message
	if message == "" {
		message = e.Type.String()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", message, e.Cause)
	}
	return message
}

func (e *RateError) Unwrap() error {
	return e.Cause
}

func (e *RateError) Is(target error) bool {
	other, ok := target.(*RateError)
	if !ok {
		return false
	}
	return other.Type == e.Type
}

// NewNetworkError wraps a transport failure or a non-success status.
func NewNetworkError(message string, cause error) *RateError {
	return &RateError{Type: ErrorTypeNetwork, Message: message, Cause: cause}
}

// NewMalformedResponseError reports a payload missing the expected fields.
func NewMalformedResponseError(message string, cause error) *RateError {
	return &RateError{Type: ErrorTypeMalformedResponse, Message: message, Cause: cause}
}

func NewRatesUnavailableError(base string, cause error) *RateError {
	return &RateError{
		Type:    ErrorTypeRatesUnavailable,
		Base:    base,
		Message: fmt.Sprintf("rates unavailable for %s", base),
		Cause:   cause,
	}
}

func NewRateNotFoundError(base, target string) *RateError {
	return &RateError{
		Type:    ErrorTypeRateNotFound,
		Base:    base,
		Target:  target,
		Message: fmt.Sprintf("no rate found for %s -> %s", base, target),
	}
}
