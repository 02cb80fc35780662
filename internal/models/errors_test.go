package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestRateError_Is(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		target   error
		expected bool
	}{
		{"network matches network", NewNetworkError("dial", errors.New("refused")), ErrNetwork, true},
		{"network does not match malformed", NewNetworkError("dial", nil), ErrMalformedResponse, false},
		{"unavailable matches through wrap", fmt.Errorf("lookup: %w", NewRatesUnavailableError("USD", nil)), ErrRatesUnavailable, true},
		{"not found matches", NewRateNotFoundError("USD", "XYZ"), ErrRateNotFound, true},
		{"plain error never matches", errors.New("boom"), ErrRateNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.expected {
				t.Errorf("errors.Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRateError_CauseIsReachable(t *testing.T) {
	cause := NewMalformedResponseError("empty rates table", nil)
	err := NewRatesUnavailableError("EUR", cause)

	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected malformed cause to be reachable via errors.Is")
	}

	var rateErr *RateError
	if !errors.As(err, &rateErr) {
		t.Fatalf("errors.As() failed")
	}
	if rateErr.Type != ErrorTypeRatesUnavailable || rateErr.Base != "EUR" {
		t.Errorf("unexpected outer error: %+v", rateErr)
	}
}

func TestRateError_Error(t *testing.T) {
	err := NewRateNotFoundError("USD", "XYZ")
	if err.Error() != "no rate found for USD -> XYZ" {
		t.Errorf("Error() = %q", err.Error())
	}

	wrapped := NewNetworkError("provider returned status 503", errors.New("upstream"))
	if wrapped.Error() != "provider returned status 503: upstream" {
		t.Errorf("Error() = %q", wrapped.Error())
	}

	bare := &RateError{Type: ErrorTypeMalformedResponse}
	if bare.Error() != "malformed_response" {
		t.Errorf("Error() = %q", bare.Error())
	}
}
