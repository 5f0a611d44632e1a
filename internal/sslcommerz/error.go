package sslcommerz

import (
	"errors"
	"fmt"
)

var (
	// ErrVerificationFailed is matched by every callback authentication failure.
	ErrVerificationFailed = errors.New("callback verification failed")
	ErrMissingSignature   = fmt.Errorf("%w: verify_key or verify_sign missing", ErrVerificationFailed)
	ErrSignatureMismatch  = fmt.Errorf("%w: signature mismatch", ErrVerificationFailed)
)

// MalformedCallbackError reports a field the callback should carry but does not.
type MalformedCallbackError struct {
	Field string
}

func (e *MalformedCallbackError) Error() string {
	return fmt.Sprintf("malformed callback: missing field %q", e.Field)
}

func (e *MalformedCallbackError) Unwrap() error { return ErrVerificationFailed }

// GatewayError carries the failure reason returned by the remote API.
type GatewayError struct {
	Reason string
}

func (e *GatewayError) Error() string {
	if e.Reason == "" {
		return "sslcommerz rejected the request"
	}
	return "sslcommerz: " + e.Reason
}

// ConfigurationError reports unusable store credentials.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s", e.Field)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
