package sync

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ---------------------------------------------------------------------------
// Failure Classification
// ---------------------------------------------------------------------------

// FailureType is the classification tag assigned to every raised failure.
// Every failure is classified exactly once before retry or circuit decisions
// are made.
type FailureType string

const (
	// FailureRateLimit indicates the platform throttled the call; recoverable,
	// the platform-provided retry-after hint takes precedence over backoff
	FailureRateLimit FailureType = "RATE_LIMIT"
	// FailureAuth indicates an authentication failure; recoverable only when
	// the credential is refreshable (expired token), not when it is invalid
	FailureAuth FailureType = "AUTH_FAILURE"
	// FailureNetworkTimeout indicates a network error or deadline expiry
	FailureNetworkTimeout FailureType = "NETWORK_TIMEOUT"
	// FailureBusinessLogic indicates the platform rejected the operation on
	// business grounds (e.g. order already shipped); never retried
	FailureBusinessLogic FailureType = "BUSINESS_LOGIC"
	// FailureServerError indicates a platform-side 5xx; recoverable
	FailureServerError FailureType = "SERVER_ERROR"
	// FailureCircuitOpen indicates the call was short-circuited by an open
	// breaker without any network I/O
	FailureCircuitOpen FailureType = "CIRCUIT_OPEN"
	// FailureValidation indicates the request failed fail-fast validation
	// before entering the retry pipeline
	FailureValidation FailureType = "VALIDATION"
	// FailureUnsupportedPlatform indicates the platform code is not one of
	// the supported marketplaces
	FailureUnsupportedPlatform FailureType = "UNSUPPORTED_PLATFORM"
	// FailureUnknown is the fallback classification
	FailureUnknown FailureType = "UNKNOWN"
)

// IsValid returns true if the failure type is valid
func (t FailureType) IsValid() bool {
	switch t {
	case FailureRateLimit, FailureAuth, FailureNetworkTimeout, FailureBusinessLogic,
		FailureServerError, FailureCircuitOpen, FailureValidation,
		FailureUnsupportedPlatform, FailureUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of FailureType
func (t FailureType) String() string {
	return string(t)
}

// ClassifiedError is a failure tagged with its classification. Adapters map
// platform response codes into classified errors; the retry engine and the
// circuit breaker base their decisions on the tag, never on raw error text.
type ClassifiedError struct {
	// Type is the failure classification
	Type FailureType
	// Recoverable indicates the failure may succeed on retry
	Recoverable bool
	// RetryAfter is the platform-provided backoff hint (zero when absent)
	RetryAfter time.Duration
	// Platform identifies the failing marketplace (empty for pre-pipeline failures)
	Platform PlatformCode
	// Code is the platform-specific error code, kept for DLQ pattern analysis
	Code string
	// Err is the underlying cause
	Err error
}

// Error implements the error interface
func (e *ClassifiedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s [%s/%s]: %v", e.Type, e.Platform, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Type, e.Err)
}

// Unwrap returns the underlying cause
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// NewClassifiedError creates a classified error with explicit recoverability
func NewClassifiedError(t FailureType, recoverable bool, err error) *ClassifiedError {
	return &ClassifiedError{Type: t, Recoverable: recoverable, Err: err}
}

// NewRateLimitError creates a RateLimit classification carrying the
// platform-provided retry-after hint
func NewRateLimitError(platform PlatformCode, retryAfter time.Duration, err error) *ClassifiedError {
	return &ClassifiedError{
		Type:        FailureRateLimit,
		Recoverable: true,
		RetryAfter:  retryAfter,
		Platform:    platform,
		Err:         err,
	}
}

// NewAuthError creates an AuthFailure classification. refreshable controls
// recoverability: an expired token can be refreshed and retried, invalid
// credentials cannot.
func NewAuthError(platform PlatformCode, refreshable bool, err error) *ClassifiedError {
	return &ClassifiedError{
		Type:        FailureAuth,
		Recoverable: refreshable,
		Platform:    platform,
		Err:         err,
	}
}

// Classify tags an arbitrary error. Already-classified errors pass through
// unchanged so no failure is classified twice; context and network errors map
// to NetworkTimeout, everything else to Unknown.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ClassifiedError{Type: FailureNetworkTimeout, Recoverable: true, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &ClassifiedError{Type: FailureNetworkTimeout, Recoverable: true, Err: err}
	}

	switch {
	case errors.Is(err, ErrUnsupportedPlatform), errors.Is(err, ErrPlatformNotConfigured):
		return &ClassifiedError{Type: FailureUnsupportedPlatform, Recoverable: false, Err: err}
	case errors.Is(err, ErrOrderInvalid), errors.Is(err, ErrOrderNegativeAmount),
		errors.Is(err, ErrInvalidTenantID), errors.Is(err, ErrInvalidChannelID):
		return &ClassifiedError{Type: FailureValidation, Recoverable: false, Err: err}
	case errors.Is(err, ErrOrderAlreadyShipped):
		return &ClassifiedError{Type: FailureBusinessLogic, Recoverable: false, Err: err}
	case errors.Is(err, ErrPlatformUnavailable):
		return &ClassifiedError{Type: FailureNetworkTimeout, Recoverable: true, Err: err}
	}

	return &ClassifiedError{Type: FailureUnknown, Recoverable: false, Err: err}
}

// IsRecoverable reports whether an error is worth retrying
func IsRecoverable(err error) bool {
	ce := Classify(err)
	return ce != nil && ce.Recoverable
}
