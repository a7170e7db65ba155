package solgate

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrNoProviders         = errors.New("solgate: no eligible providers")
	ErrOverQuota           = errors.New("solgate: provider over monthly quota")
	ErrCircuitOpen         = errors.New("solgate: provider circuit open")
	ErrRateLimited         = errors.New("solgate: rate limited")
	ErrAuthFailed          = errors.New("solgate: authentication failed")
	ErrInvalidPayload      = errors.New("solgate: invalid payload")
	ErrProviderUnavailable = errors.New("solgate: provider unavailable")
	ErrAllProvidersFailed  = errors.New("solgate: all providers failed")
	ErrDownstreamTimeout   = errors.New("solgate: downstream target timed out")
)

// GatewayError wraps an error with routing context.
type GatewayError struct {
	Err      error
	Provider string
	Method   string
	Attempts int
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("solgate: provider=%s method=%s attempts=%d: %v",
		e.Provider, e.Method, e.Attempts, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the error should abort the cascade instead of
// advancing to the next provider.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrInvalidPayload)
}

// IsRetryable reports whether the error can be retried against the same
// or another provider.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrOverQuota)
}
