package ai

import (
	"errors"
	"fmt"
)

// Provider failures are decoded into these sentinels at the adapter
// boundary; downstream code classifies with errors.Is and never inspects
// raw provider payloads.
var (
	ErrPermissionDenied  = errors.New("provider permission denied")
	ErrQuotaExhausted    = errors.New("provider quota exhausted")
	ErrRateLimited       = errors.New("provider rate limited")
	ErrOverloaded        = errors.New("provider overloaded")
	ErrInvalidRequest    = errors.New("invalid provider request")
	ErrMalformedResponse = errors.New("malformed provider response")
	ErrStageFailed       = errors.New("file staging failed")
	ErrFileNotReady      = errors.New("staged file never became active")
	ErrUnsupported       = errors.New("operation not supported by provider")
)

// ExhaustedError reports that every credential in the pool failed a remote
// call. Last carries the final underlying error for the caller to observe.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d credentials exhausted: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Rotatable reports whether retrying with a different credential is
// expected to help. Invalid-request class errors are programmer errors and
// abort rotation; everything else (including unclassified transport
// failures) keeps trying, matching the provider's failover guidance.
func Rotatable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrUnsupported):
		return false
	default:
		return true
	}
}
