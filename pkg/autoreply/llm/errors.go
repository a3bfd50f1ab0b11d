package llm

import (
	"errors"
	"fmt"
)

// ErrNoCredential marks a missing API key. The orchestrator maps it to a
// user-facing apology, never a crash.
var ErrNoCredential = errors.New("llm: API key not configured")

// ProviderError is a failed provider call. Transient errors (network, 5xx)
// are retried before one of these surfaces; terminal errors (4xx) surface
// immediately.
type ProviderError struct {
	// Code is the HTTP status, or 0 for transport-level failures.
	Code int

	// Message is a readable provider message, never a raw body dump.
	Message string

	// Transient marks errors that were retryable.
	Transient bool

	// Attempts is how many attempts were made before giving up.
	Attempts int
}

func (e *ProviderError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("llm: provider unreachable after %d attempts: %s", e.Attempts, e.Message)
	}
	return fmt.Sprintf("llm: provider returned %d: %s", e.Code, e.Message)
}

// IsTransient reports whether err is a retryable provider failure.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}
