package tts

import (
	"errors"
	"fmt"
)

// ErrTimeout is wrapped by ProviderError when the provider does not start
// responding within the configured timeout.
var ErrTimeout = errors.New("tts request timed out")

// ProviderError reports a failed synthesis request: a transport failure,
// a non-success status, or an error payload from the provider.
type ProviderError struct {
	Status int    // HTTP status, 0 for transport failures
	Body   string // provider error payload, if any
	Err    error  // transport error, if any
}

func (e *ProviderError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("tts provider: %v", e.Err)
	case e.Body != "":
		return fmt.Sprintf("tts provider: status %d: %s", e.Status, e.Body)
	default:
		return fmt.Sprintf("tts provider: status %d", e.Status)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// StatusCode lets the rate limiter classify the failure.
func (e *ProviderError) StatusCode() int { return e.Status }
