// Typed gateway errors. Configuration problems (ErrMissingAPIKey) are
// detected before any network I/O; transport and service failures
// surface as ModelServiceError; a well-formed but empty reply surfaces
// as NoCandidateError. None of these are retried here. Retry policy,
// if any, belongs to the caller.
package llm

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey indicates the gateway was asked to send a request
// without a configured credential. Callers should treat this as fatal
// and report the assistant as unavailable rather than proceeding with
// an unauthenticated call.
var ErrMissingAPIKey = errors.New("gemini API key not configured")

// NoCandidateError indicates the service answered 200 but the response
// carried no usable candidate. Returning an empty reply silently would
// mask provider-side filtering, so this is a hard error.
type NoCandidateError struct {
	FinishReason string
}

// Error implements the error interface.
func (e *NoCandidateError) Error() string {
	if e.FinishReason != "" {
		return fmt.Sprintf("model returned no candidates (finish reason %s)", e.FinishReason)
	}
	return "model returned no candidates"
}

// ModelServiceError carries an error reported by the model service
// itself: a non-2xx status, or an error object embedded in the body.
type ModelServiceError struct {
	StatusCode int
	Status     string
	Message    string
}

// Error implements the error interface.
func (e *ModelServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("model service error %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("model service error %d (%s)", e.StatusCode, e.Status)
}
