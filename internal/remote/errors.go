package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedResponse is returned when a body is empty or not JSON
	// where the operation requires a JSON result.
	ErrMalformedResponse = errors.New("remote: malformed response")
	// ErrMissingID is returned when a send response carries no message id.
	ErrMissingID = errors.New("remote: response has no message id")
)

// APIError is a failure reported by the backend, either as success:false
// or as a non-2xx status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: request failed (status %d)", e.Status)
	}
	return "remote: " + e.Message
}

// UserMessage returns the server message, or fallback when there is none.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
