package netease

import (
	"errors"
	"fmt"
)

// ErrNoResults is returned by Search when the catalog has no matching songs.
var ErrNoResults = errors.New("no results")

// APIError represents a failed catalog request.
type APIError struct {
	Message    string
	StatusCode int // 0 when no HTTP response was received
	Original   error
}

func (e *APIError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Original != nil {
		return fmt.Sprintf("NetEase API error: %s: %v", msg, e.Original)
	}
	return fmt.Sprintf("NetEase API error: %s", msg)
}

func (e *APIError) Unwrap() error {
	return e.Original
}
