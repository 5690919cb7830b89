package entity

import (
	"errors"
	"fmt"
)

// UpstreamError is returned when a balance, price or messaging API answers with a non-retryable status.
type UpstreamError struct {
	Source     string
	URL        string
	StatusCode int
	Body       string
	// Fatal marks authorization and quota failures that must stop the polling loop.
	Fatal bool
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s request to %s failed with status %d: %s", e.Source, e.URL, e.StatusCode, e.Body)
}

// IsFatal reports whether err wraps an UpstreamError marked fatal.
func IsFatal(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream) && upstream.Fatal
}
