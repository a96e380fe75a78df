package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks missing credentials or an invalid watermark.
	ErrConfiguration = errors.New("configuration error")
	// ErrFetch marks transport and HTTP-layer failures of the status API.
	ErrFetch = errors.New("fetch error")
	// ErrMalformedRecord marks a submission missing required fields.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrUnclassified marks anything else that broke a poll cycle.
	ErrUnclassified = errors.New("unclassified error")
)

// FetchError carries the cause of a failed status fetch.
// StatusCode is zero when no HTTP response was received.
type FetchError struct {
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch error: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

// Kind returns the taxonomy name of err for logging.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrFetch):
		return "fetch"
	case errors.Is(err, ErrMalformedRecord):
		return "malformed_record"
	default:
		return "unclassified"
	}
}
