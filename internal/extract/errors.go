package extract

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks against the typed errors below.
var (
	ErrNoMatch = errors.New("unsupported URL")
	ErrFetch   = errors.New("fetch failed")
	ErrParse   = errors.New("malformed metadata")
)

// NoMatchError is returned when an input URL is not a watch page any
// extractor understands. No request has been made.
type NoMatchError struct {
	URL string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("unsupported URL: %q", e.URL)
}

func (e *NoMatchError) Is(target error) bool { return target == ErrNoMatch }

// FetchError reports a transport failure or a non-2xx response from the
// metadata endpoint. StatusCode is 0 when no response was received.
type FetchError struct {
	VideoID    string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching metadata for %s: HTTP %d", e.VideoID, e.StatusCode)
	}
	return fmt.Sprintf("fetching metadata for %s: %v", e.VideoID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// ParseError reports a response body that is not a JSON object.
type ParseError struct {
	VideoID string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing metadata for %s: %v", e.VideoID, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }
