// Package extract resolves lecture watch URLs into playable formats and
// descriptive metadata by querying the platform's search endpoint.
package extract

import (
	"context"

	"lecturetube/internal/media"
)

// Extractor resolves a watch URL into a media.Result.
type Extractor interface {
	// Name identifies the extractor in logs and history.
	Name() string

	// Suitable reports whether url can be handled without any network access.
	Suitable(url string) bool

	// Extract fetches and normalizes the metadata for url.
	Extract(ctx context.Context, url string) (*media.Result, error)
}

// New returns the default extractor.
func New(opts ...Option) Extractor {
	return NewLectureTube(opts...)
}

// ForURL returns the first extractor suitable for url.
func ForURL(url string, opts ...Option) (Extractor, error) {
	for _, e := range []Extractor{NewLectureTube(opts...)} {
		if e.Suitable(url) {
			return e, nil
		}
	}
	return nil, &NoMatchError{URL: url}
}
