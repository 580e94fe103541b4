// Package timestamp normalizes the date strings found in platform
// metadata into Unix timestamps.
package timestamp

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// layouts are tried before falling back to format detection.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	time.RFC1123Z,
	time.RFC1123,
}

// Unified parses s and returns seconds since the epoch, or nil when s is
// empty or not a recognizable date. Values without a zone are UTC.
func Unified(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts := t.Unix()
			return &ts
		}
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return nil
	}
	ts := t.Unix()
	return &ts
}

// UploadDate formats a Unix timestamp as YYYYMMDD in UTC.
func UploadDate(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("20060102")
}
