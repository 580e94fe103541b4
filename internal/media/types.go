// Package media defines shared types for the lecturetube application.
package media

// VideoID is the platform-assigned identifier of one media package
// (e.g., "085ec06c-a5fa-4ea9-9bf4-67dd749a6675").
type VideoID string

func (id VideoID) String() string {
	return string(id)
}

// Format is one playable stream variant of a recording.
// Pointer fields are nil when the source did not provide a value.
type Format struct {
	AudioBitrate *int   `json:"abr,omitempty"`        // kbps
	SampleRate   *int   `json:"asr,omitempty"`        // Hz
	Ext          string `json:"ext,omitempty"`        // e.g., "mp4"
	FileSize     *int64 `json:"filesize,omitempty"`   // bytes
	FPS          *int   `json:"fps,omitempty"`        // frames per second
	Resolution   string `json:"resolution,omitempty"` // e.g., "1280x720"
	URL          string `json:"url"`
	VideoBitrate *int   `json:"vbr,omitempty"` // kbps
}

// Result is the resolved description of one recording.
type Result struct {
	ID         VideoID  `json:"id"`
	Title      string   `json:"title,omitempty"`
	Creator    string   `json:"creator,omitempty"`
	Series     string   `json:"series,omitempty"`
	Duration   *int64   `json:"duration,omitempty"`  // raw value from the source, milliseconds in practice
	Timestamp  *int64   `json:"timestamp,omitempty"` // seconds since epoch
	UploadDate string   `json:"upload_date,omitempty"`
	WebpageURL string   `json:"webpage_url,omitempty"`
	Formats    []Format `json:"formats"`
}

// HistoryEntry is one recorded resolution.
type HistoryEntry struct {
	UUID        string  // Row identifier
	ID          VideoID // Resolved video
	Title       string
	Creator     string
	Series      string
	Timestamp   int64 // Recording timestamp, 0 if unknown
	FormatCount int
	ResolvedAt  int64 // Unix seconds
}
