// Package mimeext maps MIME types reported by media servers to file
// extensions.
package mimeext

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// streaming covers manifest and media types that the generic MIME
// database either lacks or maps to a different extension than players use.
var streaming = map[string]string{
	"application/x-mpegurl":         "m3u8",
	"application/vnd.apple.mpegurl": "m3u8",
	"audio/mpegurl":                 "m3u8",
	"audio/x-mpegurl":               "m3u8",
	"application/dash+xml":          "mpd",
	"application/f4m+xml":           "f4m",
	"application/f4m":               "f4m",
	"application/vnd.ms-sstr+xml":   "ism",
	"video/mp4":                     "mp4",
	"video/x-m4v":                   "m4v",
	"audio/mp4":                     "m4a",
	"audio/x-m4a":                   "m4a",
	"audio/mpeg":                    "mp3",
	"audio/mp3":                     "mp3",
	"video/webm":                    "webm",
	"audio/webm":                    "weba",
	"video/x-flv":                   "flv",
	"video/quicktime":               "mov",
	"video/x-matroska":              "mkv",
	"audio/x-matroska":              "mka",
	"video/mp2t":                    "ts",
	"audio/ogg":                     "ogg",
	"video/ogg":                     "ogv",
	"audio/wav":                     "wav",
	"audio/x-wav":                   "wav",
	"audio/wave":                    "wav",
	"text/vtt":                      "vtt",
	"application/ttml+xml":          "ttml",
	"application/x-subrip":          "srt",
	"image/jpeg":                    "jpg",
	"image/png":                     "png",
}

// Ext returns the extension (without dot) for a MIME type.
// Parameters such as codecs are ignored. Unknown types fall back to
// their subtype, so an empty result only means the input was empty.
func Ext(mimeType string) string {
	mt := normalize(mimeType)
	if mt == "" {
		return ""
	}

	if ext, ok := streaming[mt]; ok {
		return ext
	}

	if m := mimetype.Lookup(mt); m != nil {
		if ext := strings.TrimPrefix(m.Extension(), "."); ext != "" {
			return ext
		}
	}

	_, sub, found := strings.Cut(mt, "/")
	if !found {
		return ""
	}
	sub = strings.TrimPrefix(sub, "x-")
	if i := strings.IndexByte(sub, '+'); i > 0 {
		sub = sub[:i]
	}
	return sub
}

func normalize(mimeType string) string {
	mt, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
