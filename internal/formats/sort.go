// Package formats ranks resolved stream variants for selection.
package formats

import (
	"sort"
	"strconv"
	"strings"

	"lecturetube/internal/media"
)

// Sort orders formats from worst to best: Resolution -> Video bitrate ->
// Audio bitrate -> FPS -> File size. Equal formats keep their source order.
func Sort(fs []media.Format) {
	sort.SliceStable(fs, func(i, j int) bool {
		return less(fs[i], fs[j])
	})
}

// Best returns the highest ranked format.
func Best(fs []media.Format) (media.Format, bool) {
	if len(fs) == 0 {
		return media.Format{}, false
	}
	sorted := make([]media.Format, len(fs))
	copy(sorted, fs)
	Sort(sorted)
	return sorted[len(sorted)-1], true
}

// Height parses the height out of a "WIDTHxHEIGHT" resolution string.
// Returns 0 when the resolution is missing or malformed.
func Height(resolution string) int {
	_, h, found := strings.Cut(strings.ToLower(resolution), "x")
	if !found {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func less(a, b media.Format) bool {
	if ha, hb := Height(a.Resolution), Height(b.Resolution); ha != hb {
		return ha < hb
	}
	if va, vb := intOr(a.VideoBitrate), intOr(b.VideoBitrate); va != vb {
		return va < vb
	}
	if aa, ab := intOr(a.AudioBitrate), intOr(b.AudioBitrate); aa != ab {
		return aa < ab
	}
	if fa, fb := intOr(a.FPS), intOr(b.FPS); fa != fb {
		return fa < fb
	}
	return int64Or(a.FileSize) < int64Or(b.FileSize)
}

func intOr(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func int64Or(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
