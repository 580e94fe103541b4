package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"lecturetube/internal/httputil"
	"lecturetube/internal/media"
	"lecturetube/internal/mimeext"
	"lecturetube/internal/timestamp"
)

// DefaultEndpoint is the episode search endpoint of the TU Wien Opencast installation.
const DefaultEndpoint = "https://oc-presentation.ltcc.tuwien.ac.at/search/episode.json"

// WatchURLPrefix is the watch page URL without the video ID.
const WatchURLPrefix = "https://oc-presentation.ltcc.tuwien.ac.at/paella/ui/watch.html?id="

var watchURLPattern = regexp.MustCompile(`^https?://oc-presentation\.ltcc\.tuwien\.ac\.at/paella/ui/watch\.html\?id=([0-9a-z-]+)`)

// unsupportedExts are delivery types listed in the metadata that the
// platform does not actually serve.
var unsupportedExts = map[string]bool{
	"f4m":  true,
	"m3u8": true,
	"mpd":  true,
	"ism":  true,
}

// LectureTube extracts recordings from TU Wien's LectureTube (Opencast + Paella).
type LectureTube struct {
	client   *http.Client
	endpoint string
	clock    clockwork.Clock
	log      logrus.FieldLogger
}

// Option configures a LectureTube extractor.
type Option func(*LectureTube)

// WithHTTPClient sets the client used for the metadata request.
func WithHTTPClient(c *http.Client) Option {
	return func(l *LectureTube) { l.client = c }
}

// WithEndpoint overrides the episode search endpoint.
func WithEndpoint(endpoint string) Option {
	return func(l *LectureTube) { l.endpoint = endpoint }
}

// WithClock sets the clock that produces the cache-busting query value.
func WithClock(c clockwork.Clock) Option {
	return func(l *LectureTube) { l.clock = c }
}

// WithLogger sets the logger for debug output.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *LectureTube) { l.log = log }
}

// NewLectureTube creates a new LectureTube extractor.
func NewLectureTube(opts ...Option) *LectureTube {
	l := &LectureTube{
		endpoint: DefaultEndpoint,
		clock:    clockwork.NewRealClock(),
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.client == nil {
		l.client = httputil.NewClient(0, "")
	}
	return l
}

// Name returns the extractor name.
func (l *LectureTube) Name() string {
	return "lecturetube"
}

// Suitable reports whether url is a LectureTube watch page.
func (l *LectureTube) Suitable(url string) bool {
	_, err := MatchID(url)
	return err == nil
}

// MatchID extracts the video ID from a watch page URL.
func MatchID(rawURL string) (media.VideoID, error) {
	m := watchURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", &NoMatchError{URL: rawURL}
	}
	return media.VideoID(m[1]), nil
}

// WatchURL returns the canonical watch page URL for id.
func WatchURL(id media.VideoID) string {
	return WatchURLPrefix + string(id)
}

// Extract resolves a watch page URL into its formats and metadata.
func (l *LectureTube) Extract(ctx context.Context, rawURL string) (*media.Result, error) {
	id, err := MatchID(rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := l.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	result := l.assemble(id, doc)
	result.WebpageURL = rawURL
	return result, nil
}

// Fetch retrieves the episode metadata document for id.
// The returned document is always a JSON object.
func (l *LectureTube) Fetch(ctx context.Context, id media.VideoID) (map[string]any, error) {
	if err := httputil.ValidateID(string(id)); err != nil {
		return nil, fmt.Errorf("invalid video ID: %w", err)
	}

	// The web player sends "_" to defeat caches; mirror it.
	reqURL, err := httputil.WithQuery(l.endpoint, url.Values{
		"id": {string(id)},
		"_":  {strconv.FormatInt(l.clock.Now().UnixMilli(), 10)},
	})
	if err != nil {
		return nil, &FetchError{VideoID: string(id), URL: l.endpoint, Err: err}
	}

	log := l.log.WithFields(logrus.Fields{"video_id": id, "url": reqURL})
	log.Debug("fetching episode metadata")

	body, err := httputil.GetJSON(ctx, l.client, reqURL)
	if err != nil {
		fe := &FetchError{VideoID: string(id), URL: reqURL, Err: err}
		var se *httputil.StatusError
		if errors.As(err, &se) {
			fe.StatusCode = se.StatusCode
		}
		log.WithError(err).Debug("metadata request failed")
		return nil, fe
	}

	doc, err := decodeObject(body)
	if err != nil {
		return nil, &ParseError{VideoID: string(id), Err: err}
	}
	return doc, nil
}

// decodeObject parses body as a single JSON object, keeping numbers exact.
func decodeObject(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON document")
	}

	obj, ok := v.(map[string]any)
	if !ok || obj == nil {
		return nil, fmt.Errorf("expected JSON object, got %s", jsonKind(v))
	}
	return obj, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// assemble merges package-level metadata with the normalized tracks.
func (l *LectureTube) assemble(id media.VideoID, doc map[string]any) *media.Result {
	result := lookupObject(doc, "search-results", "result")
	pkg := lookupObject(result, "mediapackage")

	res := &media.Result{
		ID:      id,
		Title:   firstNonEmpty(lookupString(result, "dcTitle"), lookupString(pkg, "title")),
		Creator: firstNonEmpty(lookupString(result, "dcCreator"), lookupString(pkg, "creators", "creator")),
		Series:  lookupString(pkg, "seriestitle"),
		Formats: l.normalizeTracks(id, lookup(pkg, "media", "track")),
	}

	if d, ok := lookupInt(pkg, "duration"); ok {
		res.Duration = &d
	}
	if ts := timestamp.Unified(lookupString(result, "dcCreated")); ts != nil {
		res.Timestamp = ts
		res.UploadDate = timestamp.UploadDate(*ts)
	}

	return res
}

// normalizeTracks converts the track field, which holds a single object
// for one-stream recordings and a list otherwise, into filtered formats.
func (l *LectureTube) normalizeTracks(id media.VideoID, track any) []media.Format {
	var tracks []any
	if list, ok := track.([]any); ok {
		tracks = list
	} else {
		tracks = []any{track}
	}

	formats := make([]media.Format, 0, len(tracks))
	for i, t := range tracks {
		f := trackFormat(t)
		if reason := unsupported(f); reason != "" {
			l.log.WithFields(logrus.Fields{
				"video_id": id,
				"track":    i,
				"url":      f.URL,
				"reason":   reason,
			}).Debug("skipping track")
			continue
		}
		formats = append(formats, f)
	}

	l.log.WithFields(logrus.Fields{
		"video_id": id,
		"tracks":   len(tracks),
		"formats":  len(formats),
	}).Debug("normalized tracks")

	return formats
}

// trackFormat maps one raw track to a format. Missing fields stay unset.
func trackFormat(track any) media.Format {
	f := media.Format{
		Ext:        mimeext.Ext(lookupString(track, "mimetype")),
		Resolution: lookupString(track, "video", "resolution"),
		URL:        lookupString(track, "url"),
	}
	if n, ok := lookupInt(track, "audio", "bitrate"); ok {
		f.AudioBitrate = intPtr(n / 1000)
	}
	if n, ok := lookupInt(track, "audio", "samplingrate"); ok {
		f.SampleRate = intPtr(n)
	}
	if n, ok := lookupInt(track, "size"); ok {
		f.FileSize = &n
	}
	if n, ok := lookupInt(track, "video", "framerate"); ok {
		f.FPS = intPtr(n)
	}
	if n, ok := lookupInt(track, "video", "bitrate"); ok {
		f.VideoBitrate = intPtr(n / 1000)
	}
	return f
}

// unsupported returns why f cannot be offered, or "" if it can.
// The rtmp check is a plain substring match on the URL.
func unsupported(f media.Format) string {
	switch {
	case f.URL == "":
		return "no url"
	case unsupportedExts[f.Ext]:
		return "unsupported container " + f.Ext
	case strings.Contains(f.URL, "rtmp"):
		return "rtmp stream"
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func intPtr(n int64) *int {
	v := int(n)
	return &v
}
