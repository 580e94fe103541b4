package extract

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lecturetube/internal/httputil"
	"lecturetube/internal/media"
)

const (
	bunnyID  = "085ec06c-a5fa-4ea9-9bf4-67dd749a6675"
	bunnyURL = "https://oc-presentation.ltcc.tuwien.ac.at/paella/ui/watch.html?id=" + bunnyID
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 123_000_000, time.UTC)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// lastRequest records the URL of the most recent request a test server saw.
type lastRequest struct {
	mu  sync.Mutex
	url url.URL
}

func (l *lastRequest) URL() url.URL {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.url
}

// newTestExtractor serves body from a TLS test server posing as the
// episode endpoint.
func newTestExtractor(t *testing.T, status int, body string) (*LectureTube, *lastRequest) {
	t.Helper()
	last := &lastRequest{}
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last.mu.Lock()
		last.url = *r.URL
		last.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	l := NewLectureTube(
		WithHTTPClient(srv.Client()),
		WithEndpoint(srv.URL+"/search/episode.json"),
		WithClock(clockwork.NewFakeClockAt(fixedNow)),
		WithLogger(quietLogger()),
	)
	return l, last
}

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err, "reading fixture %s", name)
	return string(data)
}

func intp(n int) *int       { return &n }
func int64p(n int64) *int64 { return &n }

func TestMatchID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantID  media.VideoID
		wantErr bool
	}{
		{"https watch page", bunnyURL, bunnyID, false},
		{"http watch page", "http://oc-presentation.ltcc.tuwien.ac.at/paella/ui/watch.html?id=32822249-06b9-480e-bc64-05c2c2351ddc", "32822249-06b9-480e-bc64-05c2c2351ddc", false},
		{"trailing parameters", bunnyURL + "&time=120", bunnyID, false},
		{"upper case id stops capture", "https://oc-presentation.ltcc.tuwien.ac.at/paella/ui/watch.html?id=abcDEF", "abc", false},
		{"other host", "https://example.com/paella/ui/watch.html?id=" + bunnyID, "", true},
		{"other path", "https://oc-presentation.ltcc.tuwien.ac.at/engage/ui/watch.html?id=" + bunnyID, "", true},
		{"missing id", "https://oc-presentation.ltcc.tuwien.ac.at/paella/ui/watch.html?id=", "", true},
		{"ftp scheme", "ftp://oc-presentation.ltcc.tuwien.ac.at/paella/ui/watch.html?id=" + bunnyID, "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := MatchID(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrNoMatch)
				var nm *NoMatchError
				require.True(t, errors.As(err, &nm))
				assert.Equal(t, tt.url, nm.URL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestWatchURLRoundTrip(t *testing.T) {
	assert.Equal(t, bunnyURL, WatchURL(bunnyID))
	id, err := MatchID(WatchURL(bunnyID))
	require.NoError(t, err)
	assert.Equal(t, media.VideoID(bunnyID), id)
}

func TestSuitable(t *testing.T) {
	l := NewLectureTube(WithLogger(quietLogger()))
	assert.True(t, l.Suitable(bunnyURL))
	assert.False(t, l.Suitable("https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	assert.Equal(t, "lecturetube", l.Name())
}

func TestForURL(t *testing.T) {
	e, err := ForURL(bunnyURL)
	require.NoError(t, err)
	assert.Equal(t, "lecturetube", e.Name())

	_, err = ForURL("https://example.com/")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestExtractBunny(t *testing.T) {
	l, req := newTestExtractor(t, http.StatusOK, loadFixture(t, "episode_bunny.json"))

	res, err := l.Extract(context.Background(), bunnyURL)
	require.NoError(t, err)

	u := req.URL()
	assert.Equal(t, "/search/episode.json", u.Path)
	assert.Equal(t, bunnyID, u.Query().Get("id"))
	assert.Equal(t, "1709294400123", u.Query().Get("_"))

	assert.Equal(t, media.VideoID(bunnyID), res.ID)
	assert.Equal(t, "Big Buck Bunny", res.Title)
	assert.Equal(t, "Bunny", res.Creator)
	assert.Equal(t, "Testvideos public", res.Series)
	assert.Equal(t, int64p(634560), res.Duration)
	assert.Equal(t, int64p(1605909826), res.Timestamp)
	assert.Equal(t, "20201120", res.UploadDate)
	assert.Equal(t, bunnyURL, res.WebpageURL)

	base := "https://oc-presentation.ltcc.tuwien.ac.at/static/mh_default_org/engage-player/" + bunnyID + "/"
	file := "/2020_11_20_23_03___Big_Buck_Bunny___Bunny__presenter__OC_Studio_.mp4"
	want := []media.Format{
		{
			AudioBitrate: intp(64), SampleRate: intp(48000), Ext: "mp4", FPS: intp(25),
			Resolution: "640x360", VideoBitrate: intp(741),
			URL: base + "94a00187-42ee-4bc2-91e6-e693f7522cb5" + file,
		},
		{
			AudioBitrate: intp(129), SampleRate: intp(48000), Ext: "mp4", FPS: intp(25),
			Resolution: "1280x720", VideoBitrate: intp(1791),
			URL: base + "e19f412f-003b-4336-91d9-1cc51e6ed585" + file,
		},
		{
			AudioBitrate: intp(129), SampleRate: intp(48000), Ext: "mp4", FPS: intp(25),
			Resolution: "1920x1080", VideoBitrate: intp(3363), FileSize: int64p(276543210),
			URL: base + "2c5f91e6-838b-46a1-a296-53d612f8fb5a" + file,
		},
	}
	assert.Equal(t, want, res.Formats)
}

func TestExtractSingleTrackObject(t *testing.T) {
	l, _ := newTestExtractor(t, http.StatusOK, loadFixture(t, "episode_single.json"))

	res, err := l.Extract(context.Background(), "https://oc-presentation.ltcc.tuwien.ac.at/paella/ui/watch.html?id=32822249-06b9-480e-bc64-05c2c2351ddc")
	require.NoError(t, err)

	assert.Equal(t, "Lehrangebot Architektur WS2021", res.Title)
	assert.Equal(t, "Diverse", res.Creator)
	assert.Equal(t, `0 Diverse Events ("public")`, res.Series)
	assert.Equal(t, int64p(33455839), res.Duration)
	assert.Equal(t, int64p(1631685600), res.Timestamp)
	assert.Equal(t, "20210915", res.UploadDate)

	require.Len(t, res.Formats, 1)
	f := res.Formats[0]
	assert.Equal(t, "mp4", f.Ext)
	assert.Equal(t, intp(128), f.AudioBitrate, "fractional bitrate truncates")
	assert.Equal(t, intp(44100), f.SampleRate)
	assert.Equal(t, intp(1500), f.VideoBitrate)
	assert.Equal(t, intp(30), f.FPS)
	assert.Nil(t, f.FileSize)
}

func TestTrackObjectAndListAreEquivalent(t *testing.T) {
	track := `{"mimetype":"video/mp4","url":"https://cdn.example/a.mp4","size":1024,
		"audio":{"bitrate":96000,"samplingrate":48000},
		"video":{"bitrate":741999,"framerate":25,"resolution":"640x360"}}`
	wrap := func(tr string) string {
		return `{"search-results":{"result":{"mediapackage":{"media":{"track":` + tr + `}}}}}`
	}

	single, _ := newTestExtractor(t, http.StatusOK, wrap(track))
	list, _ := newTestExtractor(t, http.StatusOK, wrap("["+track+"]"))

	a, err := single.Extract(context.Background(), bunnyURL)
	require.NoError(t, err)
	b, err := list.Extract(context.Background(), bunnyURL)
	require.NoError(t, err)

	require.Len(t, a.Formats, 1)
	assert.Equal(t, a.Formats, b.Formats)
	assert.Equal(t, intp(741), a.Formats[0].VideoBitrate)
	assert.Equal(t, int64p(1024), a.Formats[0].FileSize)
}

func TestExtractMissingTracks(t *testing.T) {
	l, _ := newTestExtractor(t, http.StatusOK, loadFixture(t, "episode_no_tracks.json"))

	res, err := l.Extract(context.Background(), bunnyURL)
	require.NoError(t, err)

	assert.NotNil(t, res.Formats)
	assert.Empty(t, res.Formats)
	assert.Equal(t, "Einführung in die Programmierung", res.Title, "dcTitle wins over mediapackage title")
	assert.Equal(t, "Puntigam", res.Creator, "empty dcCreator falls back to creators.creator")
	assert.Nil(t, res.Timestamp)
	assert.Empty(t, res.UploadDate)
}

func TestExtractEmptyDocument(t *testing.T) {
	for _, body := range []string{
		`{}`,
		`{"search-results":null}`,
		`{"search-results":{"result":[]}}`,
		`{"search-results":{"result":{"mediapackage":"oops"}}}`,
	} {
		l, _ := newTestExtractor(t, http.StatusOK, body)
		res, err := l.Extract(context.Background(), bunnyURL)
		require.NoError(t, err, "body %s", body)
		assert.Equal(t, media.VideoID(bunnyID), res.ID)
		assert.Empty(t, res.Formats)
		assert.Empty(t, res.Title)
		assert.Nil(t, res.Duration)
	}
}

func TestTitleAndCreatorPrecedence(t *testing.T) {
	body := `{"search-results":{"result":{
		"dcTitle":"Lecture 3: Graphs","dcCreator":"Prof. A",
		"mediapackage":{"title":"VO 3","creators":{"creator":"Someone Else"}}}}}`
	l, _ := newTestExtractor(t, http.StatusOK, body)

	res, err := l.Extract(context.Background(), bunnyURL)
	require.NoError(t, err)
	assert.Equal(t, "Lecture 3: Graphs", res.Title)
	assert.Equal(t, "Prof. A", res.Creator)
}

func TestCreatorListIsAbsent(t *testing.T) {
	body := `{"search-results":{"result":{"mediapackage":{"creators":{"creator":["A","B"]}}}}}`
	l, _ := newTestExtractor(t, http.StatusOK, body)

	res, err := l.Extract(context.Background(), bunnyURL)
	require.NoError(t, err)
	assert.Empty(t, res.Creator)
}

func TestUnsupportedTracksAreDropped(t *testing.T) {
	tests := []struct {
		name  string
		track string
	}{
		{"hls", `{"mimetype":"application/vnd.apple.mpegurl","url":"https://cdn.example/master.m3u8"}`},
		{"dash", `{"mimetype":"application/dash+xml","url":"https://cdn.example/manifest.mpd"}`},
		{"hds", `{"mimetype":"application/f4m+xml","url":"https://cdn.example/manifest.f4m"}`},
		{"smooth", `{"mimetype":"application/vnd.ms-sstr+xml","url":"https://cdn.example/Manifest"}`},
		{"rtmp scheme", `{"mimetype":"video/mp4","url":"rtmp://cdn.example/vod/mp4:a.mp4"}`},
		{"rtmp in path", `{"mimetype":"video/mp4","url":"https://cdn.example/rtmp/a.mp4"}`},
		{"no url", `{"mimetype":"video/mp4"}`},
		{"null track", `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"search-results":{"result":{"mediapackage":{"media":{"track":[` + tt.track +
				`,{"mimetype":"video/mp4","url":"https://cdn.example/keep.mp4"}]}}}}}`
			l, _ := newTestExtractor(t, http.StatusOK, body)

			res, err := l.Extract(context.Background(), bunnyURL)
			require.NoError(t, err)
			require.Len(t, res.Formats, 1)
			assert.Equal(t, "https://cdn.example/keep.mp4", res.Formats[0].URL)
		})
	}
}

func TestRTMPMatchIsCaseSensitive(t *testing.T) {
	body := `{"search-results":{"result":{"mediapackage":{"media":{"track":
		{"mimetype":"video/mp4","url":"https://cdn.example/RTMP/a.mp4"}}}}}}`
	l, _ := newTestExtractor(t, http.StatusOK, body)

	res, err := l.Extract(context.Background(), bunnyURL)
	require.NoError(t, err)
	assert.Len(t, res.Formats, 1)
}

func TestNonNumericFieldsAreAbsent(t *testing.T) {
	body := `{"search-results":{"result":{"mediapackage":{"duration":"long","media":{"track":
		{"mimetype":"video/mp4","url":"https://cdn.example/a.mp4","size":"big",
		 "audio":{"bitrate":"high","samplingrate":true},
		 "video":{"bitrate":null,"framerate":"25","resolution":720}}}}}}}`
	l, _ := newTestExtractor(t, http.StatusOK, body)

	res, err := l.Extract(context.Background(), bunnyURL)
	require.NoError(t, err)
	require.Len(t, res.Formats, 1)

	f := res.Formats[0]
	assert.Nil(t, f.AudioBitrate)
	assert.Nil(t, f.SampleRate)
	assert.Nil(t, f.VideoBitrate)
	assert.Nil(t, f.FPS)
	assert.Nil(t, f.FileSize)
	assert.Empty(t, f.Resolution)
	assert.Nil(t, res.Duration)
}

func TestNumericStringsAreAbsent(t *testing.T) {
	body := `{"search-results":{"result":{"mediapackage":{"duration":"634560","media":{"track":
		{"mimetype":"video/mp4","url":"https://cdn.example/a.mp4","size":"123"}}}}}}`
	l, _ := newTestExtractor(t, http.StatusOK, body)

	res, err := l.Extract(context.Background(), bunnyURL)
	require.NoError(t, err)
	require.Len(t, res.Formats, 1)
	assert.Nil(t, res.Formats[0].FileSize)
	assert.Nil(t, res.Duration)
}

func TestExtractNoMatchMakesNoRequest(t *testing.T) {
	called := false
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	l := NewLectureTube(WithHTTPClient(srv.Client()), WithEndpoint(srv.URL), WithLogger(quietLogger()))
	_, err := l.Extract(context.Background(), "https://example.com/watch?id=abc")

	assert.ErrorIs(t, err, ErrNoMatch)
	assert.False(t, called)
}

func TestExtractHTTPStatusError(t *testing.T) {
	l, _ := newTestExtractor(t, http.StatusServiceUnavailable, `{"error":"maintenance"}`)

	_, err := l.Extract(context.Background(), bunnyURL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusServiceUnavailable, fe.StatusCode)
	assert.Equal(t, bunnyID, fe.VideoID)
	assert.Contains(t, err.Error(), "HTTP 503")
}

func TestExtractOversizedBodyIsFetchError(t *testing.T) {
	l, _ := newTestExtractor(t, http.StatusOK, `{"pad":"`+strings.Repeat("x", 11<<20)+`"}`)

	_, err := l.Extract(context.Background(), bunnyURL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, httputil.ErrTooLarge)
	assert.NotErrorIs(t, err, ErrParse)
}

func TestExtractTransportError(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := srv.Client()
	endpoint := srv.URL + "/search/episode.json"
	srv.Close()

	l := NewLectureTube(WithHTTPClient(client), WithEndpoint(endpoint), WithLogger(quietLogger()))
	_, err := l.Extract(context.Background(), bunnyURL)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Zero(t, fe.StatusCode)
}

func TestExtractParseErrors(t *testing.T) {
	for name, body := range map[string]string{
		"not json":      `<html>maintenance</html>`,
		"truncated":     `{"search-results":`,
		"array":         `[{"search-results":{}}]`,
		"string":        `"hello"`,
		"null":          `null`,
		"trailing data": `{} {}`,
	} {
		t.Run(name, func(t *testing.T) {
			l, _ := newTestExtractor(t, http.StatusOK, body)
			_, err := l.Extract(context.Background(), bunnyURL)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrParse)
			assert.NotErrorIs(t, err, ErrFetch)
		})
	}
}

func TestFetchCacheBusterFollowsClock(t *testing.T) {
	var got []string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.URL.Query().Get("_"))
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	clock := clockwork.NewFakeClockAt(fixedNow)
	l := NewLectureTube(WithHTTPClient(srv.Client()), WithEndpoint(srv.URL), WithClock(clock), WithLogger(quietLogger()))

	_, err := l.Fetch(context.Background(), bunnyID)
	require.NoError(t, err)
	clock.Advance(1500 * time.Millisecond)
	_, err = l.Fetch(context.Background(), bunnyID)
	require.NoError(t, err)

	assert.Equal(t, []string{"1709294400123", "1709294401623"}, got)
}

func TestFetchRejectsInvalidID(t *testing.T) {
	l := NewLectureTube(WithLogger(quietLogger()))
	_, err := l.Fetch(context.Background(), "../admin")
	assert.Error(t, err)
}
