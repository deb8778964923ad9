package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gndm/ytGateway/internal/config"
	"github.com/gndm/ytGateway/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validID = "dQw4w9WgXcQ"

type fakeResolver struct {
	info      *resolver.Info
	infoErr   error
	body      string
	streamErr error
	readErr   error

	gotLocator string
	gotKind    resolver.Kind
	closed     bool
}

func (f *fakeResolver) Validate(loc string) bool {
	return resolver.ValidID(strings.TrimPrefix(loc, "https://www.youtube.com/watch?v="))
}

func (f *fakeResolver) Info(_ context.Context, loc string) (*resolver.Info, error) {
	f.gotLocator = loc
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return f.info, nil
}

func (f *fakeResolver) Stream(_ context.Context, loc string, kind resolver.Kind) (io.ReadCloser, error) {
	f.gotLocator, f.gotKind = loc, kind
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return &fakeStream{r: strings.NewReader(f.body), err: f.readErr, onClose: func() { f.closed = true }}, nil
}

// fakeStream yields its body and then err (io.EOF when nil).
type fakeStream struct {
	r       io.Reader
	err     error
	onClose func()
}

func (s *fakeStream) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err == io.EOF && s.err != nil {
		return n, s.err
	}
	return n, err
}

func (s *fakeStream) Close() error {
	s.onClose()
	return nil
}

func testConfig() config.Config {
	return config.Config{Host: "127.0.0.1", Port: "0", CORSOrigins: []string{"*"}}
}

func newTestGateway(res resolver.Resolver) http.Handler {
	return NewGateway(testConfig(), res, nil).Handler()
}

func get(t *testing.T, h http.Handler, path string, rawURL string) *httptest.ResponseRecorder {
	t.Helper()
	target := path
	if rawURL != "" {
		target += "?url=" + url.QueryEscape(rawURL)
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func defaultInfo() *resolver.Info {
	return &resolver.Info{
		ID:    validID,
		Title: "Rick Astley - Never Gonna Give You Up",
		Thumbnails: []resolver.Thumbnail{
			{URL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/default.jpg"},
			{URL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/mqdefault.jpg"},
			{URL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg"},
		},
	}
}

func TestRoot(t *testing.T) {
	rec := get(t, newTestGateway(&fakeResolver{}), "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHealth(t *testing.T) {
	h := newTestGateway(&fakeResolver{})

	for _, target := range []string{"/health", "/health?url=whatever&x=1"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String(), target)
	}
}

func TestHeadProbes(t *testing.T) {
	h := newTestGateway(&fakeResolver{})

	for _, target := range []string{"/", "/health"} {
		req := httptest.NewRequest(http.MethodHead, target, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, target)
	}
}

func TestInvalidURL(t *testing.T) {
	inputs := []string{
		"",
		"not a url",
		"https://youtube.com/",
		"https://example.com/watch?v=" + validID,
		"//youtu.be/" + validID,
		"//www.youtube.com/watch?v=" + validID,
		"https://www.youtube.com/watch?v=ABC123", // rejected by the resolver
	}

	for _, path := range []string{"/info", "/mp3", "/mp4"} {
		for _, raw := range inputs {
			res := &fakeResolver{info: defaultInfo(), body: "bytes"}
			rec := get(t, newTestGateway(res), path, raw)

			assert.Equal(t, http.StatusBadRequest, rec.Code, "%s %q", path, raw)
			assert.Equal(t, msgInvalidURL, rec.Body.String(), "%s %q", path, raw)
			assert.Empty(t, res.gotLocator, "resolver called for %s %q", path, raw)
		}
	}
}

func TestInfo(t *testing.T) {
	res := &fakeResolver{info: defaultInfo()}
	rec := get(t, newTestGateway(res), "/info", "https://youtu.be/"+validID)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"title": "Rick Astley - Never Gonna Give You Up",
		"thumbnail": "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg"
	}`, rec.Body.String())
	assert.Equal(t, "https://www.youtube.com/watch?v="+validID, res.gotLocator)
}

func TestInfoWithoutThirdThumbnail(t *testing.T) {
	info := defaultInfo()
	info.Thumbnails = info.Thumbnails[:2]
	rec := get(t, newTestGateway(&fakeResolver{info: info}), "/info", "https://www.youtube.com/watch?v="+validID)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"title": "Rick Astley - Never Gonna Give You Up"}`, rec.Body.String())
}

func TestInfoResolverFailure(t *testing.T) {
	cause := resolver.Fail("info", resolver.ReasonRestricted, errors.New("secret upstream detail"))
	rec := get(t, newTestGateway(&fakeResolver{infoErr: cause}), "/info", "https://www.youtube.com/watch?v="+validID)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgInfoFailed, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestMP3(t *testing.T) {
	res := &fakeResolver{info: defaultInfo(), body: "ID3-audio-bytes"}
	rec := get(t, newTestGateway(res), "/mp3", "https://m.youtube.com/watch?v="+validID+"&t=42")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Rick Astley - Never Gonna Give You Up.mp3"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "ID3-audio-bytes", rec.Body.String())
	assert.Equal(t, resolver.KindAudio, res.gotKind)
	assert.Equal(t, "https://www.youtube.com/watch?v="+validID, res.gotLocator)
	assert.True(t, res.closed, "stream was not closed")
}

func TestMP4(t *testing.T) {
	info := defaultInfo()
	info.Title = "Test: Video! (2024)"
	res := &fakeResolver{info: info, body: "ftyp-video-bytes"}
	rec := get(t, newTestGateway(res), "/mp4", "https://www.youtube.com/watch?v="+validID)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Test Video 2024.mp4"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "ftyp-video-bytes", rec.Body.String())
	assert.Equal(t, resolver.KindAudioVideo, res.gotKind)
}

func TestStreamLargeBody(t *testing.T) {
	body := strings.Repeat("0123456789abcdef", 3*chunkSize/16+7)
	res := &fakeResolver{info: defaultInfo(), body: body}
	rec := get(t, newTestGateway(res), "/mp4", "https://www.youtube.com/watch?v="+validID)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestStreamFailures(t *testing.T) {
	upstream := resolver.Fail("stream", resolver.ReasonUpstream, errors.New("HTTP 403 from googlevideo"))

	tests := []struct {
		name    string
		path    string
		res     *fakeResolver
		wantMsg string
	}{
		{name: "mp3 info", path: "/mp3", res: &fakeResolver{infoErr: upstream}, wantMsg: msgAudioFailed},
		{name: "mp3 open", path: "/mp3", res: &fakeResolver{info: defaultInfo(), streamErr: upstream}, wantMsg: msgAudioFailed},
		{name: "mp3 first read", path: "/mp3", res: &fakeResolver{info: defaultInfo(), readErr: upstream}, wantMsg: msgAudioFailed},
		{name: "mp4 info", path: "/mp4", res: &fakeResolver{infoErr: upstream}, wantMsg: msgVideoFailed},
		{name: "mp4 open", path: "/mp4", res: &fakeResolver{info: defaultInfo(), streamErr: upstream}, wantMsg: msgVideoFailed},
		{name: "mp4 first read", path: "/mp4", res: &fakeResolver{info: defaultInfo(), readErr: upstream}, wantMsg: msgVideoFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, newTestGateway(tt.res), tt.path, "https://www.youtube.com/watch?v="+validID)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, tt.wantMsg, rec.Body.String())
			assert.Empty(t, rec.Header().Get("Content-Disposition"))
			assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
		})
	}
}

func TestStreamFailureAfterFirstByteAborts(t *testing.T) {
	res := &fakeResolver{
		info:    defaultInfo(),
		body:    "partial",
		readErr: resolver.Fail("stream", resolver.ReasonUpstream, errors.New("connection reset")),
	}
	h := newTestGateway(res)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/mp3?url="+url.QueryEscape("https://youtu.be/"+validID), nil)

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() { h.ServeHTTP(rec, req) })
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
	assert.True(t, res.closed, "stream was not closed")
}

func TestCORS(t *testing.T) {
	h := newTestGateway(&fakeResolver{info: defaultInfo()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://frontend.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
}

func TestRequestID(t *testing.T) {
	rec := get(t, newTestGateway(&fakeResolver{}), "/health", "")
	assert.Len(t, rec.Header().Get("X-Request-Id"), 36)
}

func TestWebUIMount(t *testing.T) {
	ui := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ui:" + r.URL.Path))
	})
	h := NewGateway(testConfig(), &fakeResolver{}, ui).Handler()

	rec := get(t, h, "/app/app.js", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ui:/app.js", rec.Body.String())

	rec = get(t, h, "/app", "")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/app/", rec.Header().Get("Location"))

	// Root keeps its empty 200 regardless of the UI.
	rec = get(t, h, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
