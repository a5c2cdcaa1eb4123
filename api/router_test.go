package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/vidtrack/collector"
	"github.com/use-agent/vidtrack/config"
	"github.com/use-agent/vidtrack/download"
	"github.com/use-agent/vidtrack/models"
	"github.com/use-agent/vidtrack/profile"
	"github.com/use-agent/vidtrack/session"
	"github.com/use-agent/vidtrack/watcher"
)

// staticPage never changes and never scrolls anywhere.
type staticPage struct {
	*collector.DocumentSource
	sig *watcher.Signal
}

func (p *staticPage) Subscribe(context.Context) (<-chan struct{}, func() error, error) {
	return p.sig.C(), func() error { return nil }, nil
}

func (p *staticPage) ScrollBy(context.Context, float64) (float64, error) { return 0, nil }

const feedHTML = `<body>
<video src="https://cdn.x/a.mp4"></video>
<video src="blob:https://x/1"></video>
<div data-url="https://cdn.x/b.mp4?sig=1"></div>
</body>`

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Server.Mode = gin.TestMode
	cfg.RateLimit.RequestsPerSecond = 1000
	cfg.RateLimit.Burst = 1000
	return cfg
}

func newSession(t *testing.T, name string) (*session.Session, string) {
	t.Helper()
	src, err := collector.NewDocumentSource(strings.NewReader(feedHTML))
	require.NoError(t, err)
	p := profile.Builtin()[name]
	p.ScrollDelay = time.Hour

	dir := t.TempDir()
	s := session.New(p, &staticPage{DocumentSource: src, sig: watcher.NewSignal()}, session.Options{OutputDir: dir})
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _, _ = s.Stop() })
	return s, dir
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionRoutes(t *testing.T) {
	s, dir := newSession(t, "facebook-v2")
	r := NewRouter(context.Background(), testConfig(), Deps{Session: s, StartTime: time.Now()})

	w := serve(r, http.MethodGet, "/api/v1/session", "")
	require.Equal(t, http.StatusOK, w.Code)
	var st models.SessionStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, models.StateActive, st.State)
	assert.Equal(t, 2, st.Count)
	assert.Equal(t, "video_links.txt", st.File)

	w = serve(r, http.MethodGet, "/api/v1/session/links", "")
	assert.Equal(t, "https://cdn.x/a.mp4\nhttps://cdn.x/b.mp4?sig=1", w.Body.String())

	w = serve(r, http.MethodPost, "/api/v1/session/stop-scroll", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodPost, "/api/v1/session/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stop models.StopResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stop))
	assert.True(t, stop.Success)
	assert.Equal(t, 2, stop.Count)

	data, err := os.ReadFile(stop.Path)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.x/a.mp4\nhttps://cdn.x/b.mp4?sig=1", string(data))
	assert.Contains(t, stop.Path, dir)

	// Second stop re-exports the same set.
	w = serve(r, http.MethodPost, "/api/v1/session/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)

	w = serve(r, http.MethodGet, "/api/v1/health", "")
	assert.Contains(t, w.Body.String(), `"status":"stopped"`)
}

func TestStopScroll_NotSupported(t *testing.T) {
	s, _ := newSession(t, "instagram-v2")
	r := NewRouter(context.Background(), testConfig(), Deps{Session: s, StartTime: time.Now()})

	w := serve(r, http.MethodPost, "/api/v1/session/stop-scroll", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeNotSupported)
}

func TestNoSession(t *testing.T) {
	r := NewRouter(context.Background(), testConfig(), Deps{StartTime: time.Now()})

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/v1/session", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodPost, "/api/v1/session/stop", "").Code)

	w := serve(r, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestAuthProtectsSession(t *testing.T) {
	s, _ := newSession(t, "facebook")
	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{"secret"}
	r := NewRouter(context.Background(), cfg, Deps{Session: s, StartTime: time.Now()})

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/session", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/health", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDownloadRoutes(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "v.mp4", time.Time{}, strings.NewReader("video-bytes"))
	}))
	defer media.Close()

	cfg := testConfig()
	cfg.Download.Dir = t.TempDir()
	cfg.Download.RequestsPerSecond = 0
	cfg.Download.SettingsFile = ""
	dl, err := download.New(cfg.Download, http.DefaultClient)
	require.NoError(t, err)
	defer dl.Close()

	r := NewRouter(context.Background(), cfg, Deps{Downloads: dl, StartTime: time.Now()})

	w := serve(r, http.MethodPost, "/api/v1/downloads", `{"url":"ftp://x/a.mp4"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodPost, "/api/v1/downloads", `{"urls":["`+media.URL+`/a.mp4","nope"]}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var resp models.DownloadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.TaskIDs, 1)
	dl.Wait()

	w = serve(r, http.MethodGet, "/api/v1/downloads/"+resp.TaskIDs[0], "")
	require.Equal(t, http.StatusOK, w.Code)
	var task models.DownloadTask
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &task))
	assert.Equal(t, models.TaskCompleted, task.Status)

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/v1/downloads/missing", "").Code)

	w = serve(r, http.MethodPost, "/api/v1/downloads/cleanup", "")
	assert.Contains(t, w.Body.String(), `"removed_count":1`)

	w = serve(r, http.MethodGet, "/api/v1/downloads", "")
	assert.Equal(t, "[]", w.Body.String())
}

func TestSettingsRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.Download.Dir = t.TempDir()
	cfg.Download.SettingsFile = t.TempDir() + "/settings.json"
	dl, err := download.New(cfg.Download, http.DefaultClient)
	require.NoError(t, err)
	defer dl.Close()

	r := NewRouter(context.Background(), cfg, Deps{Downloads: dl, StartTime: time.Now()})

	w := serve(r, http.MethodGet, "/api/v1/settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.SettingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Settings.MaxConcurrent)
	assert.Equal(t, 60, resp.Settings.DownloadTimeout)

	w = serve(r, http.MethodPost, "/api/v1/settings", `{"max_concurrent":50}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "max concurrent must be between 1 and 10")

	w = serve(r, http.MethodPost, "/api/v1/settings", `{"chunk_size":"big"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodPost, "/api/v1/settings", `{"max_concurrent":3,"download_timeout":90}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Settings.MaxConcurrent)
	assert.Equal(t, 90, resp.Settings.DownloadTimeout)
	assert.Equal(t, 3, dl.Settings().MaxConcurrent)

	w = serve(r, http.MethodPost, "/api/v1/settings/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Settings.MaxConcurrent)
}
