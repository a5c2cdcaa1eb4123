package download

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/vidtrack/config"
	"github.com/use-agent/vidtrack/models"
)

func intPtr(v int) *int { return &v }
func strPtr(v string) *string { return &v }

func newSettingsDownloader(t *testing.T, settingsFile string) *Downloader {
	t.Helper()
	d, err := New(config.DownloadConfig{
		Dir:           filepath.Join(t.TempDir(), "downloads"),
		MaxConcurrent: 2,
		MaxRetries:    10,
		Timeout:       60 * time.Second,
		HeadTimeout:   time.Second,
		ChunkSizeKB:   64,
		SettingsFile:  settingsFile,
	}, http.DefaultClient)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func TestSettings_ReportsEffectiveConfig(t *testing.T) {
	d := newSettingsDownloader(t, "")

	s := d.Settings()
	assert.Equal(t, 2, s.MaxConcurrent)
	assert.Equal(t, 10, s.MaxRetries)
	assert.Equal(t, 60, s.DownloadTimeout)
	assert.Equal(t, 64, s.ChunkSize)
	assert.Equal(t, "downloads", filepath.Base(s.DownloadFolder))
}

func TestUpdateSettings_PartialAndPersisted(t *testing.T) {
	file := filepath.Join(t.TempDir(), "settings.json")
	d := newSettingsDownloader(t, file)

	s, err := d.UpdateSettings(models.SettingsUpdate{MaxConcurrent: intPtr(4), ChunkSize: intPtr(128)})
	require.NoError(t, err)
	assert.Equal(t, 4, s.MaxConcurrent)
	assert.Equal(t, 128, s.ChunkSize)
	assert.Equal(t, 10, s.MaxRetries)
	assert.Equal(t, s, d.Settings())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	var saved models.DownloadSettings
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, s, saved)
}

func TestUpdateSettings_RejectsOutOfBounds(t *testing.T) {
	d := newSettingsDownloader(t, "")
	before := d.Settings()

	for _, u := range []models.SettingsUpdate{
		{MaxConcurrent: intPtr(0)},
		{MaxConcurrent: intPtr(11)},
		{MaxRetries: intPtr(21)},
		{DownloadTimeout: intPtr(29)},
		{ChunkSize: intPtr(2048)},
		{DownloadFolder: strPtr(" ")},
	} {
		_, err := d.UpdateSettings(u)
		var te *models.TrackError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, models.ErrCodeInvalidInput, te.Code)
	}
	assert.Equal(t, before, d.Settings())
}

func TestUpdateSettings_NewFolderStartsItsOwnNumbering(t *testing.T) {
	srv := httptest.NewServer(serveBytes([]byte("x")))
	defer srv.Close()

	d := newSettingsDownloader(t, "")
	d.backoff = func(int) time.Duration { return 0 }

	other := filepath.Join(t.TempDir(), "other")
	require.NoError(t, os.MkdirAll(other, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(other, "5.mp4"), nil, 0o644))

	_, err := d.UpdateSettings(models.SettingsUpdate{DownloadFolder: strPtr(other)})
	require.NoError(t, err)

	id, err := d.Enqueue(srv.URL + "/clip.mp4")
	require.NoError(t, err)
	d.Wait()

	task, _ := d.Get(id)
	assert.Equal(t, models.TaskCompleted, task.Status)
	assert.Equal(t, filepath.Join(other, "6.mp4"), task.Filename)
}

func TestResetSettings_RestoresStartupConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "settings.json")
	d := newSettingsDownloader(t, file)
	initial := d.Settings()

	_, err := d.UpdateSettings(models.SettingsUpdate{MaxRetries: intPtr(3), DownloadTimeout: intPtr(120)})
	require.NoError(t, err)

	s, err := d.ResetSettings()
	require.NoError(t, err)
	assert.Equal(t, initial, s)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	var saved models.DownloadSettings
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, initial, saved)
}

func TestNew_AppliesSavedSettings(t *testing.T) {
	file := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"max_concurrent": 5, "max_retries": 3}`), 0o644))

	d := newSettingsDownloader(t, file)
	s := d.Settings()
	assert.Equal(t, 5, s.MaxConcurrent)
	assert.Equal(t, 3, s.MaxRetries)
	assert.Equal(t, 64, s.ChunkSize)

	// Reset goes back to what New was given, not to the saved file.
	s, err := d.ResetSettings()
	require.NoError(t, err)
	assert.Equal(t, 2, s.MaxConcurrent)
}

func TestNew_IgnoresInvalidSavedSettings(t *testing.T) {
	file := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"max_concurrent": 99}`), 0o644))

	d := newSettingsDownloader(t, file)
	assert.Equal(t, 2, d.Settings().MaxConcurrent)
}
