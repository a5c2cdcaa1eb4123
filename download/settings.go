package download

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/use-agent/vidtrack/config"
	"github.com/use-agent/vidtrack/models"
)

// Settings returns the settings new downloads start with.
func (d *Downloader) Settings() models.DownloadSettings {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return settingsOf(d.cfg)
}

// UpdateSettings validates u on top of the current settings, applies the
// result to downloads started afterwards and saves it to the settings file.
func (d *Downloader) UpdateSettings(u models.SettingsUpdate) (models.DownloadSettings, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	next := withUpdate(d.cfg, u)
	if err := next.Validate(); err != nil {
		return models.DownloadSettings{}, models.NewTrackError(models.ErrCodeInvalidInput, err.Error(), err)
	}
	return d.switchLocked(next)
}

// ResetSettings returns to the configuration the downloader was created
// with and saves it.
func (d *Downloader) ResetSettings() (models.DownloadSettings, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.switchLocked(d.base)
}

// switchLocked installs next. A new folder gets its own numbering; a new
// concurrency limit gets a fresh semaphore while running tasks release
// the old one.
func (d *Downloader) switchLocked(next config.DownloadConfig) (models.DownloadSettings, error) {
	if next.Dir != d.cfg.Dir {
		if err := os.MkdirAll(next.Dir, 0o755); err != nil {
			return models.DownloadSettings{}, models.NewTrackError(models.ErrCodeDownload, "cannot create download folder", err)
		}
		names, err := newNamer(next.Dir)
		if err != nil {
			return models.DownloadSettings{}, models.NewTrackError(models.ErrCodeDownload, "cannot read download folder", err)
		}
		d.names = names
	}
	if next.MaxConcurrent != d.cfg.MaxConcurrent {
		d.sem = make(chan struct{}, next.MaxConcurrent)
		d.limiter.SetBurst(next.MaxConcurrent)
	}
	d.cfg = next

	out := settingsOf(next)
	slog.Info("download settings updated",
		"folder", out.DownloadFolder,
		"max_concurrent", out.MaxConcurrent,
		"max_retries", out.MaxRetries,
		"timeout_s", out.DownloadTimeout,
		"chunk_kb", out.ChunkSize,
	)
	if next.SettingsFile != "" {
		if err := saveSettings(next.SettingsFile, out); err != nil {
			return out, models.NewTrackError(models.ErrCodeInternal, "failed to save settings", err)
		}
	}
	return out, nil
}

func settingsOf(cfg config.DownloadConfig) models.DownloadSettings {
	return models.DownloadSettings{
		DownloadFolder:  cfg.Dir,
		MaxConcurrent:   cfg.MaxConcurrent,
		MaxRetries:      cfg.MaxRetries,
		DownloadTimeout: int(cfg.Timeout / time.Second),
		ChunkSize:       cfg.ChunkSizeKB,
	}
}

func withUpdate(cfg config.DownloadConfig, u models.SettingsUpdate) config.DownloadConfig {
	if u.DownloadFolder != nil {
		cfg.Dir = strings.TrimSpace(*u.DownloadFolder)
	}
	if u.MaxConcurrent != nil {
		cfg.MaxConcurrent = *u.MaxConcurrent
	}
	if u.MaxRetries != nil {
		cfg.MaxRetries = *u.MaxRetries
	}
	if u.DownloadTimeout != nil {
		cfg.Timeout = time.Duration(*u.DownloadTimeout) * time.Second
	}
	if u.ChunkSize != nil {
		cfg.ChunkSizeKB = *u.ChunkSize
	}
	return cfg
}

// loadSettings overlays the settings saved at path onto cfg.
func loadSettings(path string, cfg config.DownloadConfig) (config.DownloadConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	var u models.SettingsUpdate
	if err := json.Unmarshal(data, &u); err != nil {
		return cfg, fmt.Errorf("download: parse %s: %w", path, err)
	}
	next := withUpdate(cfg, u)
	if err := next.Validate(); err != nil {
		return cfg, fmt.Errorf("download: %s: %w", path, err)
	}
	return next, nil
}

func saveSettings(path string, s models.DownloadSettings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
