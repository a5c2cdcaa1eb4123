// Package download fetches exported media URLs to disk with bounded
// concurrency, resumable retries and sequential file naming.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/vidtrack/config"
	"github.com/use-agent/vidtrack/models"
	"golang.org/x/time/rate"
)

// Downloader runs download tasks in the background.
type Downloader struct {
	client  *http.Client
	store   *Store
	limiter *rate.Limiter
	backoff func(retry int) time.Duration

	// mu guards the settings that UpdateSettings and ResetSettings swap.
	// Running tasks keep the values they started with.
	mu    sync.RWMutex
	cfg   config.DownloadConfig
	base  config.DownloadConfig
	names *namer
	sem   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Downloader writing into cfg.Dir, creating it when missing.
// A nil client gets the Chrome-fingerprinted transport from NewClient.
// Settings saved in cfg.SettingsFile override cfg; cfg itself is what
// ResetSettings returns to.
func New(cfg config.DownloadConfig, client *http.Client) (*Downloader, error) {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.ChunkSizeKB <= 0 {
		cfg.ChunkSizeKB = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.HeadTimeout <= 0 {
		cfg.HeadTimeout = 15 * time.Second
	}
	base := cfg
	if cfg.SettingsFile != "" {
		saved, err := loadSettings(cfg.SettingsFile, cfg)
		switch {
		case err == nil:
			cfg = saved
		case !errors.Is(err, os.ErrNotExist):
			slog.Warn("ignoring saved download settings", "file", cfg.SettingsFile, "error", err)
		}
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, models.NewTrackError(models.ErrCodeDownload, "cannot create download folder", err)
	}
	names, err := newNamer(cfg.Dir)
	if err != nil {
		return nil, models.NewTrackError(models.ErrCodeDownload, "cannot read download folder", err)
	}
	if client == nil {
		client = NewClient("")
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Downloader{
		client:  client,
		store:   NewStore(),
		limiter: rate.NewLimiter(limit, cfg.MaxConcurrent),
		backoff: backoffDelay,
		cfg:     cfg,
		base:    base,
		names:   names,
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// backoffDelay is min(2^retry, 30) seconds.
func backoffDelay(retry int) time.Duration {
	if retry >= 5 {
		return 30 * time.Second
	}
	return time.Duration(1<<retry) * time.Second
}

// Store exposes the task store for status reporting.
func (d *Downloader) Store() *Store { return d.store }

// Enqueue validates rawURL and schedules its download.
func (d *Downloader) Enqueue(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", models.NewTrackError(models.ErrCodeInvalidInput, "no url provided", nil)
	}
	if !isHTTPURL(rawURL) {
		return "", models.NewTrackError(models.ErrCodeInvalidInput, "url must start with http:// or https://", nil)
	}
	id := d.store.Create(rawURL)
	d.wg.Add(1)
	go d.run(id, rawURL)
	return id, nil
}

// EnqueueBulk schedules every valid http(s) URL and skips the rest.
// It fails only when no URL is valid.
func (d *Downloader) EnqueueBulk(urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, models.NewTrackError(models.ErrCodeInvalidInput, "no urls provided", nil)
	}
	ids := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || !isHTTPURL(u) {
			continue
		}
		id, err := d.Enqueue(u)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, models.NewTrackError(models.ErrCodeInvalidInput, "no valid urls found", nil)
	}
	return ids, nil
}

// Get returns a snapshot of one task.
func (d *Downloader) Get(id string) (models.DownloadTask, bool) { return d.store.Get(id) }

// List returns snapshots of all tasks.
func (d *Downloader) List() []models.DownloadTask { return d.store.List() }

// CleanupCompleted forgets completed tasks.
func (d *Downloader) CleanupCompleted() int { return d.store.CleanupCompleted() }

// Version changes whenever any task changes.
func (d *Downloader) Version() uint64 { return d.store.Version() }

// Wait blocks until every scheduled task has finished.
func (d *Downloader) Wait() { d.wg.Wait() }

// Close aborts running downloads and waits for their workers.
func (d *Downloader) Close() {
	d.cancel()
	d.wg.Wait()
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// run is one task's worker: it waits for a concurrency slot, then tries
// until success or the retry budget is spent.
func (d *Downloader) run(id, rawURL string) {
	defer d.wg.Done()

	d.mu.RLock()
	sem := d.sem
	d.mu.RUnlock()

	select {
	case sem <- struct{}{}:
	case <-d.ctx.Done():
		d.fail(id, d.ctx.Err(), 0)
		return
	}
	defer func() { <-sem }()

	d.mu.RLock()
	cfg, names := d.cfg, d.names
	d.mu.RUnlock()

	maxRetries := cfg.MaxRetries
	retry := 0
	for {
		err := d.attempt(d.ctx, cfg, names, id, rawURL, retry)
		if err == nil {
			slog.Info("download completed", "id", id, "url", rawURL, "retries", retry)
			return
		}

		retry++
		if retry > maxRetries || d.ctx.Err() != nil {
			d.fail(id, err, maxRetries)
			return
		}

		d.store.Update(id, func(t *models.DownloadTask) {
			t.RetryCount = retry
			t.Status = fmt.Sprintf("retrying (%d/%d)", retry, maxRetries)
			t.Error = fmt.Sprintf("Attempt %d failed: %v", retry, err)
		})
		slog.Warn("download attempt failed", "id", id, "attempt", retry, "error", err)

		timer := time.NewTimer(d.backoff(retry))
		select {
		case <-timer.C:
		case <-d.ctx.Done():
			timer.Stop()
			d.fail(id, d.ctx.Err(), maxRetries)
			return
		}
	}
}

// fail marks the task as errored and removes any partial file.
func (d *Downloader) fail(id string, err error, maxRetries int) {
	var filename string
	d.store.Update(id, func(t *models.DownloadTask) {
		t.Status = models.TaskError
		t.Error = fmt.Sprintf("Failed after %d retries: %v", maxRetries, err)
		filename = t.Filename
	})
	if filename != "" {
		rmErr := os.Remove(filename)
		if rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			d.store.Update(id, func(t *models.DownloadTask) {
				t.Error += fmt.Sprintf(" (Cleanup failed: %v)", rmErr)
			})
		} else {
			d.store.Update(id, func(t *models.DownloadTask) { t.Filename = "" })
		}
	}
	slog.Error("download failed", "id", id, "error", err)
}

// attempt performs one probe-and-fetch round. On a retry with a partial
// file on disk it asks the server for the remaining range.
func (d *Downloader) attempt(ctx context.Context, cfg config.DownloadConfig, names *namer, id, rawURL string, retry int) error {
	maxRetries := cfg.MaxRetries
	d.store.Update(id, func(t *models.DownloadTask) {
		if retry == 0 {
			t.Status = models.TaskStarting
		} else {
			t.Status = fmt.Sprintf("retrying (%d/%d)", retry, maxRetries)
		}
	})

	size := d.probeSize(ctx, cfg.HeadTimeout, rawURL)

	var filename string
	d.store.Update(id, func(t *models.DownloadTask) {
		t.TotalBytes = size
		t.Status = models.TaskDownloading
		filename = t.Filename
	})

	var downloaded int64
	resume := false
	if retry > 0 && filename != "" {
		if fi, err := os.Stat(filename); err == nil {
			downloaded = fi.Size()
			resume = true
		}
	}
	if filename == "" {
		filename = names.next(rawURL)
		d.store.Update(id, func(t *models.DownloadTask) { t.Filename = filename })
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}

	// The read deadline is pushed forward after every chunk; a stalled
	// connection cancels the request.
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stall := time.AfterFunc(cfg.Timeout, cancel)
	defer stall.Stop()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("download: build request: %w", err)
	}
	setBrowserHeaders(req)
	if resume && downloaded > 0 {
		req.Header.Set("Range", "bytes="+strconv.FormatInt(downloaded, 10)+"-")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download: request failed: %w", err)
	}
	defer resp.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY
	switch {
	case resume && resp.StatusCode == http.StatusPartialContent:
		flags |= os.O_APPEND
	case resp.StatusCode == http.StatusOK:
		flags |= os.O_TRUNC
		downloaded = 0
	default:
		return fmt.Errorf("download: HTTP %d for %s", resp.StatusCode, rawURL)
	}

	f, err := os.OpenFile(filename, flags, 0o644)
	if err != nil {
		return fmt.Errorf("download: open %s: %w", filename, err)
	}

	buf := make([]byte, cfg.ChunkSizeKB*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			stall.Reset(cfg.Timeout)
			if _, werr := f.Write(buf[:n]); werr != nil {
				f.Close()
				return fmt.Errorf("download: write %s: %w", filename, werr)
			}
			downloaded += int64(n)
			current := downloaded
			d.store.Update(id, func(t *models.DownloadTask) {
				t.DownloadedBytes = current
				if t.TotalBytes > 0 {
					p := progressPercent(current, t.TotalBytes)
					t.Progress = &p
				} else {
					t.Progress = nil
				}
			})
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			f.Close()
			return fmt.Errorf("download: read body: %w", readErr)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("download: close %s: %w", filename, err)
	}

	d.store.Update(id, func(t *models.DownloadTask) {
		done := 100.0
		t.Status = models.TaskCompleted
		t.Progress = &done
		t.RetryCount = retry
	})
	return nil
}

// probeSize asks for Content-Length with a HEAD request. Zero means unknown.
func (d *Downloader) probeSize(ctx context.Context, timeout time.Duration, rawURL string) int64 {
	if err := d.limiter.Wait(ctx); err != nil {
		return 0
	}
	headCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(headCtx, http.MethodHead, rawURL, nil)
	if err != nil {
		return 0
	}
	setBrowserHeaders(req)
	resp, err := d.client.Do(req)
	if err != nil {
		return 0
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 || resp.ContentLength < 0 {
		return 0
	}
	return resp.ContentLength
}

// progressPercent is done/total as a percentage rounded to two decimals.
func progressPercent(done, total int64) float64 {
	return math.Round(float64(done)/float64(total)*10000) / 100
}
