// Package session ties one tracking run together: the result set, the
// active/stopped flag, the change watcher, the scroll loop and the export.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/vidtrack/collector"
	"github.com/use-agent/vidtrack/export"
	"github.com/use-agent/vidtrack/models"
	"github.com/use-agent/vidtrack/profile"
	"github.com/use-agent/vidtrack/scroll"
	"github.com/use-agent/vidtrack/watcher"
	"github.com/use-agent/vidtrack/webhook"
)

// Environment is the page a session observes and drives.
type Environment interface {
	collector.Source
	watcher.Notifier
	scroll.Scroller
}

// Options tune a session beyond what its profile fixes.
type Options struct {
	// OutputDir receives the export file.
	OutputDir string

	// ScrollDelay overrides the profile's delay when > 0.
	ScrollDelay time.Duration

	WebhookURL    string
	WebhookSecret string
}

// Export describes one written link list.
type Export struct {
	Count int
	Path  string
}

// Session is one tracking run. The zero value is not usable; call New.
type Session struct {
	id        string
	profile   profile.Profile
	opts      Options
	startedAt time.Time

	results   *collector.ResultSet
	collector *collector.Collector
	watcher   *watcher.Watcher
	scroller  *scroll.Driver
	notifier  *webhook.Notifier

	active   atomic.Bool
	stopMu   sync.Mutex
	done     chan struct{}
	doneOnce sync.Once

	// last Stop outcome, guarded by stopMu
	lastExport *Export
	lastErr    error
}

// New builds a session in the active state. Nothing runs until Start.
func New(p profile.Profile, env Environment, opts Options) *Session {
	s := &Session{
		id:        uuid.NewString(),
		profile:   p,
		opts:      opts,
		startedAt: time.Now(),
		results:   collector.NewResultSet(),
		done:      make(chan struct{}),
	}
	s.active.Store(true)

	s.collector = collector.New(env, p.Strategies, p.Filter(), s.results)
	s.watcher = watcher.New(env, s.collector)

	delay := p.ScrollDelay
	if opts.ScrollDelay > 0 {
		delay = opts.ScrollDelay
	}
	s.scroller = scroll.NewDriver(env, delay, p.ScrollFraction, s.Active)
	if opts.WebhookURL != "" {
		s.notifier = webhook.NewNotifier(opts.WebhookURL, opts.WebhookSecret)
	}
	return s
}

// ID returns the session identifier used in webhook events.
func (s *Session) ID() string { return s.id }

// Profile returns the profile the session runs with.
func (s *Session) Profile() profile.Profile { return s.profile }

// Active reports whether the session has not been stopped.
func (s *Session) Active() bool { return s.active.Load() }

// Done is closed by the first Stop, whether or not its export succeeded.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start installs the watcher, which runs the first collection pass, and
// starts auto-scrolling when the profile asks for it.
func (s *Session) Start(ctx context.Context) error {
	if err := s.watcher.Start(ctx); err != nil {
		return models.NewTrackError(models.ErrCodeScript, "failed to start change watcher", err)
	}
	slog.Info("video tracker started",
		"session", s.id,
		"profile", s.profile.Name,
		"found", s.results.Len(),
	)

	if s.profile.AutoScroll {
		s.scroller.Start(ctx)
		if s.profile.AllowStopAutoScroll {
			slog.Info("call stopAutoScroll() to stop scrolling only")
		}
	} else {
		slog.Info("scroll through the feed; new videos are tracked automatically")
	}
	slog.Info("call stop() to export all found video links", "file", s.profile.ExportFile)
	return nil
}

// Stop ends the session and exports the result set. In order it marks the
// session stopped, unsubscribes the watcher, writes the list and logs a
// summary. Calling it again re-exports the same set.
func (s *Session) Stop() (*Export, error) {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()

	exp, err := s.stopLocked()
	s.lastExport, s.lastErr = exp, err
	return exp, err
}

// Result returns the outcome of the latest Stop.
func (s *Session) Result() (*Export, error) {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	return s.lastExport, s.lastErr
}

func (s *Session) stopLocked() (*Export, error) {
	first := s.active.CompareAndSwap(true, false)
	defer s.doneOnce.Do(func() { close(s.done) })

	s.scroller.Halt()
	if err := s.watcher.Stop(); err != nil {
		slog.Warn("watcher unsubscribe failed", "error", err)
	}
	if first {
		slog.Info("tracking stopped", "session", s.id)
	}

	urls := s.results.Snapshot()
	path, err := export.Write(s.opts.OutputDir, s.profile.ExportFile, urls)
	if err != nil {
		return nil, models.NewTrackError(models.ErrCodeExport, "failed to write link list", err)
	}
	slog.Info(fmt.Sprintf("saved %d video link(s) to %s", len(urls), s.profile.ExportFile),
		"count", len(urls),
		"path", path,
	)

	if s.notifier != nil {
		s.notifier.Notify(webhook.NewSessionStopped(s.id, s.startedAt, webhook.SessionStopped{
			Profile: s.profile.Name,
			Count:   len(urls),
			Path:    path,
		}))
	}

	return &Export{Count: len(urls), Path: path}, nil
}

// StopAutoScroll halts only the scroll loop; collection continues.
func (s *Session) StopAutoScroll() error {
	if !s.profile.AllowStopAutoScroll {
		return models.NewTrackError(models.ErrCodeNotSupported,
			fmt.Sprintf("profile %s has no stopAutoScroll command", s.profile.Name), nil)
	}
	s.scroller.Halt()
	return nil
}

// Status returns a snapshot for the control API.
func (s *Session) Status() models.SessionStatus {
	state := models.StateActive
	if !s.Active() {
		state = models.StateStopped
	}
	return models.SessionStatus{
		Profile:   s.profile.Name,
		State:     state,
		Scrolling: s.scroller.Scrolling(),
		Count:     s.results.Len(),
		File:      s.profile.ExportFile,
		StartedAt: s.startedAt.Unix(),
	}
}

// Links returns the collected URLs in discovery order.
func (s *Session) Links() []string {
	return s.results.Snapshot()
}
