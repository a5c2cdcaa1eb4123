package scraper

import (
	"context"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/vidtrack/config"
	"github.com/use-agent/vidtrack/models"
)

// Browser owns the Chromium connection a tracking session runs in. It
// either launches its own browser or attaches to one the user already has
// open, in which case Close leaves that browser running.
type Browser struct {
	browser  *rod.Browser
	cfg      config.BrowserConfig
	attached bool
	cancel   context.CancelFunc
}

// Launch starts or attaches to a browser according to cfg.
func Launch(cfg config.BrowserConfig) (*Browser, error) {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.CDPURL != "" {
		browser := rod.New().ControlURL(cfg.CDPURL).Context(ctx)
		if err := browser.Connect(); err != nil {
			cancel()
			return nil, models.NewTrackError(
				models.ErrCodeBrowserCrash,
				"failed to connect to CDP URL",
				err,
			)
		}
		slog.Info("attached to browser", "cdpURL", cfg.CDPURL)
		return &Browser{browser: browser, cfg: cfg, attached: true, cancel: cancel}, nil
	}

	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.DefaultProxy != "" {
		l = l.Proxy(cfg.DefaultProxy)
	}
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("no-first-run"))
	// Feeds only start loading video sources once playback is allowed.
	l.Set(flags.Flag("autoplay-policy"), "no-user-gesture-required")

	controlURL, err := l.Launch()
	if err != nil {
		cancel()
		return nil, models.NewTrackError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL, "headless", cfg.Headless)

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		cancel()
		return nil, models.NewTrackError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	return &Browser{browser: browser, cfg: cfg, cancel: cancel}, nil
}

// Close kills a launched browser, or only drops the connection to an
// attached one.
func (b *Browser) Close() {
	if b.attached {
		slog.Info("detaching from browser")
		b.cancel()
		return
	}
	slog.Info("closing browser")
	if err := b.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	b.cancel()
}
