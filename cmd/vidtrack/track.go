package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/vidtrack/api"
	"github.com/use-agent/vidtrack/download"
	"github.com/use-agent/vidtrack/scraper"
	"github.com/use-agent/vidtrack/session"
)

var (
	feedURL     string
	cdpURL      string
	headless    bool
	noAPI       bool
	userData    string
	headerFlags []string
	cookieFlag  string
)

var trackCmd = &cobra.Command{
	Use:   "track [feed-url]",
	Short: "Track a live feed in the browser until stop() is called",
	Long: `Open the feed (or adopt the current tab of a browser started with
--remote-debugging-port) and collect video links while it scrolls.

In the page's developer console:
  stop()            stop tracking and write the link list
  stopAutoScroll()  stop scrolling only (profiles that support it)

The same commands are available on the control API. Ctrl-C also exports.`,
	Example: `  vidtrack track https://www.facebook.com/watch --profile facebook-v2
  vidtrack track --cdp ws://127.0.0.1:9222/devtools/browser/... --profile instagram`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			feedURL = args[0]
		}
		return runTrack(cmd)
	},
}

func init() {
	rootCmd.AddCommand(trackCmd)

	trackCmd.Flags().StringVar(&cdpURL, "cdp", "", "attach to a running Chrome via its DevTools URL")
	trackCmd.Flags().BoolVar(&headless, "headless", false, "run the launched browser headless")
	trackCmd.Flags().StringVar(&userData, "user-data-dir", "", "browser profile dir to keep logins between runs")
	trackCmd.Flags().BoolVar(&noAPI, "no-api", false, "do not start the control API")
	trackCmd.Flags().StringArrayVarP(&headerFlags, "header", "H", nil, "extra request header 'Name: value' for the feed tab (repeatable)")
	trackCmd.Flags().StringVar(&cookieFlag, "cookies", "", "Cookie header value to set on the feed, e.g. 'c_user=1; xs=...'")
}

// parseHeaders turns curl-style "Name: value" flags into a header map on
// top of base.
func parseHeaders(base map[string]string, flags []string) (map[string]string, error) {
	out := make(map[string]string, len(base)+len(flags))
	for k, v := range base {
		out[k] = v
	}
	for _, f := range flags {
		name, value, ok := strings.Cut(f, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, want 'Name: value'", f)
		}
		out[name] = strings.TrimSpace(value)
	}
	return out, nil
}

// parseCookies reads a Cookie header value. Empty input means no cookies.
func parseCookies(raw string) ([]*http.Cookie, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	cookies, err := http.ParseCookie(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid cookies: %w", err)
	}
	return cookies, nil
}

// commands adapts a session to the in-page console commands.
type commands struct{ s *session.Session }

func (c commands) StopAndExport() (int, string, error) {
	exp, err := c.s.Stop()
	if err != nil {
		return 0, "", err
	}
	return exp.Count, exp.Path, nil
}

func (c commands) StopAutoScroll() error { return c.s.StopAutoScroll() }

func runTrack(cmd *cobra.Command) error {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := loadConfig()
	if feedURL != "" {
		cfg.Tracker.FeedURL = feedURL
	}
	if cdpURL != "" {
		cfg.Browser.CDPURL = cdpURL
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = headless
	}
	if userData != "" {
		cfg.Browser.UserDataDir = userData
	}
	if cookieFlag != "" {
		cfg.Tracker.FeedCookies = cookieFlag
	}
	headers, err := parseHeaders(cfg.Tracker.FeedHeaders, headerFlags)
	if err != nil {
		return err
	}
	cookies, err := parseCookies(cfg.Tracker.FeedCookies)
	if err != nil {
		return err
	}

	p, err := resolveProfile(cfg)
	if err != nil {
		return err
	}
	slog.Info("vidtrack starting",
		"profile", p.Name,
		"feed", cfg.Tracker.FeedURL,
		"output", cfg.Tracker.OutputDir,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── 2. Browser and feed tab ─────────────────────────────────────
	browser, err := scraper.Launch(cfg.Browser)
	if err != nil {
		return err
	}
	defer browser.Close()

	page, err := browser.OpenFeed(ctx, scraper.FeedOptions{
		URL:     cfg.Tracker.FeedURL,
		Root:    p.Root,
		Headers: headers,
		Cookies: cookies,
	})
	if err != nil {
		return err
	}
	defer page.Close()

	// ── 3. Session ──────────────────────────────────────────────────
	sess := session.New(p, page, session.Options{
		OutputDir:     cfg.Tracker.OutputDir,
		ScrollDelay:   cfg.Tracker.ScrollDelay,
		WebhookURL:    cfg.Webhook.URL,
		WebhookSecret: cfg.Webhook.Secret,
	})
	if err := page.BindCommands(commands{sess}, p.AllowStopAutoScroll); err != nil {
		return err
	}
	if err := sess.Start(ctx); err != nil {
		return err
	}

	// ── 4. Downloader and control API ───────────────────────────────
	var srv *http.Server
	if !noAPI {
		dl, err := download.New(cfg.Download, download.NewClient(cfg.Browser.DefaultProxy))
		if err != nil {
			return err
		}
		defer dl.Close()

		router := api.NewRouter(ctx, cfg, api.Deps{
			Session:   sess,
			Downloads: dl,
			StartTime: time.Now(),
		})
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv = &http.Server{Addr: addr, Handler: router}

		go func() {
			slog.Info("control API listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("control API error", "error", err)
			}
		}()
	}

	// ── 5. Wait for stop() or a signal ──────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-sess.Done():
		slog.Info("session stopped from the page or the API")
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
		_, _ = sess.Stop()
	}

	// ── 6. Graceful shutdown ────────────────────────────────────────
	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("control API forced shutdown", "error", err)
		} else {
			slog.Info("control API drained gracefully")
		}
	}

	exp, err := sess.Result()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %d video link(s) to %s\n", exp.Count, exp.Path)
	slog.Info("vidtrack stopped")
	return nil
}
