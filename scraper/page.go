package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/vidtrack/models"
	"github.com/ysmood/gson"
)

// FeedOptions describes the feed page a session is parked on.
type FeedOptions struct {
	// URL is the feed to open. When empty and the browser is attached, the
	// first existing tab is adopted as is.
	URL string

	// Root is the selector of the container watched for mutations.
	Root string

	// Headers are sent with every request of the tab.
	Headers map[string]string

	// Cookies are set before navigation. Cookies without a domain are
	// scoped to the feed URL, or to the adopted tab's URL.
	Cookies []*http.Cookie
}

// OpenFeed prepares a tab for tracking.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Acquire page           – adopt the current tab or create a new one
//  2. Stealth injection      – mask navigator.webdriver etc. (before navigation!)
//  3. Headers and cookies
//  4. Hijack mount           – block fonts/ads, never media (before navigation!)
//  5. Navigate               – bounded by NavigationTimeout
//  6. Wait                   – DOM stable
func (b *Browser) OpenFeed(ctx context.Context, opts FeedOptions) (*Page, error) {
	// ── 1. Acquire page ───────────────────────────────────────────────
	var (
		page  *rod.Page
		owned bool
		err   error
	)
	if opts.URL == "" && b.attached {
		pages, pagesErr := b.browser.Pages()
		if pagesErr != nil || len(pages) == 0 {
			return nil, models.NewTrackError(
				models.ErrCodeBrowserCrash,
				"attached browser has no open tab to adopt",
				pagesErr,
			)
		}
		page = pages.First()
	} else {
		if opts.URL == "" {
			return nil, models.NewTrackError(models.ErrCodeInvalidInput, "feed URL is required", nil)
		}
		page, err = b.browser.Page(proto.TargetCreateTarget{})
		if err != nil {
			return nil, models.NewTrackError(
				models.ErrCodeBrowserCrash,
				"failed to create page",
				err,
			)
		}
		owned = true
	}

	p := &Page{page: page, root: opts.Root, owned: owned}
	if p.root == "" {
		p.root = "body"
	}

	// ── 2. Stealth injection ──────────────────────────────────────────
	if b.cfg.Stealth && owned {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// ── 3. Extra headers and cookies ─────────────────────────────────
	if len(opts.Headers) > 0 {
		if hdrErr := (proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(opts.Headers),
		}).Call(page); hdrErr != nil {
			slog.Warn("failed to set feed headers", "error", hdrErr)
		}
	}
	if len(opts.Cookies) > 0 {
		target := opts.URL
		if target == "" {
			target = evalStringOrEmpty(page, `() => window.location.href`)
		}
		if cookieErr := (proto.NetworkSetCookies{
			Cookies: cookieParams(opts.Cookies, target),
		}).Call(page); cookieErr != nil {
			slog.Warn("failed to set feed cookies", "error", cookieErr)
		} else {
			slog.Debug("feed cookies set", "count", len(opts.Cookies))
		}
	}

	// ── 4. Mount hijack router ───────────────────────────────────────
	p.router = setupHijack(page, b.cfg.BlockedResourceTypes, b.cfg.BlockAds)

	if opts.URL == "" {
		slog.Info("adopted existing tab", "url", evalStringOrEmpty(page, `() => window.location.href`))
		return p, nil
	}

	// ── 5. Navigate ───────────────────────────────────────────────────
	timeout := b.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	nav := page.Context(navCtx)

	if navErr := nav.Navigate(opts.URL); navErr != nil {
		p.Close()
		return nil, categorizeError(navErr, "navigation to feed failed")
	}

	// ── 6. Wait strategy ──────────────────────────────────────────────
	if stableErr := nav.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr,
		)
	}

	slog.Info("feed opened",
		"url", opts.URL,
		"title", evalStringOrEmpty(page, `() => document.title`),
	)
	return p, nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// cookieParams converts cookies to CDP parameters. A cookie without a
// domain is bound to target so the browser derives its scope.
func cookieParams(cookies []*http.Cookie, target string) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		}
		if p.Domain == "" {
			if u, err := url.Parse(target); err == nil && u.Host != "" {
				p.URL = u.Scheme + "://" + u.Host + "/"
			}
		}
		if p.Path == "" {
			p.Path = "/"
		}
		params = append(params, p)
	}
	return params
}

// categorizeError wraps raw errors into typed TrackErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.TrackError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewTrackError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewTrackError(models.ErrCodeTimeout, "navigation canceled", err)
	default:
		return models.NewTrackError(models.ErrCodeNavigation, msg, err)
	}
}
