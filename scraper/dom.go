package scraper

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/use-agent/vidtrack/collector"
	"github.com/use-agent/vidtrack/watcher"
	"github.com/ysmood/gson"
)

const (
	changeBinding = "__vidtrackChanged"
	observerKey   = "__vidtrackObserver"
)

// Page is a live feed tab. It is the browser-side environment of a
// tracking session: candidates are read from the rendered DOM, changes are
// reported by an in-page MutationObserver and scrolling moves the viewport.
type Page struct {
	page   *rod.Page
	root   string
	owned  bool
	router *rod.HijackRouter

	mu        sync.Mutex
	exposures []func() error
}

const candidatesJS = `(strategies) => {
	const out = [];
	for (const s of strategies) {
		let nodes;
		try { nodes = document.querySelectorAll(s.selector); } catch (e) { continue; }
		for (const el of nodes) {
			let v = null;
			if (s.extract === "resolved_src") {
				v = el.currentSrc || el.src || null;
			} else {
				v = el.getAttribute(s.attr);
			}
			if (typeof v === "string" && v !== "") out.push(v);
		}
	}
	return out;
}`

// Candidates implements collector.Source against the live DOM.
func (p *Page) Candidates(ctx context.Context, strategies []collector.Strategy) ([]string, error) {
	res, err := p.page.Context(ctx).Eval(candidatesJS, strategies)
	if err != nil {
		return nil, fmt.Errorf("scraper: query candidates: %w", err)
	}
	arr := res.Value.Arr()
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		out = append(out, v.Str())
	}
	return out, nil
}

const observeJS = `(root, binding, key) => {
	const target = document.querySelector(root);
	if (!target) throw new Error("content container not found: " + root);
	if (window[key]) window[key].disconnect();
	const obs = new MutationObserver(() => { window[binding](); });
	obs.observe(target, { childList: true, subtree: true });
	window[key] = obs;
}`

const disconnectJS = `(key) => {
	if (window[key]) { window[key].disconnect(); delete window[key]; }
}`

// Subscribe implements watcher.Notifier. Each mutation batch delivered by
// the observer becomes one coalesced notification on the returned channel.
func (p *Page) Subscribe(ctx context.Context) (<-chan struct{}, func() error, error) {
	sig := watcher.NewSignal()

	stopExpose, err := p.page.Expose(changeBinding, func(gson.JSON) (interface{}, error) {
		sig.Notify()
		return nil, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scraper: expose change binding: %w", err)
	}

	if _, err := p.page.Context(ctx).Eval(observeJS, p.root, changeBinding, observerKey); err != nil {
		_ = stopExpose()
		return nil, nil, fmt.Errorf("scraper: install observer: %w", err)
	}

	var once sync.Once
	unsubscribe := func() error {
		var uerr error
		once.Do(func() {
			_, evalErr := p.page.Eval(disconnectJS, observerKey)
			exposeErr := stopExpose()
			if evalErr != nil {
				uerr = fmt.Errorf("scraper: disconnect observer: %w", evalErr)
			} else if exposeErr != nil {
				uerr = fmt.Errorf("scraper: remove change binding: %w", exposeErr)
			}
		})
		return uerr
	}
	return sig.C(), unsubscribe, nil
}

const scrollJS = `(f) => {
	window.scrollBy(0, window.innerHeight * f);
	return window.scrollY;
}`

// ScrollBy implements scroll.Scroller.
func (p *Page) ScrollBy(ctx context.Context, fraction float64) (float64, error) {
	res, err := p.page.Context(ctx).Eval(scrollJS, fraction)
	if err != nil {
		return 0, fmt.Errorf("scraper: scroll: %w", err)
	}
	return res.Value.Num(), nil
}

// Close removes bindings, stops request interception and closes the tab
// when vidtrack opened it.
func (p *Page) Close() {
	p.mu.Lock()
	exposures := p.exposures
	p.exposures = nil
	p.mu.Unlock()

	for _, stop := range exposures {
		_ = stop()
	}
	if p.router != nil {
		_ = p.router.Stop()
	}
	if p.owned {
		_ = p.page.Close()
	}
}
