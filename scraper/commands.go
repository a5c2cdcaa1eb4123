package scraper

import (
	"fmt"
	"log/slog"

	"github.com/ysmood/gson"
)

// Controller is what the in-page console commands act on.
type Controller interface {
	StopAndExport() (count int, path string, err error)
	StopAutoScroll() error
}

// BindCommands exposes window.stop() and, when allowAutoScrollStop is set,
// window.stopAutoScroll() in the page. Handlers return immediately and act
// on their own goroutine so the CDP event loop is never blocked by a stop.
func (p *Page) BindCommands(c Controller, allowAutoScrollStop bool) error {
	stop, err := p.page.Expose("stop", func(gson.JSON) (interface{}, error) {
		go func() {
			count, path, err := c.StopAndExport()
			if err != nil {
				slog.Error("stop command failed", "error", err)
				return
			}
			slog.Info("stop command done", "count", count, "path", path)
		}()
		return "stopping", nil
	})
	if err != nil {
		return fmt.Errorf("scraper: expose stop: %w", err)
	}
	p.addExposure(stop)

	if !allowAutoScrollStop {
		return nil
	}

	stopScroll, err := p.page.Expose("stopAutoScroll", func(gson.JSON) (interface{}, error) {
		go func() {
			if err := c.StopAutoScroll(); err != nil {
				slog.Warn("stopAutoScroll command failed", "error", err)
			}
		}()
		return "auto-scroll stopping", nil
	})
	if err != nil {
		return fmt.Errorf("scraper: expose stopAutoScroll: %w", err)
	}
	p.addExposure(stopScroll)
	return nil
}

func (p *Page) addExposure(stop func() error) {
	p.mu.Lock()
	p.exposures = append(p.exposures, stop)
	p.mu.Unlock()
}
