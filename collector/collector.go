package collector

import (
	"context"
	"fmt"
	"log/slog"
)

// Source yields candidate strings for a set of strategies, read off the
// current state of some document. Elements that expose nothing yield "".
type Source interface {
	Candidates(ctx context.Context, strategies []Strategy) ([]string, error)
}

// Collector scans a Source and accumulates accepted URLs into a ResultSet.
type Collector struct {
	source     Source
	strategies []Strategy
	filter     Filter
	results    *ResultSet
}

// New creates a Collector. results is shared with whoever exports it.
func New(source Source, strategies []Strategy, filter Filter, results *ResultSet) *Collector {
	return &Collector{
		source:     source,
		strategies: strategies,
		filter:     filter,
		results:    results,
	}
}

// Results returns the ResultSet the collector feeds.
func (c *Collector) Results() *ResultSet {
	return c.results
}

// Collect runs one full scan and returns how many URLs were newly accepted.
// Rejected and already-known candidates are skipped silently.
func (c *Collector) Collect(ctx context.Context) (int, error) {
	candidates, err := c.source.Candidates(ctx, c.strategies)
	if err != nil {
		return 0, fmt.Errorf("collector: read candidates: %w", err)
	}

	added := 0
	for _, cand := range candidates {
		if !c.filter.Accept(cand) {
			continue
		}
		idx, ok := c.results.Add(cand)
		if !ok {
			continue
		}
		added++
		slog.Info("video found", "index", idx, "url", cand)
	}
	return added, nil
}
