package collector

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DocumentSource reads candidates from a parsed HTML snapshot, e.g. a feed
// page saved from the browser. Reset swaps in a new snapshot, which is how
// an offline scan replays successive states of the same feed.
type DocumentSource struct {
	mu  sync.RWMutex
	doc *goquery.Document
}

// NewDocumentSource parses r into a DocumentSource.
func NewDocumentSource(r io.Reader) (*DocumentSource, error) {
	d := &DocumentSource{}
	if err := d.Reset(r); err != nil {
		return nil, err
	}
	return d, nil
}

// Reset replaces the current snapshot with the document read from r.
func (d *DocumentSource) Reset(r io.Reader) error {
	root, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("document: parse html: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	d.mu.Lock()
	d.doc = doc
	d.mu.Unlock()
	return nil
}

// Candidates implements Source. Strategies are applied in order; within a
// strategy elements appear in document order.
func (d *DocumentSource) Candidates(ctx context.Context, strategies []Strategy) ([]string, error) {
	d.mu.RLock()
	doc := d.doc
	d.mu.RUnlock()

	var out []string
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc.Find(s.Selector).Each(func(_ int, sel *goquery.Selection) {
			out = append(out, extract(sel, s))
		})
	}
	return out, nil
}

func extract(sel *goquery.Selection, s Strategy) string {
	switch s.Extract {
	case ExtractAttr:
		// Attribute values are taken as written, like getAttribute.
		v, _ := sel.Attr(s.Attr)
		return v
	case ExtractResolvedSrc:
		// A static snapshot has no currentSrc; the browser resolves it from
		// src first, then from the first <source> child. URL parsing strips
		// surrounding whitespace.
		if v, ok := sel.Attr("src"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		v, _ := sel.Find("source[src]").First().Attr("src")
		return strings.TrimSpace(v)
	}
	return ""
}
