package collector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var laterStrategies = []Strategy{
	ResolvedSource("video"),
	Attribute("[data-url]", "data-url"),
}

var laterFilter = Filter{Markers: []string{".mp4"}, RejectBlob: true}

func newDocCollector(t *testing.T, page string) (*Collector, *DocumentSource) {
	t.Helper()
	src, err := NewDocumentSource(strings.NewReader(page))
	require.NoError(t, err)
	return New(src, laterStrategies, laterFilter, NewResultSet()), src
}

func TestCollect_BothStrategiesDedup(t *testing.T) {
	c, _ := newDocCollector(t, `<html><body>
		<video src="https://x/a.mp4"></video>
		<div data-url="https://x/a.mp4"></div>
		<div data-url="https://x/b.mp4"></div>
		<video><source src="https://x/c.mp4" type="video/mp4"></video>
		<video src="blob:https://host/123"></video>
		<div data-url=""></div>
		<div data-url="https://x/page.html"></div>
	</body></html>`)

	added, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, added)
	assert.Equal(t, []string{"https://x/a.mp4", "https://x/c.mp4", "https://x/b.mp4"}, c.Results().Snapshot())
}

func TestCollect_IdempotentRescan(t *testing.T) {
	c, _ := newDocCollector(t, `<body><video src="https://x/a.mp4"></video></body>`)

	_, err := c.Collect(context.Background())
	require.NoError(t, err)
	first := c.Results().Snapshot()

	added, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Equal(t, first, c.Results().Snapshot())
}

func TestCollect_MonotonicAcrossDOMStates(t *testing.T) {
	c, src := newDocCollector(t, `<body><video src="https://x/a.mp4"></video></body>`)

	states := []string{
		`<body><video src="https://x/a.mp4"></video><video src="https://x/b.mp4"></video></body>`,
		// Earlier videos scrolled out of the DOM.
		`<body><video src="https://x/c.mp4"></video></body>`,
		`<body></body>`,
		`<body><video src="https://x/b.mp4"></video><video src="https://x/d.mp4?sig=1"></video><video src="https://x/d.mp4?sig=2"></video></body>`,
	}

	_, err := c.Collect(context.Background())
	require.NoError(t, err)
	prev := c.Results().Len()

	for _, st := range states {
		require.NoError(t, src.Reset(strings.NewReader(st)))
		_, err := c.Collect(context.Background())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, c.Results().Len(), prev)
		prev = c.Results().Len()
	}

	// Query-string variants are distinct entries.
	assert.Equal(t, []string{
		"https://x/a.mp4",
		"https://x/b.mp4",
		"https://x/c.mp4",
		"https://x/d.mp4?sig=1",
		"https://x/d.mp4?sig=2",
	}, c.Results().Snapshot())
}

type failingSource struct{}

func (failingSource) Candidates(context.Context, []Strategy) ([]string, error) {
	return nil, errors.New("container missing")
}

func TestCollect_SourceErrorLeavesResultsUntouched(t *testing.T) {
	rs := NewResultSet()
	rs.Add("https://x/a.mp4")
	c := New(failingSource{}, laterStrategies, laterFilter, rs)

	_, err := c.Collect(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, rs.Len())
}

func TestDocumentSource_CanceledContext(t *testing.T) {
	src, err := NewDocumentSource(strings.NewReader(`<body><video src="https://x/a.mp4"></video></body>`))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = src.Candidates(ctx, laterStrategies)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDocumentSource_AttributeValueKeptVerbatim(t *testing.T) {
	src, err := NewDocumentSource(strings.NewReader(`<body>
		<video src=" https://x/a.mp4 "></video>
		<div data-url=" https://x/b.mp4"></div>
	</body>`))
	require.NoError(t, err)

	got, err := src.Candidates(context.Background(), laterStrategies)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x/a.mp4", " https://x/b.mp4"}, got)
}
