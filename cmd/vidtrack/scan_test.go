package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/vidtrack/profile"
)

func writeSnapshot(t *testing.T, dir, name, html string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))
	return path
}

func TestRunScan_MergesSnapshots(t *testing.T) {
	dir := t.TempDir()
	first := writeSnapshot(t, dir, "1.html", `<body>
		<video src="https://x/a.mp4"></video>
		<video><source src="https://x/b.mp4"></video>
	</body>`)
	second := writeSnapshot(t, dir, "2.html", `<body>
		<video src="https://x/a.mp4"></video>
		<div data-url="https://x/c.mp4"></div>
		<div data-url="blob:https://x/d.mp4"></div>
	</body>`)

	p := profile.Builtin()["instagram-v2"]
	count, path, err := runScan(context.Background(), p, []string{first, second}, dir)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, filepath.Join(dir, "instagram_videos.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://x/a.mp4\nhttps://x/b.mp4\nhttps://x/c.mp4", string(data))
}

func TestRunScan_MissingFile(t *testing.T) {
	_, _, err := runScan(context.Background(), profile.Builtin()["facebook"], []string{"/nonexistent.html"}, t.TempDir())
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "INFO", parseLevel("bogus").String())
}
