package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_ExactBytes(t *testing.T) {
	dir := t.TempDir()

	path, err := Write(dir, "video_links.txt", []string{"https://x/a.mp4", "https://x/b.mp4"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "video_links.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://x/a.mp4\nhttps://x/b.mp4", string(data))
}

func TestWrite_EmptyListGivesEmptyFile(t *testing.T) {
	path, err := Write(t.TempDir(), "instagram_videos.txt", nil)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestWrite_OverwritesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := Write(dir, "out.txt", []string{"https://x/a.mp4", "https://x/b.mp4"})
	require.NoError(t, err)
	_, err = Write(dir, "out.txt", []string{"https://x/c.mp4"})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "https://x/c.mp4", string(data))
}

func TestWrite_RejectsPathInName(t *testing.T) {
	_, err := Write(t.TempDir(), "../escape.txt", nil)
	assert.Error(t, err)
	_, err = Write(t.TempDir(), "", nil)
	assert.Error(t, err)
}

func TestReadLinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.txt")
	require.NoError(t, os.WriteFile(path, []byte(" https://x/a.mp4 \r\n\nhttps://x/b.mp4\n"), 0o644))

	links, err := ReadLinks(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x/a.mp4", "https://x/b.mp4"}, links)
}
