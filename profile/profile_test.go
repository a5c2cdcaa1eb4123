package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/vidtrack/collector"
)

func TestBuiltin_AllValid(t *testing.T) {
	for name, p := range Builtin() {
		assert.Equal(t, name, p.Name)
		assert.NoError(t, p.Validate(), name)
	}
}

func TestBuiltin_VariantDifferences(t *testing.T) {
	b := Builtin()

	assert.Len(t, b["facebook"].Strategies, 1)
	assert.Len(t, b["facebook-v2"].Strategies, 2)
	assert.False(t, b["facebook"].RejectBlob)
	assert.True(t, b["instagram-v2"].RejectBlob)

	assert.Equal(t, "video_links.txt", b["facebook"].ExportFile)
	assert.Equal(t, "instagram_videos.txt", b["instagram"].ExportFile)

	assert.True(t, b["facebook"].AllowStopAutoScroll)
	assert.False(t, b["instagram"].AllowStopAutoScroll)
	assert.False(t, b["instagram"].AutoScroll)

	assert.Equal(t, 3*time.Second, b["facebook"].ScrollDelay)
	assert.Equal(t, 2500*time.Millisecond, b["instagram"].ScrollDelay)
}

func TestLoad_FileOverridesAndAdds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  - name: facebook
    strategies:
      - selector: "video"
        extract: resolved_src
    scroll_delay: 1s
    export_file: fb.txt
  - name: tiktok
    strategies:
      - selector: "div[data-video]"
        extract: attr
        attr: data-video
    reject_blob: true
    scroll_delay: 2s
    auto_scroll: true
    export_file: tiktok.txt
`), 0o644))

	reg, err := Load(path)
	require.NoError(t, err)

	fb, err := reg.Get("facebook")
	require.NoError(t, err)
	assert.Equal(t, "fb.txt", fb.ExportFile)
	assert.Equal(t, time.Second, fb.ScrollDelay)
	assert.Equal(t, []string{".mp4"}, fb.Markers)
	assert.Equal(t, "body", fb.Root)

	tt, err := reg.Get("tiktok")
	require.NoError(t, err)
	assert.Equal(t, collector.Attribute("div[data-video]", "data-video"), tt.Strategies[0])
	assert.InDelta(t, 0.9, tt.ScrollFraction, 1e-9)

	assert.Contains(t, reg.Names(), "instagram-v2")
}

func TestLoad_InvalidProfileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  - name: broken
    strategies:
      - selector: "video["
        extract: resolved_src
    scroll_delay: 1s
    export_file: x.txt
`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestRegistry_UnknownProfile(t *testing.T) {
	reg, err := Load("")
	require.NoError(t, err)

	_, err = reg.Get("myspace")
	assert.Error(t, err)
}
