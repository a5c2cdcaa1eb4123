// Package profile describes the platform variants the tracker supports.
// Variants differ only in configuration: which strategies run, whether
// blob: URLs are dropped, scroll timing, and the export file name.
package profile

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/use-agent/vidtrack/collector"
	"gopkg.in/yaml.v3"
)

// Profile is one tracker variant.
type Profile struct {
	Name string `yaml:"name"`

	// Root is the selector of the container whose subtree is watched.
	Root string `yaml:"root"`

	Strategies []collector.Strategy `yaml:"strategies"`
	Markers    []string             `yaml:"markers"`
	RejectBlob bool                 `yaml:"reject_blob"`

	// ScrollDelay is the pause between scroll steps.
	ScrollDelay time.Duration `yaml:"scroll_delay"`

	// ScrollFraction is the step size as a fraction of the viewport height.
	ScrollFraction float64 `yaml:"scroll_fraction"`

	// AutoScroll starts the scroll loop with the session. When false the
	// user scrolls by hand and only the watcher runs.
	AutoScroll bool `yaml:"auto_scroll"`

	// AllowStopAutoScroll exposes the stopAutoScroll command.
	AllowStopAutoScroll bool `yaml:"allow_stop_auto_scroll"`

	// ExportFile is the fixed name of the exported link list.
	ExportFile string `yaml:"export_file"`
}

// Filter returns the collector filter for this profile.
func (p Profile) Filter() collector.Filter {
	return collector.Filter{Markers: p.Markers, RejectBlob: p.RejectBlob}
}

// Validate checks that the profile can drive a session.
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile: missing name")
	}
	if len(p.Strategies) == 0 {
		return fmt.Errorf("profile %s: no strategies", p.Name)
	}
	for _, s := range p.Strategies {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("profile %s: %w", p.Name, err)
		}
	}
	if len(p.Markers) == 0 {
		return fmt.Errorf("profile %s: no media markers", p.Name)
	}
	if p.ScrollDelay <= 0 {
		return fmt.Errorf("profile %s: scroll delay must be positive", p.Name)
	}
	if p.ScrollFraction <= 0 {
		return fmt.Errorf("profile %s: scroll fraction must be positive", p.Name)
	}
	if p.ExportFile == "" {
		return fmt.Errorf("profile %s: missing export file name", p.Name)
	}
	return nil
}

var (
	videoOnly = []collector.Strategy{
		collector.ResolvedSource("video"),
	}
	videoAndDataURL = []collector.Strategy{
		collector.ResolvedSource("video"),
		collector.Attribute("[data-url]", "data-url"),
	}
)

// Builtin returns the built-in profiles keyed by name.
func Builtin() map[string]Profile {
	return map[string]Profile{
		"facebook": {
			Name:                "facebook",
			Root:                "body",
			Strategies:          videoOnly,
			Markers:             []string{".mp4"},
			ScrollDelay:         3000 * time.Millisecond,
			ScrollFraction:      0.9,
			AutoScroll:          true,
			AllowStopAutoScroll: true,
			ExportFile:          "video_links.txt",
		},
		"facebook-v2": {
			Name:                "facebook-v2",
			Root:                "body",
			Strategies:          videoAndDataURL,
			Markers:             []string{".mp4"},
			RejectBlob:          true,
			ScrollDelay:         3000 * time.Millisecond,
			ScrollFraction:      0.9,
			AutoScroll:          true,
			AllowStopAutoScroll: true,
			ExportFile:          "video_links.txt",
		},
		"instagram": {
			Name:           "instagram",
			Root:           "body",
			Strategies:     videoOnly,
			Markers:        []string{".mp4"},
			ScrollDelay:    2500 * time.Millisecond,
			ScrollFraction: 0.9,
			ExportFile:     "instagram_videos.txt",
		},
		"instagram-v2": {
			Name:           "instagram-v2",
			Root:           "body",
			Strategies:     videoAndDataURL,
			Markers:        []string{".mp4"},
			RejectBlob:     true,
			ScrollDelay:    2500 * time.Millisecond,
			ScrollFraction: 0.9,
			AutoScroll:     true,
			ExportFile:     "instagram_videos.txt",
		},
	}
}

// file is the on-disk layout of a profiles file.
type file struct {
	Profiles []Profile `yaml:"profiles"`
}

// Registry holds the profiles available to a run.
type Registry struct {
	profiles map[string]Profile
}

// Load returns the built-in profiles merged with those in path. Profiles in
// the file replace built-ins of the same name. An empty path loads only the
// built-ins.
func Load(path string) (*Registry, error) {
	r := &Registry{profiles: Builtin()}
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("profile: parse %s: %w", path, err)
	}
	for _, p := range f.Profiles {
		p = withDefaults(p)
		if err := p.Validate(); err != nil {
			return nil, err
		}
		r.profiles[p.Name] = p
	}
	return r, nil
}

func withDefaults(p Profile) Profile {
	if p.Root == "" {
		p.Root = "body"
	}
	if p.ScrollFraction == 0 {
		p.ScrollFraction = 0.9
	}
	if len(p.Markers) == 0 {
		p.Markers = []string{".mp4"}
	}
	return p
}

// Get looks up a profile by name.
func (r *Registry) Get(name string) (Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile: unknown profile %q (have %v)", name, r.Names())
	}
	return p, nil
}

// Names returns the sorted profile names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for n := range r.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
