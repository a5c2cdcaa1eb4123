package download

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// namer hands out sequential numeric file names in a folder, continuing
// after the highest numeric stem already present.
type namer struct {
	dir  string
	mu   sync.Mutex
	last int
}

func newNamer(dir string) (*namer, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	n := &namer{dir: dir}
	for _, e := range entries {
		name := e.Name()
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if v, err := strconv.Atoi(stem); err == nil && v > n.last && isDigits(stem) {
			n.last = v
		}
	}
	return n, nil
}

// next reserves the next file path for rawURL.
func (n *namer) next(rawURL string) string {
	n.mu.Lock()
	n.last++
	num := n.last
	n.mu.Unlock()
	return filepath.Join(n.dir, strconv.Itoa(num)+extensionFor(rawURL))
}

// extensionFor picks .mp4 whenever the URL mentions it, otherwise the
// extension of the URL path, otherwise .mp4.
func extensionFor(rawURL string) string {
	if strings.Contains(strings.ToLower(rawURL), ".mp4") {
		return ".mp4"
	}
	if u, err := url.Parse(rawURL); err == nil {
		if ext := path.Ext(u.Path); ext != "" && ext != "." {
			return ext
		}
	}
	return ".mp4"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
