package collector

import (
	"strings"
	"sync"
)

// ResultSet is an insertion-ordered set of accepted URLs.
// Entries are compared by exact string equality and never removed.
// It is safe for concurrent use.
type ResultSet struct {
	mu    sync.RWMutex
	index map[string]struct{}
	items []string
}

// NewResultSet returns an empty ResultSet.
func NewResultSet() *ResultSet {
	return &ResultSet{index: make(map[string]struct{})}
}

// Add inserts url and reports whether it was new. On insertion it also
// returns the zero-based position of the entry.
func (r *ResultSet) Add(url string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[url]; ok {
		return -1, false
	}
	r.index[url] = struct{}{}
	r.items = append(r.items, url)
	return len(r.items) - 1, true
}

// Contains reports whether url is present.
func (r *ResultSet) Contains(url string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[url]
	return ok
}

// Len returns the number of entries.
func (r *ResultSet) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Snapshot returns a copy of the entries in insertion order.
func (r *ResultSet) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.items))
	copy(out, r.items)
	return out
}

// Join returns the entries joined by newlines, with no trailing separator.
func (r *ResultSet) Join() string {
	return strings.Join(r.Snapshot(), "\n")
}
