package download

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/vidtrack/models"
)

// Store keeps download tasks in memory, in creation order.
type Store struct {
	mu      sync.RWMutex
	tasks   map[string]*models.DownloadTask
	order   []string
	version uint64
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{tasks: make(map[string]*models.DownloadTask)}
}

// Create registers a queued task for rawURL and returns its ID.
func (s *Store) Create(rawURL string) string {
	id := uuid.NewString()
	zero := 0.0
	t := &models.DownloadTask{
		ID:        id,
		URL:       rawURL,
		Status:    models.TaskQueued,
		Progress:  &zero,
		CreatedAt: time.Now().Unix(),
	}

	s.mu.Lock()
	s.tasks[id] = t
	s.order = append(s.order, id)
	s.version++
	s.mu.Unlock()
	return id
}

// Update applies fn to the task under the store lock. Unknown IDs are ignored.
func (s *Store) Update(id string, fn func(t *models.DownloadTask)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return
	}
	fn(t)
	s.version++
}

// Get returns a copy of the task.
func (s *Store) Get(id string) (models.DownloadTask, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return models.DownloadTask{}, false
	}
	return copyTask(t), true
}

// List returns copies of all tasks in creation order.
func (s *Store) List() []models.DownloadTask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DownloadTask, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyTask(s.tasks[id]))
	}
	return out
}

// Version increases on every change; watchers compare it to skip
// unchanged snapshots.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// CleanupCompleted drops completed tasks and returns how many were removed.
func (s *Store) CleanupCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	removed := 0
	for _, id := range s.order {
		if s.tasks[id].Status == models.TaskCompleted {
			delete(s.tasks, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	if removed > 0 {
		s.version++
	}
	return removed
}

func copyTask(t *models.DownloadTask) models.DownloadTask {
	c := *t
	if t.Progress != nil {
		p := *t.Progress
		c.Progress = &p
	}
	return c
}
