package progress

import (
	"sync"
	"time"

	"github.com/snaptag/gateway/models"
)

// Session is one in-flight (or recently finished) batch upload: its
// aggregator plus the final outcome once the upload goroutine resolves.
type Session struct {
	ID        string
	Agg       *Aggregator
	CreatedAt time.Time

	mu      sync.Mutex
	albumID string
	images  []models.Image
	err     error
}

// Complete records a successful outcome.
func (s *Session) Complete(albumID string, images []models.Image) {
	s.mu.Lock()
	s.albumID = albumID
	s.images = images
	s.mu.Unlock()
}

// Fail records the classified upload error and fails the aggregator.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.Agg.Fail(err)
}

// Result returns the outcome; images are nil until the upload resolves.
func (s *Session) Result() (albumID string, images []models.Image, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.albumID, s.images, s.err
}

// Registry tracks upload sessions by ID. Finished sessions linger for a
// retention window so the UI can still poll the final state, then get
// pruned (which also stops their animation timers).
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	retention time.Duration
}

func NewRegistry(retention time.Duration) *Registry {
	if retention <= 0 {
		retention = 15 * time.Minute
	}
	return &Registry{
		sessions:  make(map[string]*Session),
		retention: retention,
	}
}

// Create registers a new session and opportunistically prunes stale ones.
func (r *Registry) Create(id string) *Session {
	s := &Session{
		ID:        id,
		Agg:       NewAggregator(),
		CreatedAt: time.Now(),
	}
	r.mu.Lock()
	r.pruneLocked()
	r.sessions[id] = s
	r.mu.Unlock()
	return s
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove drops a session and stops its aggregator so no timer or callback
// outlives it.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if ok {
		s.Agg.Stop()
	}
}

func (r *Registry) pruneLocked() {
	cutoff := time.Now().Add(-r.retention)
	for id, s := range r.sessions {
		if s.CreatedAt.Before(cutoff) && s.Agg.Snapshot().Phase.Terminal() {
			delete(r.sessions, id)
			go s.Agg.Stop()
		}
	}
}
