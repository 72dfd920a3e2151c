package report

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sessions holds the in-memory jobs of active reporting sessions. A session
// expires after ttl without activity.
type Sessions struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
	now  func() time.Time
}

func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Sessions{jobs: make(map[string]*Job), ttl: ttl, now: time.Now}
}

// NewID issues a fresh session identifier.
func NewID() string { return uuid.NewString() }

// Job returns the live job of id, creating it when absent or expired.
func (s *Sessions) Job(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now)
	j, ok := s.jobs[id]
	if !ok {
		j = newJob(id, now)
		s.jobs[id] = j
	}
	j.touch(now)
	return j
}

// Lookup returns the live job of id without creating one.
func (s *Sessions) Lookup(id string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
	j, ok := s.jobs[id]
	return j, ok
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
	return len(s.jobs)
}

func (s *Sessions) sweepLocked(now time.Time) {
	for id, j := range s.jobs {
		if now.Sub(j.lastUpdate()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}
