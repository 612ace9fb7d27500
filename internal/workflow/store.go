package workflow

import (
	"sync"
	"time"

	"github.com/ollamageek/gateway/pkg/models"
)

// Store holds workflows in memory, keyed by ID (spec §4.9). Grounded on the
// teacher's internal/agent's in-memory session map shape, mirrored here by
// sessionstore.Store.
type Store struct {
	mu        sync.Mutex
	workflows map[string]*models.Workflow
	ttl       time.Duration
}

// NewStore creates a Store. The sweeper evicts a terminal workflow once
// its StartTime is older than ttl; the age is counted from StartTime, not
// from when the workflow became terminal (SPEC_FULL.md's 24h cleanup
// addition).
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{workflows: make(map[string]*models.Workflow), ttl: ttl}
}

// Put inserts or replaces a workflow.
func (s *Store) Put(wf *models.Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[wf.ID] = wf
}

// Get returns the workflow for id.
func (s *Store) Get(id string) (*models.Workflow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.workflows[id]
	return wf, ok
}

// Delete removes a workflow.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workflows, id)
}

// List returns all workflows in no particular order.
func (s *Store) List() []*models.Workflow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Workflow, 0, len(s.workflows))
	for _, wf := range s.workflows {
		out = append(out, wf)
	}
	return out
}

// Sweep evicts terminal workflows whose StartTime is older than the TTL
// (spec §4.9 addition: "24h-TTL cleanup sweeper").
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	now := time.Now()
	for id, wf := range s.workflows {
		if wf.Status.IsTerminal() && now.Sub(wf.StartTime) > s.ttl {
			delete(s.workflows, id)
			evicted++
		}
	}
	return evicted
}
