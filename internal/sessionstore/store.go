// Package sessionstore is the in-memory session map described in spec §4.2:
// stable deterministic identity, bounded per-session history, and
// TTL-based eviction. Grounded on the teacher's internal/sessions/memory.go
// (map + sync.RWMutex + deep-cloned reads) adapted to the gateway's
// deterministic-hash identity instead of random session creation.
package sessionstore

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"github.com/ollamageek/gateway/pkg/models"
)

// Store is the gateway's session map (spec §3/§4.2).
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session

	maxHistory int
	timeout    time.Duration
}

// New creates a Store bounding history to maxHistory messages and expiring
// sessions timeout after their last activity.
func New(maxHistory int, timeout time.Duration) *Store {
	if maxHistory <= 0 {
		maxHistory = 50
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Store{
		sessions:   make(map[string]*models.Session),
		maxHistory: maxHistory,
		timeout:    timeout,
	}
}

// Identity computes the deterministic 16-hex-char session id from the
// triple (userAgent, model, messageCount at creation) per spec §3/§4.2.
func Identity(userAgent, model string, messageCount int) string {
	sum := sha256.Sum256([]byte(userAgent + "|" + model + "|" + strconv.Itoa(messageCount)))
	return hex.EncodeToString(sum[:])[:16]
}

// GetOrAssign resolves the deterministic session id for (userAgent, model)
// given the request's current message count, creating an empty session if
// none exists or if the prior one expired (spec §4.2: "expired sessions are
// invisible to lookup"; eviction is silent).
func (s *Store) GetOrAssign(userAgent, model string, messageCount int) string {
	id := Identity(userAgent, model, messageCount)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[id]; ok {
		if s.expired(existing) {
			delete(s.sessions, id)
		} else {
			return id
		}
	}
	s.sessions[id] = &models.Session{
		ID:           id,
		Messages:     nil,
		LastActivity: time.Now(),
		MessageCount: 0,
	}
	return id
}

// History returns a copy of the session's message history, or an empty
// slice if the session is absent or expired (spec §4.2 lookup semantics).
func (s *Store) History(id string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || s.expired(session) {
		delete(s.sessions, id)
		return nil
	}
	out := make([]models.Message, len(session.Messages))
	copy(out, session.Messages)
	return out
}

// Update trims messages to the most recent maxHistory (tail-keep),
// refreshes LastActivity, and increments MessageCount (spec §4.2).
// A session id for a since-expired or never-created session is
// re-created transparently: spec §8 requires an in-flight chat to update
// "a new session id derived at request time, not the expired one", which
// callers achieve by re-deriving the id via GetOrAssign before Update.
func (s *Store) Update(id string, messages []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed := messages
	if len(trimmed) > s.maxHistory {
		trimmed = trimmed[len(trimmed)-s.maxHistory:]
	}
	copied := make([]models.Message, len(trimmed))
	copy(copied, trimmed)

	session, ok := s.sessions[id]
	if !ok {
		session = &models.Session{ID: id}
		s.sessions[id] = session
	}
	session.Messages = copied
	session.LastActivity = time.Now()
	session.MessageCount++
}

func (s *Store) expired(session *models.Session) bool {
	return time.Since(session.LastActivity) > s.timeout
}

// Sweep evicts every session whose last activity exceeds the configured
// timeout. Intended to be invoked periodically (spec §4.2: "every 5
// minutes"); SPEC_FULL.md wires this as a robfig/cron job rather than a
// bare goroutine loop.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, session := range s.sessions {
		if s.expired(session) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Stats backs GET /api/sessions (spec §6; payload shape added in
// SPEC_FULL.md since spec.md names the endpoint without defining it).
type Stats struct {
	ActiveSessions int        `json:"activeSessions"`
	TotalMessages  int        `json:"totalMessages"`
	OldestSession  *time.Time `json:"oldestSession"`
}

// Stats reports current store occupancy.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{ActiveSessions: len(s.sessions)}
	for _, session := range s.sessions {
		stats.TotalMessages += len(session.Messages)
		if stats.OldestSession == nil || session.LastActivity.Before(*stats.OldestSession) {
			t := session.LastActivity
			stats.OldestSession = &t
		}
	}
	return stats
}
