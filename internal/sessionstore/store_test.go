package sessionstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ollamageek/gateway/pkg/models"
)

func TestGetOrAssignIdempotent(t *testing.T) {
	s := New(50, 30*time.Minute)
	id1 := s.GetOrAssign("ua", "llama3.1:8b", 0)
	id2 := s.GetOrAssign("ua", "llama3.1:8b", 0)
	require.Equal(t, id1, id2)
	require.Len(t, id1, 16)
}

func TestUpdateTrimsToTail(t *testing.T) {
	s := New(3, 30*time.Minute)
	id := s.GetOrAssign("ua", "m", 0)

	msgs := []models.Message{{Role: "user", Content: "1"}, {Role: "user", Content: "2"}, {Role: "user", Content: "3"}, {Role: "user", Content: "4"}}
	s.Update(id, msgs)

	hist := s.History(id)
	require.Len(t, hist, 3)
	require.Equal(t, "2", hist[0].Content)
	require.Equal(t, "4", hist[2].Content)
}

func TestSweepEvictsExpiredSessions(t *testing.T) {
	s := New(50, time.Hour)
	id := s.GetOrAssign("ua", "m", 0)
	s.sessions[id].LastActivity = time.Now().Add(-2 * time.Hour)

	evicted := s.Sweep()
	require.Equal(t, 1, evicted)
	require.Empty(t, s.History(id))
}

func TestHistoryOfUnknownSessionIsEmpty(t *testing.T) {
	s := New(50, 30*time.Minute)
	require.Empty(t, s.History("does-not-exist"))
}

func TestStats(t *testing.T) {
	s := New(50, 30*time.Minute)
	id := s.GetOrAssign("ua", "m", 0)
	s.Update(id, []models.Message{{Role: "user", Content: "hi"}})

	stats := s.Stats()
	require.Equal(t, 1, stats.ActiveSessions)
	require.Equal(t, 1, stats.TotalMessages)
	require.NotNil(t, stats.OldestSession)
	require.WithinDuration(t, time.Now(), *stats.OldestSession, time.Second)
}
