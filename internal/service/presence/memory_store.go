package presence

import (
	"context"
	"sync"
	"time"
)

// MemoryStore backs tests and single-node deployments without redis.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		seen: make(map[string]time.Time),
		now:  now,
	}
}

func (s *MemoryStore) MarkAgentSeen(ctx context.Context, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[agentID] = s.now()
	return nil
}

func (s *MemoryStore) OnlineAgentCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-AgentLivenessWindow)
	count := 0
	for agentID, at := range s.seen {
		if at.Before(cutoff) {
			delete(s.seen, agentID)
			continue
		}
		count++
	}
	return count, nil
}
