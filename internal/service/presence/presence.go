package presence

import (
	"context"
	"time"
)

// AgentLivenessWindow is how long after their last API call an agent still
// counts as online. There is no heartbeat endpoint; every authenticated
// staff request refreshes the mark.
const AgentLivenessWindow = 120 * time.Second

type Store interface {
	MarkAgentSeen(ctx context.Context, agentID string) error
	OnlineAgentCount(ctx context.Context) (int, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) MarkAgent(ctx context.Context, agentID string) error {
	if agentID == "" {
		return nil
	}
	return s.store.MarkAgentSeen(ctx, agentID)
}

// AgentOnline reports whether any staff member is live. Errors degrade to
// offline so the widget falls back to the lead form instead of failing.
func (s *Service) AgentOnline(ctx context.Context) bool {
	return s.OnlineCount(ctx) > 0
}

// OnlineCount degrades to zero on store errors, same as AgentOnline.
func (s *Service) OnlineCount(ctx context.Context) int {
	count, err := s.store.OnlineAgentCount(ctx)
	if err != nil {
		return 0
	}
	return count
}
