package presence

import (
	"context"

	"github.com/go-redis/redis/v8"
)

const agentKeyPrefix = "agent:online:"

// RedisStore keeps one TTL key per live agent; expiry does the eviction.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) MarkAgentSeen(ctx context.Context, agentID string) error {
	return s.client.Set(ctx, agentKeyPrefix+agentID, "1", AgentLivenessWindow).Err()
}

func (s *RedisStore) OnlineAgentCount(ctx context.Context) (int, error) {
	count := 0
	iter := s.client.Scan(ctx, 0, agentKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	return count, nil
}
