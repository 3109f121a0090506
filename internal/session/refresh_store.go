package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

var errNoRefreshToken = errors.New("refresh token not found")

// refreshStore persists refresh tokens with a sliding TTL: every load
// pushes the expiry out again.
type refreshStore interface {
	save(ctx context.Context, key string, data []byte, ttl time.Duration) error
	load(ctx context.Context, key string, ttl time.Duration) ([]byte, error)
}

type redisRefreshStore struct {
	client *redis.Client
}

func (s *redisRefreshStore) save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *redisRefreshStore) load(ctx context.Context, key string, ttl time.Duration) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, errNoRefreshToken
	} else if err != nil {
		return nil, err
	}
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return nil, err
	}
	return []byte(val), nil
}

type memoryRefreshStore struct {
	mu      sync.Mutex
	entries map[string]memoryRefreshEntry
}

type memoryRefreshEntry struct {
	data      []byte
	expiresAt time.Time
}

func newMemoryRefreshStore() *memoryRefreshStore {
	return &memoryRefreshStore{entries: make(map[string]memoryRefreshEntry)}
}

func (s *memoryRefreshStore) save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryRefreshEntry{data: data, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *memoryRefreshStore) load(ctx context.Context, key string, ttl time.Duration) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(s.entries, key)
		return nil, errNoRefreshToken
	}
	entry.expiresAt = time.Now().Add(ttl)
	s.entries[key] = entry
	return entry.data, nil
}
