package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RevocationStore tracks signed-out token ids until their natural expiry.
type RevocationStore interface {
	Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevocationStore keeps revoked token ids in process memory. Expired
// entries are swept every five minutes.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time // jti -> token expiry
	done    chan struct{}
	now     func() time.Time
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	s := &MemoryRevocationStore{
		entries: make(map[string]time.Time),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go s.cleanupLoop(5 * time.Minute)
	return s
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, jti, _ string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[jti] = expiresAt
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exp, ok := s.entries[jti]
	return ok && s.now().Before(exp), nil
}

// Count returns the number of tracked entries.
func (s *MemoryRevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (s *MemoryRevocationStore) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *MemoryRevocationStore) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *MemoryRevocationStore) cleanup() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti, exp := range s.entries {
		if !now.Before(exp) {
			delete(s.entries, jti)
		}
	}
}

// RedisRevocationStore shares revocations across server instances. Each
// revoked id is a key whose TTL is the token's remaining lifetime.
type RedisRevocationStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, prefix: "auth:revoked:", now: time.Now}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.prefix+jti, userID, ttl).Err()
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := s.client.Get(ctx, s.prefix+jti).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
