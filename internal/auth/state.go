package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
)

// ErrInvalidState means the callback's state was never issued, was already
// used, or has expired.
var ErrInvalidState = errors.New("invalid or expired authorization state")

// DefaultStateTTL bounds how long a user may sit on the consent screen
const DefaultStateTTL = 10 * time.Minute

// StateStore issues single-use anti-forgery values for the authorization
// redirect
type StateStore interface {
	Issue(ctx context.Context) (string, error)
	Consume(ctx context.Context, state string) error
}

// MemoryStateStore keeps states in process memory
type MemoryStateStore struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

// NewMemoryStateStore creates a new MemoryStateStore
func NewMemoryStateStore(ttl time.Duration) *MemoryStateStore {
	return &MemoryStateStore{cache: gocache.New(ttl, time.Minute)}
}

// Issue implements StateStore
func (s *MemoryStateStore) Issue(_ context.Context) (string, error) {
	state := oauth2.GenerateVerifier()
	s.cache.SetDefault(state, struct{}{})
	return state, nil
}

// Consume implements StateStore
func (s *MemoryStateStore) Consume(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cache.Get(state); !ok {
		return ErrInvalidState
	}
	s.cache.Delete(state)
	return nil
}

// KeyValue is the subset of a Redis client the RedisStateStore needs.
// *database.Redis satisfies it.
type KeyValue interface {
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Take(ctx context.Context, key string) (string, bool, error)
}

// RedisStateStore keeps states in Redis so any server instance can finish
// the flow
type RedisStateStore struct {
	kv  KeyValue
	ttl time.Duration
}

// NewRedisStateStore creates a new RedisStateStore
func NewRedisStateStore(kv KeyValue, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{kv: kv, ttl: ttl}
}

// Issue implements StateStore
func (s *RedisStateStore) Issue(ctx context.Context) (string, error) {
	state := oauth2.GenerateVerifier()
	if err := s.kv.SetTTL(ctx, stateKey(state), "1", s.ttl); err != nil {
		return "", fmt.Errorf("failed to store authorization state: %w", err)
	}
	return state, nil
}

// Consume implements StateStore
func (s *RedisStateStore) Consume(ctx context.Context, state string) error {
	if state == "" {
		return ErrInvalidState
	}
	_, ok, err := s.kv.Take(ctx, stateKey(state))
	if err != nil {
		return fmt.Errorf("failed to read authorization state: %w", err)
	}
	if !ok {
		return ErrInvalidState
	}
	return nil
}

func stateKey(state string) string {
	return "automail:oauth_state:" + state
}
