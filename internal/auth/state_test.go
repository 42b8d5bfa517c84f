package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateStoreSingleUse(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStateStore(time.Minute)

	state, err := s.Issue(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, state)

	assert.NoError(t, s.Consume(ctx, state))
	assert.ErrorIs(t, s.Consume(ctx, state), ErrInvalidState)
	assert.ErrorIs(t, s.Consume(ctx, "forged"), ErrInvalidState)
}

func TestMemoryStateStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStateStore(20 * time.Millisecond)

	state, err := s.Issue(ctx)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.ErrorIs(t, s.Consume(ctx, state), ErrInvalidState)
}

type memKV struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func (m *memKV) SetTTL(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memKV) Take(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	delete(m.data, key)
	return v, ok, nil
}

func TestRedisStateStore(t *testing.T) {
	ctx := context.Background()
	kv := &memKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
	s := NewRedisStateStore(kv, DefaultStateTTL)

	state, err := s.Issue(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultStateTTL, kv.ttls["automail:oauth_state:"+state])

	assert.NoError(t, s.Consume(ctx, state))
	assert.ErrorIs(t, s.Consume(ctx, state), ErrInvalidState)
	assert.ErrorIs(t, s.Consume(ctx, ""), ErrInvalidState)
}
