package redis

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pearlbox/internal/shared/cache"
	"pearlbox/pkg/logging"
)

// newTestStore 连接 REDIS_URL 指定的 Redis，未设置时跳过
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping Redis tests")
	}
	s, err := NewStoreFromURL(url, logging.Discard())
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	session := &cache.Session{
		ID:        uuid.NewString(),
		UserID:    42,
		Flashes:   []cache.Flash{{Category: "success", Message: "Order placed successfully!"}},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Minute),
	}
	require.NoError(t, s.SaveSession(ctx, session))
	t.Cleanup(func() { s.DeleteSession(ctx, session.ID) })

	got, err := s.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, session.Flashes, got.Flashes)

	ttl, err := s.Client().TTL(ctx, sessionKey(session.ID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	require.NoError(t, s.DeleteSession(ctx, session.ID))
	got, err = s.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveExpiredSessionDeletes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := uuid.NewString()

	require.NoError(t, s.SaveSession(ctx, &cache.Session{ID: id, ExpiresAt: time.Now().Add(time.Minute)}))
	require.NoError(t, s.SaveSession(ctx, &cache.Session{ID: id, ExpiresAt: time.Now().Add(-time.Second)}))

	got, err := s.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetMissingSession(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetSession(context.Background(), "missing-"+uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNewStoreFromURL_InvalidURL(t *testing.T) {
	_, err := NewStoreFromURL("not-a-redis-url", nil)
	assert.ErrorContains(t, err, "parse Redis URL")
}

func TestNewStoreFromURL_LogsConnection(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping Redis tests")
	}
	var buf bytes.Buffer
	log := logging.NewWithWriter(logging.Config{Level: "info", Component: "redis"}, &buf)

	s, err := NewStoreFromURL(url, log)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer s.Close()

	assert.Contains(t, buf.String(), "[redis] Session store connected")
}
