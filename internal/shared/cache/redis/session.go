package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"pearlbox/internal/shared/cache"
)

func sessionKey(id string) string {
	return cache.KeySession + id
}

// SaveSession 以 JSON 保存会话，TTL 取 ExpiresAt 剩余时间
func (s *Store) SaveSession(ctx context.Context, session *cache.Session) error {
	if session == nil || session.ID == "" {
		return errors.New("session id is required")
	}
	ttl := session.TTL(s.now())
	if session.ExpiresAt.IsZero() {
		ttl = 0
	} else if ttl <= 0 {
		return s.DeleteSession(ctx, session.ID)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, sessionKey(session.ID), data, ttl).Err()
}

// GetSession 获取会话，不存在时返回 (nil, nil)
func (s *Store) GetSession(ctx context.Context, id string) (*cache.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session cache.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if session.Expired(s.now()) {
		return nil, nil
	}
	return &session, nil
}

// DeleteSession 删除会话
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKey(id)).Err()
}
