// Package redis Redis 会话存储实现
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pearlbox/internal/shared/cache"
	"pearlbox/pkg/logging"
)

// Store Redis 会话存储
type Store struct {
	client *redis.Client
	now    func() time.Time
}

var _ cache.SessionStore = (*Store)(nil)

// NewStoreFromURL 从 URL 创建 Redis 会话存储，log 为 nil 时不输出日志
func NewStoreFromURL(redisURL string, log *logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Discard()
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("[redis] Session store connected", "addr", opts.Addr, "db", opts.DB)
	return NewStoreFromClient(client), nil
}

// NewStoreFromClient 从现有 Redis 客户端创建会话存储
func NewStoreFromClient(client *redis.Client) *Store {
	return &Store{client: client, now: time.Now}
}

// Close 关闭 Redis 连接
func (s *Store) Close() error {
	return s.client.Close()
}

// Client 返回底层 Redis 客户端
func (s *Store) Client() *redis.Client {
	return s.client
}
