// Package cache 缓存层抽象接口
//
// 提供会话等临时状态的存取能力，由 Redis 或进程内存实现。
package cache

import (
	"context"
)

// SessionStore 会话存储接口
type SessionStore interface {
	// SaveSession 保存会话，有效期由 ExpiresAt 决定
	SaveSession(ctx context.Context, session *Session) error
	// GetSession 获取会话，不存在或已过期时返回 (nil, nil)
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	Close() error
}
