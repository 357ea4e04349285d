// Package cache 缓存层类型定义
package cache

import (
	"time"
)

// KeySession 会话 key 前缀
const KeySession = "pearlbox:session:"

// Flash 分类，与页面样式对应
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

// Flash 一次性提示消息，下一次页面渲染时展示后清除
type Flash struct {
	Category string `json:"category"` // success, info, warning, danger
	Message  string `json:"message"`
}

// Session 服务端会话数据
//
// Cookie 中只保存签名后的会话 ID，身份与提示消息都保存在服务端
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id,omitempty"` // 0 表示匿名
	Flashes   []Flash   `json:"flashes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Authenticated 是否已登录
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != 0
}

// Expired 是否已过期
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// TTL 剩余有效期
func (s *Session) TTL(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}

// Clone 深拷贝（内存存储返回副本，避免调用方修改共享数据）
func (s *Session) Clone() *Session {
	c := *s
	if s.Flashes != nil {
		c.Flashes = append([]Flash(nil), s.Flashes...)
	}
	return &c
}
