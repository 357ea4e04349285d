// Package repository 数据库无关的存储实现
//
// 通过 dbutil.Dialect 接口屏蔽不同数据库的 SQL 差异，
// 所有 SQL 以 PostgreSQL 风格编写，运行时由 Dialect.Rebind() 转换。
package repository

import (
	"context"
	"database/sql"
	"time"

	"pearlbox/internal/shared/storage"
	"pearlbox/internal/shared/storage/dbutil"
	"pearlbox/pkg/logging"
)

// Store 通用存储实现
type Store struct {
	db      *sql.DB
	dialect dbutil.Dialect
	log     *logging.Logger
	clock   func() time.Time
}

var _ storage.PersistentStore = (*Store)(nil)

// NewStore 创建通用存储
func NewStore(db *sql.DB, dialect dbutil.Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		log:     logging.Discard(),
		clock:   time.Now,
	}
}

// SetLogger 设置慢查询/失败查询日志器
func (s *Store) SetLogger(l *logging.Logger) {
	if l != nil {
		s.log = l
	}
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping 检查数据库连接
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB 返回底层数据库连接（仅用于测试）
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect 返回当前方言
func (s *Store) Dialect() dbutil.Dialect {
	return s.dialect
}

// rebind 快捷方法：将 PG 风格 SQL 转换为当前方言
func (s *Store) rebind(query string) string {
	return s.dialect.Rebind(query)
}

// now 当前时间（UTC，微秒精度，与 PostgreSQL TIMESTAMPTZ 一致）
func (s *Store) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// queryer *sql.DB 与 *sql.Tx 的公共子集
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner *sql.Row 与 *sql.Rows 的公共子集
type rowScanner interface {
	Scan(dest ...any) error
}
