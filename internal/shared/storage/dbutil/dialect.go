// Package dbutil 提供数据库方言抽象和工具函数
//
// 通过 Dialect 接口屏蔽 PostgreSQL 与 SQLite 的 SQL 差异，
// 使 repository 层可以编写与数据库无关的业务逻辑。
package dbutil

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// DriverType 数据库驱动类型
type DriverType string

const (
	DriverPostgres DriverType = "postgres"
	DriverSQLite   DriverType = "sqlite"
)

// ParseDriverType 解析驱动名称
func ParseDriverType(s string) (DriverType, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql":
		return DriverPostgres, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", s)
	}
}

// Dialect 数据库方言接口
//
//   - 占位符：PostgreSQL 用 $1, $2；SQLite 用 ?
//   - 时间函数：PostgreSQL 用 NOW()；SQLite 用 datetime('now')
//   - 约束错误：各驱动的错误类型与错误码不同
type Dialect interface {
	// DriverType 返回驱动类型标识
	DriverType() DriverType

	// Rebind 将 PostgreSQL 风格的占位符 ($1, $2, ...) 转换为目标数据库的占位符格式
	// 转换为 ? 后按出现顺序绑定参数，因此同一条 SQL 中每个 $N 只能出现一次
	Rebind(query string) string

	// CurrentTimestamp 返回当前时间戳的 SQL 表达式
	CurrentTimestamp() string

	// IsUniqueViolation 是否为唯一约束冲突
	IsUniqueViolation(err error) bool

	// IsForeignKeyViolation 是否为外键约束冲突
	IsForeignKeyViolation(err error) bool

	// AutoMigrate 自动创建/迁移数据库 Schema
	AutoMigrate(db *sql.DB) error
}

// pgPlaceholderRe 匹配 PostgreSQL 风格占位符 $1, $2, ...
var pgPlaceholderRe = regexp.MustCompile(`\$(\d+)`)

// pgCastRe 匹配 PostgreSQL 类型转换 ::type
var pgCastRe = regexp.MustCompile(`::(\w+)`)

// RebindToPositional 保持 $N 占位符不变（PostgreSQL 专用）
func RebindToPositional(query string) string {
	return query
}

// RebindToQuestion 将 $N 占位符转换为 ?（SQLite 专用）
func RebindToQuestion(query string) string {
	return pgPlaceholderRe.ReplaceAllString(query, "?")
}

// StripPgCasts 去除 PostgreSQL 类型转换 (::varchar, ::text 等)
func StripPgCasts(query string) string {
	return pgCastRe.ReplaceAllString(query, "")
}

// QueryBuilder 逐步追加 WHERE 条件并自动编号占位符
//
//	qb := NewQueryBuilder("SELECT ... FROM products")
//	qb.Where("category = $?", "rings")
//	query, args := qb.Build(dialect)
type QueryBuilder struct {
	base       string
	conditions []string
	args       []interface{}
	suffix     string
}

// NewQueryBuilder 创建查询构建器
func NewQueryBuilder(base string) *QueryBuilder {
	return &QueryBuilder{base: base}
}

// Where 追加条件，条件中的 $? 会被替换为下一个编号占位符
func (b *QueryBuilder) Where(cond string, arg interface{}) *QueryBuilder {
	b.args = append(b.args, arg)
	b.conditions = append(b.conditions, strings.Replace(cond, "$?", fmt.Sprintf("$%d", len(b.args)), 1))
	return b
}

// Suffix 追加 ORDER BY / LIMIT 等尾部子句；$? 同样会被编号
func (b *QueryBuilder) Suffix(clause string, args ...interface{}) *QueryBuilder {
	for _, arg := range args {
		b.args = append(b.args, arg)
		clause = strings.Replace(clause, "$?", fmt.Sprintf("$%d", len(b.args)), 1)
	}
	b.suffix += " " + clause
	return b
}

// Build 生成目标方言的 SQL 与参数
func (b *QueryBuilder) Build(d Dialect) (string, []interface{}) {
	query := b.base
	if len(b.conditions) > 0 {
		query += " WHERE " + strings.Join(b.conditions, " AND ")
	}
	query += b.suffix
	return d.Rebind(query), b.args
}
