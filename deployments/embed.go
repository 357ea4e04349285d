// Package deployments 嵌入部署相关文件到二进制
//
// 包含：
//   - migrations/*.sql: PostgreSQL 迁移脚本（golang-migrate 格式）
package deployments

import (
	"embed"
)

// MigrationFiles PostgreSQL 迁移脚本
//
//go:embed migrations/*.sql
var MigrationFiles embed.FS

// MigrationsDir MigrationFiles 中迁移脚本所在目录
const MigrationsDir = "migrations"
