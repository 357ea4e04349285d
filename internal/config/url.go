package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// buildDatabaseURL 根据驱动类型构建数据库连接字符串
func buildDatabaseURL(db DatabaseConfig, password string) string {
	switch strings.ToLower(db.Driver) {
	case "postgres":
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			db.User, password, db.Host, db.Port, db.Name, db.SSLMode)
	default: // sqlite
		dbPath := db.Path
		if dbPath == "" {
			dbPath = "pearlbox.db"
		}
		return fmt.Sprintf("file:%s?cache=shared&mode=rwc", dbPath)
	}
}

// detectDatabaseDriver 检测数据库驱动类型
// 优先级：DATABASE_URL 前缀 > YAML driver 字段 > 默认 sqlite
func detectDatabaseDriver(yamlDriver, databaseURL string) string {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return "postgres"
	}
	if strings.HasPrefix(databaseURL, "file:") || strings.HasPrefix(databaseURL, "sqlite:") {
		return "sqlite"
	}
	if d := strings.ToLower(yamlDriver); d == "sqlite" || d == "postgres" {
		return d
	}
	return "sqlite"
}

// maskPassword 隐藏密码
func maskPassword(url string) string {
	re := regexp.MustCompile(`(://[^:]+:)([^@]+)(@)`)
	return re.ReplaceAllString(url, "${1}***${3}")
}

// parseEnv 解析环境字符串
func parseEnv(env string) Environment {
	switch strings.ToLower(env) {
	case "test":
		return EnvTest
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

// getEnv 获取环境变量，支持默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsProduction 是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// MailEnabled 是否配置了 SMTP
func (c *Config) MailEnabled() bool {
	return c.Mail.Host != ""
}

// MinIOEnabled 是否使用 MinIO 存储商品图片
func (c *Config) MinIOEnabled() bool {
	return c.MinIO.Endpoint != ""
}

// String 返回配置摘要（隐藏密码）
func (c *Config) String() string {
	redis := c.RedisURL
	if redis == "" {
		redis = "memory"
	}
	return fmt.Sprintf("Config{Env: %s, Driver: %s, DB: %s, Sessions: %s, Mail: %s}",
		c.Env, c.DatabaseDriver, maskPassword(c.DatabaseURL), maskPassword(redis), c.Mail.Host)
}
