// Package config 统一配置管理
//
// 配置加载优先级（高→低）：
//  1. 环境变量（通过 .env 文件或 shell/systemd 注入）
//  2. YAML 配置文件（{env}.yaml，如 dev.yaml、test.yaml、prod.yaml）
//  3. 代码硬编码默认值
//
// 密码/密钥只从环境变量读取（YAML 中不存储任何密码）。
//
// 环境：
//   - 开发: APP_ENV=dev → configs/dev.yaml + .env.dev
//   - 测试: APP_ENV=test → configs/test.yaml + .env.test
//   - 生产: APP_ENV=prod → /etc/pearlbox/prod.yaml
package config

import "time"

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Session  SessionConfig  `yaml:"session"`
	Mail     MailConfig     `yaml:"mail"`
	Upload   UploadConfig   `yaml:"upload"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port string `yaml:"port"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "postgres" or "sqlite"（默认 sqlite）
	Path     string `yaml:"path"`   // SQLite 文件路径
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"-"` // 只从 DB_PASSWORD 环境变量读取
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	URL string `yaml:"url"` // 为空时会话保存在进程内存中
}

// SessionConfig 会话配置
// SecretKey 只从 SECRET_KEY 环境变量读取
type SessionConfig struct {
	SecretKey string        `yaml:"-"`
	TTL       time.Duration `yaml:"ttl"`
}

// MailConfig SMTP 配置
// Host 为空时不发送邮件，只记录日志
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	UseTLS   bool   `yaml:"use_tls"`
	Username string `yaml:"-"` // 只从 MAIL_USERNAME 读取
	Password string `yaml:"-"` // 只从 MAIL_PASSWORD 读取
	From     string `yaml:"from"`
}

// UploadConfig 商品图片本地存储目录
type UploadConfig struct {
	Dir string `yaml:"dir"`
}

// MinIOConfig MinIO 对象存储配置
// Endpoint 为空时使用本地目录
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"-"` // 只从 MINIO_ROOT_USER 环境变量读取
	SecretKey string `yaml:"-"` // 只从 MINIO_ROOT_PASSWORD 环境变量读取
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env            Environment
	Port           string
	DatabaseDriver string // "postgres" or "sqlite"
	DatabaseURL    string
	RedisURL       string
	Session        SessionConfig
	Mail           MailConfig
	AdminEmail     string
	UploadDir      string
	MinIO          MinIOConfig
	Log            LogConfig
	ConfigFilePath string // 实际加载的配置文件路径
}
