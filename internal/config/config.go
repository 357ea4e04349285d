package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultSecretKey  = "supersecretkey"
	defaultAdminEmail = "admin@pearlbox.com"
)

// configDir 由外部通过 SetConfigDir 指定，优先级最高
var configDir string

// envSearchDirs .env 文件搜索目录（仅 dev/test 使用）
var envSearchDirs = []string{".", ".."}

// SetConfigDir 设置配置文件目录（用于 --config 命令行参数）
func SetConfigDir(dir string) {
	configDir = dir
}

// Load 加载配置
// 1. 加载 .env.{env}（敏感信息）
// 2. 加载 {env}.yaml
// 3. 环境变量覆盖 YAML
func Load() *Config {
	env := parseEnv(getEnv("APP_ENV", "dev"))
	loadEnvFiles(env)

	yamlCfg, loadedFrom := loadYAMLConfig(env)
	return resolve(env, yamlCfg, loadedFrom)
}

// resolve 合并 YAML 与环境变量，得到最终配置
func resolve(env Environment, y *YAMLConfig, loadedFrom string) *Config {
	y.Database.Password = os.Getenv("DB_PASSWORD")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = buildDatabaseURL(y.Database, y.Database.Password)
	}

	cfg := &Config{
		Env:            env,
		Port:           getEnv("PORT", y.Server.Port),
		DatabaseDriver: detectDatabaseDriver(y.Database.Driver, databaseURL),
		DatabaseURL:    databaseURL,
		RedisURL:       getEnv("REDIS_URL", y.Redis.URL),
		Session: SessionConfig{
			SecretKey: getEnv("SECRET_KEY", defaultSecretKey),
			TTL:       parseDuration(os.Getenv("SESSION_TTL"), y.Session.TTL),
		},
		Mail: MailConfig{
			Host:     getEnv("MAIL_SERVER", y.Mail.Host),
			Port:     parseInt(os.Getenv("MAIL_PORT"), y.Mail.Port),
			UseTLS:   parseBool(os.Getenv("MAIL_USE_TLS"), y.Mail.UseTLS),
			Username: os.Getenv("MAIL_USERNAME"),
			Password: os.Getenv("MAIL_PASSWORD"),
			From:     getEnv("MAIL_DEFAULT_SENDER", y.Mail.From),
		},
		AdminEmail: getEnv("ADMIN_EMAIL", defaultAdminEmail),
		UploadDir:  getEnv("UPLOAD_FOLDER", y.Upload.Dir),
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", y.MinIO.Endpoint),
			AccessKey: os.Getenv("MINIO_ROOT_USER"),
			SecretKey: os.Getenv("MINIO_ROOT_PASSWORD"),
			UseSSL:    y.MinIO.UseSSL,
			Bucket:    getEnv("MINIO_BUCKET", y.MinIO.Bucket),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", y.Log.Level),
			Format: getEnv("LOG_FORMAT", y.Log.Format),
		},
		ConfigFilePath: loadedFrom,
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.Username
	}

	if env == EnvProduction && cfg.Session.SecretKey == defaultSecretKey {
		log.Printf("[config] WARNING: SECRET_KEY is not set, using the built-in default")
	}
	return cfg
}

// defaults 硬编码默认值
func defaults() *YAMLConfig {
	return &YAMLConfig{
		Server:   ServerConfig{Port: "5000"},
		Database: DatabaseConfig{Driver: "sqlite", Path: "pearlbox.db", Host: "localhost", Port: 5432, User: "pearlbox", Name: "pearlbox", SSLMode: "disable"},
		Session:  SessionConfig{TTL: 7 * 24 * time.Hour},
		Mail:     MailConfig{Port: 587, UseTLS: true},
		Upload:   UploadConfig{Dir: "static/images"},
		MinIO:    MinIOConfig{Bucket: "pearlbox"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// loadYAMLConfig 加载顺序：默认值 → {env}.yaml
func loadYAMLConfig(env Environment) (*YAMLConfig, string) {
	cfg := defaults()

	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range effectiveConfigPaths(env) {
		path := filepath.Join(base, filename)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Printf("[config] WARNING: failed to parse %s: %v", path, err)
			continue
		}
		return cfg, path
	}
	return cfg, ""
}

// effectiveConfigPaths 返回实际搜索路径
//
// 优先级：
//  1. --config 命令行参数（SetConfigDir）
//  2. CONFIG_DIR 环境变量
//  3. 按 APP_ENV 选择默认路径
func effectiveConfigPaths(env Environment) []string {
	if configDir != "" {
		return []string{configDir}
	}
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return []string{dir}
	}
	if env == EnvProduction {
		return []string{"/etc/pearlbox"}
	}
	return []string{"configs", "../configs"}
}

// loadEnvFiles 加载 .env.{env}
// 生产环境不搜索 .env 文件；godotenv.Load 不覆盖已有环境变量
func loadEnvFiles(env Environment) {
	if env == EnvProduction {
		return
	}
	envFileName := fmt.Sprintf(".env.%s", string(env))
	for _, dir := range envSearchDirs {
		if err := godotenv.Load(filepath.Join(dir, envFileName)); err == nil {
			break
		}
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(s string, fallback bool) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
