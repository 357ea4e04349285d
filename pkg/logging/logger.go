// Package logging 结构化日志
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// ContextKey 上下文键类型
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	UserIDKey    ContextKey = "user_id"
)

// Logger 结构化日志器
type Logger struct {
	*slog.Logger
	root      *slog.Logger // 不带 component 属性
	component string
}

// Config 日志配置
type Config struct {
	Level     string `json:"level"`
	Format    string `json:"format"` // json or text
	Output    string `json:"output"` // stdout, stderr, or file path
	Component string `json:"component"`
}

// New 创建新的日志器
func New(cfg Config) *Logger {
	var output io.Writer
	switch cfg.Output {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			output = os.Stdout
		} else {
			output = f
		}
	}
	return NewWithWriter(cfg, output)
}

// NewWithWriter 使用指定 writer 创建日志器（测试中写入 buffer）
func NewWithWriter(cfg Config, output io.Writer) *Logger {
	level := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	root := slog.New(handler)
	return &Logger{
		Logger:    root.With(slog.String("component", cfg.Component)),
		root:      root,
		component: cfg.Component,
	}
}

// ParseLevel 解析日志级别，未知值视为 info
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default 创建默认日志器
func Default(component string) *Logger {
	return New(Config{
		Level:     os.Getenv("LOG_LEVEL"),
		Format:    os.Getenv("LOG_FORMAT"),
		Output:    "stdout",
		Component: component,
	})
}

// Discard 丢弃所有输出的日志器
func Discard() *Logger {
	return NewWithWriter(Config{Component: "discard"}, io.Discard)
}

// Component 返回组件名
func (l *Logger) Component() string {
	return l.component
}

// Named 派生一个新组件名的日志器，共享同一 handler
func (l *Logger) Named(component string) *Logger {
	return &Logger{
		Logger:    l.root.With(slog.String("component", component)),
		root:      l.root,
		component: component,
	}
}

// WithContext 从上下文提取请求信息
func (l *Logger) WithContext(ctx context.Context) *Logger {
	var attrs []any
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}
	if userID, ok := ctx.Value(UserIDKey).(int64); ok && userID != 0 {
		attrs = append(attrs, slog.Int64("user_id", userID))
	}
	if len(attrs) == 0 {
		return l
	}
	return l.with(attrs...)
}

// WithUserID 添加用户 ID
func (l *Logger) WithUserID(userID int64) *Logger {
	return l.with(slog.Int64("user_id", userID))
}

// WithOrderID 添加订单 ID
func (l *Logger) WithOrderID(orderID int64) *Logger {
	return l.with(slog.Int64("order_id", orderID))
}

// WithProductID 添加商品 ID
func (l *Logger) WithProductID(productID int64) *Logger {
	return l.with(slog.Int64("product_id", productID))
}

// WithError 添加错误信息
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.with(slog.String("error", err.Error()))
}

// WithDuration 添加持续时间
func (l *Logger) WithDuration(d time.Duration) *Logger {
	return l.with(slog.Float64("duration_ms", float64(d.Milliseconds())))
}

func (l *Logger) with(attrs ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(attrs...),
		root:      l.root,
		component: l.component,
	}
}

// HTTPRequestLog HTTP 请求日志
func (l *Logger) HTTPRequestLog(method, path string, status int, duration time.Duration, clientIP string) {
	attrs := []any{
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
		slog.String("client_ip", clientIP),
	}
	if status >= 500 {
		l.Logger.Error("HTTP request", attrs...)
		return
	}
	l.Logger.Info("HTTP request", attrs...)
}

// DBQueryLog 数据库查询日志
func (l *Logger) DBQueryLog(operation, table string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("table", table),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		l.Logger.Error("DB query failed", attrs...)
	} else {
		l.Logger.Debug("DB query", attrs...)
	}
}

// MailLog 邮件发送日志
func (l *Logger) MailLog(kind, to string, err error) {
	attrs := []any{
		slog.String("kind", kind),
		slog.String("to", to),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		l.Logger.Warn("Mail delivery failed", attrs...)
		return
	}
	l.Logger.Info("Mail sent", attrs...)
}
