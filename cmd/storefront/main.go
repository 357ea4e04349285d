// Package main Pearl Box 店铺入口
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pearlbox/internal/config"
	"pearlbox/internal/shared/cache"
	redisstore "pearlbox/internal/shared/cache/redis"
	"pearlbox/internal/shared/metrics"
	"pearlbox/internal/shared/notify"
	"pearlbox/internal/shared/objstore"
	"pearlbox/internal/shared/storage/dbutil"
	"pearlbox/internal/shared/storage/factory"
	"pearlbox/internal/storefront/server"
	"pearlbox/pkg/logging"
	"pearlbox/web"
)

func main() {
	configDir := flag.String("config", "", "config directory (overrides CONFIG_DIR)")
	flag.Parse()
	if *configDir != "" {
		config.SetConfigDir(*configDir)
	}

	cfg := config.Load()
	logger := logging.New(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Component: "storefront",
	})

	logger.Info("[storefront] Starting", "env", cfg.Env)
	logger.Info("[storefront] Config", "config", cfg.String())

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("[storefront] Fatal")
		os.Exit(1)
	}
	fmt.Println("Server stopped")
}

func run(cfg *config.Config, logger *logging.Logger) error {
	driver, err := dbutil.ParseDriverType(cfg.DatabaseDriver)
	if err != nil {
		return err
	}
	store, err := factory.NewPersistentStore(driver, cfg.DatabaseURL, logger.Named("storage"))
	if err != nil {
		return fmt.Errorf("open %s database: %w", driver, err)
	}
	defer store.Close()
	logger.Info("[storefront] Connected to database", "driver", driver)

	// 会话：配置了 Redis 时多实例共享，否则保存在进程内存
	var sessions cache.SessionStore
	if cfg.RedisURL != "" {
		rs, err := redisstore.NewStoreFromURL(cfg.RedisURL, logger.Named("redis"))
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rs.Close()
		sessions = rs
		logger.Info("[storefront] Sessions stored in Redis")
	} else {
		ms := cache.NewMemoryStore()
		defer ms.Close()
		sessions = ms
		logger.Info("[storefront] Sessions stored in memory")
	}

	var notifier notify.Notifier
	if cfg.MailEnabled() {
		smtp, err := notify.NewSMTPNotifier(cfg.Mail, logger.Named("mail"))
		if err != nil {
			return err
		}
		notifier = smtp
	} else {
		logger.Warn("[storefront] MAIL_SERVER not set, emails are only logged")
		notifier = notify.NewLogNotifier(logger.Named("mail"))
	}

	images, err := newImageStore(cfg, logger)
	if err != nil {
		return err
	}

	templates, err := web.TemplatesFS()
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	static, err := web.StaticFS()
	if err != nil {
		return fmt.Errorf("load static assets: %w", err)
	}

	srv, err := server.New(server.Deps{
		Store:         store,
		Sessions:      sessions,
		Notifier:      notifier,
		Images:        images,
		Metrics:       metrics.New(),
		Logger:        logger,
		SecretKey:     cfg.Session.SecretKey,
		SessionTTL:    cfg.Session.TTL,
		SecureCookies: cfg.IsProduction(),
		AdminEmail:    cfg.AdminEmail,
		Templates:     templates,
		Static:        static,
	})
	if err != nil {
		return err
	}
	srv.RefreshProductCount(context.Background())

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	// 优雅关闭
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("[storefront] Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpSrv.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("[storefront] Server shutdown error")
		}
	}()

	logger.Info("[storefront] Listening", "addr", httpSrv.Addr, "embedded_assets", web.IsEmbedded())
	if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// newImageStore 配置了 MinIO 时使用对象存储，否则写入本地目录
func newImageStore(cfg *config.Config, logger *logging.Logger) (objstore.Store, error) {
	if !cfg.MinIOEnabled() {
		logger.Info("[storefront] Images stored on disk", "dir", cfg.UploadDir)
		return objstore.NewLocalStore(cfg.UploadDir)
	}
	s, err := objstore.NewMinIOStore(cfg.MinIO, logger.Named("minio"))
	if err != nil {
		return nil, fmt.Errorf("connect minio: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %q: %w", cfg.MinIO.Bucket, err)
	}
	logger.Info("[storefront] Images stored in MinIO", "endpoint", cfg.MinIO.Endpoint, "bucket", cfg.MinIO.Bucket)
	return s, nil
}
