// Package factory 根据驱动类型创建持久化存储
//
// 使用方式：在 main.go 中调用 NewPersistentStore(driver, dsn) 创建实例并注入
package factory

import (
	"fmt"

	"pearlbox/internal/shared/storage"
	"pearlbox/internal/shared/storage/dbutil"
	pgdriver "pearlbox/internal/shared/storage/driver/postgres"
	sqlitedriver "pearlbox/internal/shared/storage/driver/sqlite"
	"pearlbox/internal/shared/storage/repository"
	"pearlbox/pkg/logging"
)

// NewSQLiteStore 创建 SQLite 存储（含自动建表）
func NewSQLiteStore(dsn string) (*repository.Store, error) {
	db, err := sqlitedriver.Open(dsn)
	if err != nil {
		return nil, err
	}
	dialect := sqlitedriver.NewDialect()
	if err := dialect.AutoMigrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite auto-migrate failed: %w", err)
	}
	return repository.NewStore(db, dialect), nil
}

// NewPostgresStore 创建 PostgreSQL 存储（先执行迁移脚本）
func NewPostgresStore(databaseURL string, log *logging.Logger) (*repository.Store, error) {
	if err := pgdriver.Migrate(databaseURL, log); err != nil {
		return nil, err
	}
	db, err := pgdriver.Open(databaseURL)
	if err != nil {
		return nil, err
	}
	return repository.NewStore(db, pgdriver.NewDialect()), nil
}

// NewPersistentStore 根据驱动类型和 DSN 创建持久化存储
// 支持的驱动类型：postgres, sqlite
func NewPersistentStore(driver dbutil.DriverType, dsn string, log *logging.Logger) (storage.PersistentStore, error) {
	var (
		store *repository.Store
		err   error
	)
	switch driver {
	case dbutil.DriverPostgres:
		store, err = NewPostgresStore(dsn, log)
	case dbutil.DriverSQLite:
		store, err = NewSQLiteStore(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	if err != nil {
		return nil, err
	}
	store.SetLogger(log)
	return store, nil
}
