package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"userrealm/internal/platform/uow"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DataSourceConfig describes one pooled database.
type DataSourceConfig struct {
	Name              string
	DSN               string
	MaxOpenConns      int
	MaxIdleConns      int
	ConnMaxLifetime   time.Duration
	ConnMaxIdleTime   time.Duration
	ValidationTimeout time.Duration
}

// Postgres wraps DB connectivity and acts as a unit-of-work data source.
type Postgres struct {
	DB   *gorm.DB
	name string
}

func Connect(cfg DataSourceConfig) (*Postgres, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "primary"
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres %q: %w", name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle %q: %w", name, err)
	}
	applyPool(sqlDB, cfg)

	timeout := cfg.ValidationTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres %q: %w", name, err)
	}
	return &Postgres{DB: db, name: name}, nil
}

// Wrap adapts an already opened gorm handle.
func Wrap(name string, db *gorm.DB) *Postgres {
	return &Postgres{DB: db, name: name}
}

func applyPool(sqlDB *sql.DB, cfg DataSourceConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

func (p *Postgres) Name() string {
	return p.name
}

// Acquire begins a transaction for the unit of work.
func (p *Postgres) Acquire(ctx context.Context) (uow.Conn, error) {
	tx := p.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &GormConn{tx: tx}, nil
}

func (p *Postgres) Close() error {
	if p == nil || p.DB == nil {
		return nil
	}
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GormConn is a gorm transaction enlisted in a unit of work.
type GormConn struct {
	tx   *gorm.DB
	done bool
}

// DB returns the transactional handle.
func (c *GormConn) DB() *gorm.DB {
	return c.tx
}

func (c *GormConn) Commit() error {
	if err := c.tx.Commit().Error; err != nil {
		return err
	}
	c.done = true
	return nil
}

func (c *GormConn) Rollback() error {
	err := c.tx.Rollback().Error
	c.done = true
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// Close rolls back a transaction that was never finished.
func (c *GormConn) Close() error {
	if c.done {
		return nil
	}
	return c.Rollback()
}

// Session returns the handle a repository should use for p: the unit-of-work
// transaction when one is active on ctx, otherwise a plain session.
func Session(ctx context.Context, p *Postgres) (*gorm.DB, error) {
	if !uow.IsActive(ctx) {
		return p.DB.WithContext(ctx), nil
	}
	conn, err := uow.Connection(ctx, p)
	if err != nil {
		return nil, err
	}
	gc, ok := conn.(*GormConn)
	if !ok {
		return nil, fmt.Errorf("data source %q returned %T, want *db.GormConn", p.Name(), conn)
	}
	return gc.DB(), nil
}
