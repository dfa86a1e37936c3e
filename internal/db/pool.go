package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"horse.fit/newslink/internal/config"
	"horse.fit/newslink/internal/globaltime"
)

var (
	ErrNoRows         = sql.ErrNoRows
	errNotInitialized = errors.New("database pool is not initialized")
)

const uniqueViolationCode = "23505"

// Row defers errors to Scan, like sql.Row, and tolerates an uninitialized pool.
type Row struct {
	row *sql.Row
	err error
}

func (r *Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return r.row.Scan(dest...)
}

// conn runs raw SQL with $n placeholders on the pool or inside a transaction.
type conn struct {
	gdb *gorm.DB
}

func (c conn) QueryRow(ctx context.Context, query string, args ...any) *Row {
	if c.gdb == nil {
		return &Row{err: errNotInitialized}
	}
	return &Row{row: c.gdb.WithContext(ctx).Raw(query, args...).Row()}
}

func (c conn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if c.gdb == nil {
		return nil, errNotInitialized
	}
	return c.gdb.WithContext(ctx).Raw(query, args...).Rows()
}

// Exec returns the number of affected rows.
func (c conn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if c.gdb == nil {
		return 0, errNotInitialized
	}
	res := c.gdb.WithContext(ctx).Exec(query, args...)
	return res.RowsAffected, res.Error
}

type Pool struct {
	conn
	sqlDB *sql.DB
}

// NewPool opens the database, checks it answers and migrates the schema.
func NewPool(ctx context.Context, cfg *config.Config) (*Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:  logger.Default.LogMode(resolveGormLogLevel(cfg.LogLevel, cfg.Environment)),
		NowFunc: globaltime.UTC,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get gorm sql db: %w", err)
	}
	configureSQLPool(sqlDB, cfg.DBMinConns, cfg.DBMaxConns)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pool := &Pool{conn: conn{gdb: gdb}, sqlDB: sqlDB}
	if err := pool.autoMigrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auto-migrate schema: %w", err)
	}
	return pool, nil
}

func configureSQLPool(sqlDB *sql.DB, minConns, maxConns int32) {
	maxOpen := int(maxConns)
	if maxOpen <= 0 {
		maxOpen = 8
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(max(1, min(int(minConns), maxOpen)))
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
}

// inTx runs fn in a transaction, committing when it returns nil.
func (p *Pool) inTx(ctx context.Context, fn func(tx conn) error) error {
	if p == nil || p.gdb == nil {
		return errNotInitialized
	}
	return p.gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(conn{gdb: tx})
	})
}

func (p *Pool) Close() error {
	if p == nil || p.sqlDB == nil {
		return nil
	}
	return p.sqlDB.Close()
}

// Ping checks that the database answers.
func (p *Pool) Ping(ctx context.Context) error {
	if p == nil || p.sqlDB == nil {
		return errNotInitialized
	}
	return p.sqlDB.PingContext(ctx)
}

func IsNoRows(err error) bool {
	return errors.Is(err, ErrNoRows)
}

// IsUniqueViolation reports whether err carries SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func resolveGormLogLevel(appLogLevel, environment string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(appLogLevel)) {
	case "trace", "debug":
		return logger.Info
	case "warn", "warning", "info", "":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	}
	if strings.EqualFold(strings.TrimSpace(environment), "local") {
		return logger.Warn
	}
	return logger.Error
}
