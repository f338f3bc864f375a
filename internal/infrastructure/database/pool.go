// Package database owns the pooled SQL connections shared by the sql-backed
// repositories and the schema migrations applied to them.
package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sp3dr4/relink/internal/domain"
)

// PoolOptions bounds a connection pool.
type PoolOptions struct {
	Size           int
	MaxOverflow    int
	AcquireTimeout time.Duration
}

// Pool is a bounded sqlx pool that hands out one connection per logical
// operation.
type Pool struct {
	db             *sqlx.DB
	acquireTimeout time.Duration
}

// Open connects to the database and applies the pool bounds.
func Open(driverName, dsn string, opts PoolOptions) (*Pool, error) {
	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driverName, err)
	}
	return NewPool(db, opts), nil
}

// NewPool wraps an existing handle.
func NewPool(db *sqlx.DB, opts PoolOptions) *Pool {
	if opts.Size > 0 {
		db.SetMaxIdleConns(opts.Size)
		db.SetMaxOpenConns(opts.Size + opts.MaxOverflow)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	timeout := opts.AcquireTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Pool{db: db, acquireTimeout: timeout}
}

// DB exposes the underlying handle for migrations and tests.
func (p *Pool) DB() *sqlx.DB {
	return p.db
}

// Scoped acquires a connection, runs fn on it and releases it on every exit
// path. Waiting longer than the acquire timeout fails with
// domain.ErrStoreUnavailable.
func (p *Pool) Scoped(ctx context.Context, fn func(conn *sqlx.Conn) error) error {
	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	conn, err := p.db.Connx(acquireCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: acquire connection: %v", domain.ErrStoreUnavailable, err)
	}
	defer func() { _ = conn.Close() }()

	return fn(conn)
}

func (p *Pool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Pool) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

// IsConnectionError reports whether err means the store could not be reached,
// as opposed to a query-level failure.
func IsConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
