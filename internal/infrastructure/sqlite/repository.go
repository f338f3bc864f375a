package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/sp3dr4/relink/internal/domain"
	"github.com/sp3dr4/relink/internal/infrastructure/database"
)

type URLRepository struct {
	pool *database.Pool
}

func NewURLRepository(pool *database.Pool) *URLRepository {
	return &URLRepository{pool: pool}
}

func (r *URLRepository) Create(ctx context.Context, url *domain.URL) (*domain.URL, error) {
	query := `
		INSERT INTO urls (short_code, original_url, created_at, expires_at)
		VALUES (:short_code, :original_url, :created_at, :expires_at)
	`

	created := *url
	err := r.pool.Scoped(ctx, func(conn *sqlx.Conn) error {
		// sqlx.Conn has no named exec, so bind the struct first.
		bound, args, err := sqlx.Named(query, url)
		if err != nil {
			return err
		}
		result, err := conn.ExecContext(ctx, bound, args...)
		if err != nil {
			return err
		}
		created.ID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return nil, translateError(err, "create URL")
	}

	return &created, nil
}

func (r *URLRepository) FindByShortCode(ctx context.Context, shortCode string) (*domain.URL, error) {
	var url domain.URL
	query := `SELECT id, short_code, original_url, created_at, expires_at FROM urls WHERE short_code = $1`

	err := r.pool.Scoped(ctx, func(conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &url, query, shortCode)
	})
	if err != nil {
		return nil, translateError(err, "find URL by short code")
	}

	return &url, nil
}

func (r *URLRepository) Exists(ctx context.Context, shortCode string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM urls WHERE short_code = $1)`

	err := r.pool.Scoped(ctx, func(conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &exists, query, shortCode)
	})
	if err != nil {
		return false, translateError(err, "check URL existence")
	}

	return exists, nil
}

func (r *URLRepository) Close() error {
	if r.pool != nil {
		return r.pool.Close()
	}
	return nil
}

func (r *URLRepository) HealthCheck(ctx context.Context) error {
	if r.pool == nil {
		return errors.New("database connection is nil")
	}
	return r.pool.Ping(ctx)
}

func translateError(err error, operation string) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrURLNotFound
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch {
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique:
			return domain.ErrShortCodeExists
		case sqliteErr.Code == sqlite3.ErrBusy, sqliteErr.Code == sqlite3.ErrLocked, sqliteErr.Code == sqlite3.ErrCantOpen:
			return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, operation, err)
		}
	}

	if database.IsConnectionError(err) {
		return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, operation, err)
	}

	return fmt.Errorf("%s: %w", operation, err)
}
