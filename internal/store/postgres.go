package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresBackend stores collections in the collections table created by
// the migrations.
type PostgresBackend struct {
	db     rowQuerier
	closer func()
}

func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	if pool == nil {
		panic("store: pgx pool required")
	}
	return &PostgresBackend{db: pool, closer: pool.Close}
}

func newPostgresBackendWithExec(db rowQuerier) *PostgresBackend {
	if db == nil {
		panic("store: exec required")
	}
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Name() string { return "postgres" }

func (b *PostgresBackend) Load(ctx context.Context, c Collection) ([]byte, error) {
	var data []byte
	err := b.db.QueryRow(ctx, `SELECT data FROM collections WHERE name = $1`, string(c)).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: load %s: %w", c, err)
	}
	return data, nil
}

func (b *PostgresBackend) Save(ctx context.Context, c Collection, data []byte) error {
	query := `
		INSERT INTO collections (name, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`
	if _, err := b.db.Exec(ctx, query, string(c), data); err != nil {
		return fmt.Errorf("store: save %s: %w", c, err)
	}
	return nil
}

func (b *PostgresBackend) Close() error {
	if b.closer != nil {
		b.closer()
	}
	return nil
}
