package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// CorpusDBStorage implements the store interfaces on PostgreSQL with
// pgvector for similarity search.
type CorpusDBStorage struct {
	conn pgxIConn
	pool *pgxpool.Pool
}

// New migrates the schema and opens a connection pool against databaseURL.
// pgvector types are registered on every pooled connection.
func New(ctx context.Context, databaseURL string) (*CorpusDBStorage, error) {
	if err := Migrate(databaseURL); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgxv5.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &CorpusDBStorage{conn: pool, pool: pool}, nil
}

// NewWithConnection creates a storage over an existing connection. Used by
// tests and callers that manage the pool themselves.
func NewWithConnection(conn pgxIConn) *CorpusDBStorage {
	return &CorpusDBStorage{conn: conn}
}

// Pool exposes the underlying pool for components that need raw database
// access, like the job lease lock. Nil when the storage was created over
// a foreign connection.
func (s *CorpusDBStorage) Pool() *pgxpool.Pool {
	return s.pool
}

// Close releases the underlying pool when this storage owns one.
func (s *CorpusDBStorage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
