package engine

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the pgx-backed match store, enabled via DATABASE_URL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgresStore creates a pgx pool and ensures the schema.
func ConnectPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS episodes (
			idx INT PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			body TEXT NOT NULL
		)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres store: %w", err)
	}
	return s, nil
}

// Rebuild replaces all stored episode texts with the given snapshot.
func (s *PostgresStore) Rebuild(ctx context.Context, idx *Index) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM episodes`); err != nil {
		return fmt.Errorf("clear episodes: %w", err)
	}

	batch := &pgx.Batch{}
	for i, ep := range idx.Episodes {
		batch.Queue(`INSERT INTO episodes (idx, id, body) VALUES ($1, $2, $3)`, i, ep.ID, ep.Text)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert episodes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Candidates returns ordinals of episodes whose body contains needle.
func (s *PostgresStore) Candidates(ctx context.Context, needle string) ([]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT idx FROM episodes WHERE strpos(body, $1) > 0 ORDER BY idx`, needle)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var i int
		if err := rows.Scan(&i); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
