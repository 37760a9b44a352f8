package engine

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps episode texts in a local sqlite database and answers
// containment prefilters with instr(). The default match store.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the sqlite match store at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA busy_timeout=5000;`,
		`PRAGMA temp_store=MEMORY;`,
		`CREATE TABLE IF NOT EXISTS episodes (
			idx INTEGER PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			body TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate sqlite store: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Rebuild replaces all stored episode texts with the given snapshot.
func (s *SQLiteStore) Rebuild(ctx context.Context, idx *Index) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM episodes`); err != nil {
		return fmt.Errorf("clear episodes: %w", err)
	}
	for i, ep := range idx.Episodes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO episodes (idx, id, body) VALUES (?, ?, ?)`,
			i, ep.ID, ep.Text,
		); err != nil {
			return fmt.Errorf("insert episode %s: %w", ep.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Candidates returns ordinals of episodes whose body contains needle.
func (s *SQLiteStore) Candidates(ctx context.Context, needle string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx FROM episodes WHERE instr(body, ?) > 0 ORDER BY idx`, needle)
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

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
