// Package backend provides the HR record store: a keyed-hierarchical
// JSON document store backed by SQLite. The assistant subsystem only
// ever reads from it; writes exist for seeding and policy ingestion.
package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a key-path record store. All public methods are safe for
// concurrent use (SQLite serializes writes, reads are lock-free in WAL).
type Store struct {
	db *sql.DB
}

// NewStore opens (and if necessary creates) a record store at the given
// database path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		path       TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Read returns the JSON value stored at path, decoded into Go types.
// When no record matches the exact path, the children under "path/" are
// collected into a map keyed by their remaining path segment. A path
// with no record and no children yields (nil, nil); absence is not an
// error.
func (s *Store) Read(ctx context.Context, path string) (any, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM records WHERE path = ?`, path,
	).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		return s.readChildren(ctx, path)
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return value, nil
}

// readChildren assembles a subtree map for paths that only exist as a
// prefix, e.g. Read("policies") over rows "policies/leave", "policies/visa".
func (s *Store) readChildren(ctx context.Context, path string) (any, error) {
	prefix := path + "/"
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, value FROM records WHERE path LIKE ? ORDER BY path`,
		prefix+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("read children of %s: %w", path, err)
	}
	defer rows.Close()

	children := make(map[string]any)
	for rows.Next() {
		var childPath, raw string
		if err := rows.Scan(&childPath, &raw); err != nil {
			return nil, fmt.Errorf("scan child of %s: %w", path, err)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("decode %s: %w", childPath, err)
		}
		children[strings.TrimPrefix(childPath, prefix)] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read children of %s: %w", path, err)
	}

	if len(children) == 0 {
		return nil, nil
	}
	return children, nil
}

// Write upserts a JSON value at path. Used by the seed loader and the
// policy ingester, never by the assistant's query tools.
func (s *Store) Write(ctx context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (path, value, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (path) DO UPDATE
		 SET value = excluded.value, updated_at = excluded.updated_at`,
		path, string(raw), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// DeletePrefix removes every record under "prefix/". It enables clean
// re-imports of ingested document sets.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE path LIKE ?`, prefix+"/%",
	)
	if err != nil {
		return fmt.Errorf("delete prefix %s: %w", prefix, err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
