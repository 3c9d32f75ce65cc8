package resource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Index records fetched resources in a SQLite database next to the
// cache files, so operators can see what has been downloaded and when.
type Index struct {
	db *sql.DB
}

// Entry is one indexed resource.
type Entry struct {
	ResourceID string
	Name       string
	Format     string
	URL        string
	Path       string // cache file location
	Size       int64  // cached bytes
	FetchedAt  time.Time
}

// OpenIndex creates or opens the index database at the given path.
// Use ":memory:" for an in-memory database (useful for testing).
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS resources (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL DEFAULT '',
			format     TEXT NOT NULL DEFAULT '',
			url        TEXT NOT NULL DEFAULT '',
			path       TEXT NOT NULL,
			size       INTEGER NOT NULL,
			fetched_at TEXT NOT NULL
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index schema: %w", err)
	}

	return &Index{db: db}, nil
}

// Record inserts or refreshes the entry for one resource.
func (x *Index) Record(ctx context.Context, e Entry) error {
	if e.FetchedAt.IsZero() {
		e.FetchedAt = time.Now().UTC()
	}
	_, err := x.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO resources (id, name, format, url, path, size, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ResourceID, e.Name, e.Format, e.URL, e.Path, e.Size,
		e.FetchedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording resource %s: %w", e.ResourceID, err)
	}
	return nil
}

// Lookup returns the entry for a resource ID, or an error when it has
// never been fetched.
func (x *Index) Lookup(ctx context.Context, resourceID string) (*Entry, error) {
	row := x.db.QueryRowContext(ctx, `
		SELECT id, name, format, url, path, size, fetched_at
		FROM resources WHERE id = ?`, resourceID)

	var e Entry
	var fetchedAt string
	if err := row.Scan(&e.ResourceID, &e.Name, &e.Format, &e.URL, &e.Path, &e.Size, &fetchedAt); err != nil {
		return nil, fmt.Errorf("looking up resource %s: %w", resourceID, err)
	}
	if t, err := time.Parse(time.RFC3339, fetchedAt); err == nil {
		e.FetchedAt = t
	}
	return &e, nil
}

// Close releases the underlying database handle.
func (x *Index) Close() error {
	return x.db.Close()
}
