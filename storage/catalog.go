package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/RailOpsData/adaptive-signal-open-data/feed"
)

//go:embed schema.sql
var catalogDDL string

// CatalogEntry is one indexed snapshot file.
type CatalogEntry struct {
	FeedURL    string
	FeedName   string
	Kind       feed.Kind
	CapturedAt string
	Path       string
	Records    int
	SizeBytes  int64
}

// Catalog is a sqlite index over written snapshot files.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens the catalog database at path, creating the file and
// schema when missing.
func OpenCatalog(path string) (*Catalog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	if _, err := db.Exec(catalogDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Record inserts one snapshot row.
func (c *Catalog) Record(ctx context.Context, entry CatalogEntry) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO snapshots (feed_url, feed_name, kind, captured_at, path, records, size_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.FeedURL, entry.FeedName, string(entry.Kind), entry.CapturedAt, entry.Path, entry.Records, entry.SizeBytes)
	if err != nil {
		return fmt.Errorf("failed to record snapshot: %w", err)
	}
	return nil
}

// Recent returns the most recently recorded snapshots, newest first.
func (c *Catalog) Recent(ctx context.Context, limit int) ([]CatalogEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT feed_url, feed_name, kind, captured_at, path, records, size_bytes
		FROM snapshots
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var entries []CatalogEntry
	for rows.Next() {
		var e CatalogEntry
		var kind string
		if err := rows.Scan(&e.FeedURL, &e.FeedName, &kind, &e.CapturedAt, &e.Path, &e.Records, &e.SizeBytes); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		e.Kind = feed.Kind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog rows: %w", err)
	}
	return entries, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}
