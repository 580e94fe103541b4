// Package history records resolved recordings in a local SQLite database
// so they can be listed and looked up again without re-resolving.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"lecturetube/internal/media"
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
	uuid         TEXT PRIMARY KEY,
	video_id     TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL DEFAULT '',
	creator      TEXT NOT NULL DEFAULT '',
	series       TEXT NOT NULL DEFAULT '',
	timestamp    INTEGER NOT NULL DEFAULT 0,
	format_count INTEGER NOT NULL DEFAULT 0,
	resolved_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS history_resolved_at ON history (resolved_at DESC);
`

// Store is a history database handle. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// FromResult builds a history entry for a freshly resolved result.
func FromResult(res *media.Result, resolvedAt time.Time) media.HistoryEntry {
	e := media.HistoryEntry{
		ID:          res.ID,
		Title:       res.Title,
		Creator:     res.Creator,
		Series:      res.Series,
		FormatCount: len(res.Formats),
		ResolvedAt:  resolvedAt.Unix(),
	}
	if res.Timestamp != nil {
		e.Timestamp = *res.Timestamp
	}
	return e
}

// Save writes or updates the entry for entry.ID.
// An existing row keeps its UUID.
func (s *Store) Save(ctx context.Context, entry media.HistoryEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("history entry has no video ID")
	}
	if entry.UUID == "" {
		entry.UUID = uuid.NewString()
	}
	if entry.ResolvedAt == 0 {
		entry.ResolvedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (uuid, video_id, title, creator, series, timestamp, format_count, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (video_id) DO UPDATE SET
			title        = excluded.title,
			creator      = excluded.creator,
			series       = excluded.series,
			timestamp    = excluded.timestamp,
			format_count = excluded.format_count,
			resolved_at  = excluded.resolved_at`,
		entry.UUID, string(entry.ID), entry.Title, entry.Creator, entry.Series,
		entry.Timestamp, entry.FormatCount, entry.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

// List returns up to limit entries, most recently resolved first.
// A limit <= 0 returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]media.HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT uuid, video_id, title, creator, series, timestamp, format_count, resolved_at
		FROM history
		ORDER BY resolved_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var entries []media.HistoryEntry
	for rows.Next() {
		var e media.HistoryEntry
		var id string
		if err := rows.Scan(&e.UUID, &id, &e.Title, &e.Creator, &e.Series, &e.Timestamp, &e.FormatCount, &e.ResolvedAt); err != nil {
			return nil, fmt.Errorf("reading history: %w", err)
		}
		e.ID = media.VideoID(id)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	return entries, nil
}

// Remove deletes the entry for id. It reports whether an entry existed.
func (s *Store) Remove(ctx context.Context, id media.VideoID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE video_id = ?`, string(id))
	if err != nil {
		return false, fmt.Errorf("removing history entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("removing history entry: %w", err)
	}
	return n > 0, nil
}

// FormatForDisplay creates one display line per entry.
func FormatForDisplay(entries []media.HistoryEntry) []string {
	var items []string
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = string(e.ID)
		}
		display := title
		if e.Series != "" {
			display = fmt.Sprintf("%s [%s]", title, e.Series)
		}
		if e.Timestamp > 0 {
			display += " " + time.Unix(e.Timestamp, 0).UTC().Format("2006-01-02")
		}
		display += fmt.Sprintf(" (%d formats)", e.FormatCount)
		items = append(items, display)
	}
	return items
}
