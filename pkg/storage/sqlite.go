package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/raykavin/chartdraw/pkg/core"
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements Backend on an embedded SQLite database. Points and
// properties are stored as JSON text columns.
type SQLiteStorage struct {
	db *sql.DB
	mu sync.Mutex
}

// FromSQLite opens (or creates) the database at path and runs migrations
func FromSQLite(path string) (*SQLiteStorage, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if path == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS drawings (
			id         TEXT PRIMARY KEY,
			source_id  TEXT NOT NULL,
			type       TEXT NOT NULL,
			points     TEXT NOT NULL,
			properties TEXT NOT NULL,
			selected   INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_drawings_source ON drawings(source_id, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Load returns the drawings of sourceID ordered by creation time
func (s *SQLiteStorage) Load(ctx context.Context, sourceID string) ([]core.Drawing, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, source_id, type, points, properties, selected, created_at, updated_at
		FROM drawings WHERE source_id = ? ORDER BY created_at, id`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("query drawings: %w", err)
	}
	defer rows.Close()

	drawings := make([]core.Drawing, 0)
	for rows.Next() {
		var (
			d                    core.Drawing
			points, props        string
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&d.ID, &d.SourceID, &d.Type, &points, &props, &d.Selected, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan drawing: %w", err)
		}
		if err := json.Unmarshal([]byte(points), &d.Points); err != nil {
			return nil, fmt.Errorf("decode points of %s: %w", d.ID, err)
		}
		if err := json.Unmarshal([]byte(props), &d.Properties); err != nil {
			return nil, fmt.Errorf("decode properties of %s: %w", d.ID, err)
		}
		d.CreatedAt = time.UnixMilli(createdAt).UTC()
		d.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		drawings = append(drawings, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drawings: %w", err)
	}
	return drawings, nil
}

// Save inserts the drawing or replaces the one with the same id
func (s *SQLiteStorage) Save(ctx context.Context, d core.Drawing) error {
	points, err := json.Marshal(d.Points)
	if err != nil {
		return fmt.Errorf("encode points: %w", err)
	}
	props, err := json.Marshal(d.Properties)
	if err != nil {
		return fmt.Errorf("encode properties: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `INSERT INTO drawings
		(id, source_id, type, points, properties, selected, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			type = excluded.type,
			points = excluded.points,
			properties = excluded.properties,
			selected = excluded.selected,
			updated_at = excluded.updated_at`,
		d.ID, d.SourceID, string(d.Type), string(points), string(props), d.Selected,
		d.CreatedAt.UnixMilli(), d.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save drawing %s: %w", d.ID, err)
	}
	return nil
}

// Delete removes a drawing by id
func (s *SQLiteStorage) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM drawings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete drawing %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return nil
}

// Clear removes every drawing of sourceID
func (s *SQLiteStorage) Clear(ctx context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM drawings WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("clear drawings of %s: %w", sourceID, err)
	}
	return nil
}

// Sources implements Backend.
func (s *SQLiteStorage) Sources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT source_id FROM drawings ORDER BY source_id`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
