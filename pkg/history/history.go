// Package history records every placement run in a local SQLite database.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const selectEntriesWhere = `SELECT
		id,
		created_at,
		content_type,
		target,
		method,
		success,
		error,
		duration_ms,
		metadata_json
	FROM placements WHERE 1=1
	`

// Entry is one recorded pipeline run.
type Entry struct {
	ID          string            `json:"id" yaml:"id"`
	Time        time.Time         `json:"time" yaml:"time"`
	ContentType string            `json:"content_type" yaml:"content_type"`
	Target      string            `json:"target" yaml:"target"`
	Method      string            `json:"method" yaml:"method"`
	Success     bool              `json:"success" yaml:"success"`
	Error       string            `json:"error,omitempty" yaml:"error,omitempty"`
	Duration    time.Duration     `json:"duration" yaml:"duration"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *Store) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS placements (
			id TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL,
			content_type TEXT NOT NULL,
			target TEXT NOT NULL,
			method TEXT NOT NULL,
			success INTEGER NOT NULL,
			error TEXT,
			duration_ms INTEGER NOT NULL,
			metadata_json TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_placements_created_at ON placements(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_placements_target ON placements(target)`,
		`CREATE INDEX IF NOT EXISTS idx_placements_success ON placements(success)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores e, filling in ID and Time when they are empty.
func (s *Store) Record(e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return e, fmt.Errorf("failed to encode metadata: %w", err)
	}

	query := `
		INSERT INTO placements
		(id, created_at, content_type, target, method, success, error, duration_ms, metadata_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.Exec(query, e.ID, e.Time.UTC(), e.ContentType, e.Target, e.Method, e.Success, e.Error, e.Duration.Milliseconds(), string(metaJSON))
	if err != nil {
		return e, fmt.Errorf("failed to save placement: %w", err)
	}
	return e, nil
}

// Search lists entries, newest first. Supported filters: "target" (string),
// "content_type" (string), "success" (bool), "since" (time.Time) and
// "limit" (int).
func (s *Store) Search(filters map[string]any) ([]Entry, error) {
	query := selectEntriesWhere
	args := []any{}

	if target, ok := filters["target"].(string); ok && target != "" {
		query += " AND target = ?"
		args = append(args, target)
	}

	if contentType, ok := filters["content_type"].(string); ok && contentType != "" {
		query += " AND content_type = ?"
		args = append(args, contentType)
	}

	if success, ok := filters["success"].(bool); ok {
		query += " AND success = ?"
		args = append(args, success)
	}

	if since, ok := filters["since"].(time.Time); ok {
		query += " AND created_at >= ?"
		args = append(args, since.UTC())
	}

	query += " ORDER BY created_at DESC"

	if limit, ok := filters["limit"].(int); ok && limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search placements: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := e.Scan(rows); err != nil {
			return nil, fmt.Errorf("failed to scan placement: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (e *Entry) Scan(rows *sql.Rows) error {
	var errText sql.NullString
	var durationMS int64
	var metaJSON string

	err := rows.Scan(&e.ID, &e.Time, &e.ContentType, &e.Target, &e.Method, &e.Success, &errText, &durationMS, &metaJSON)
	if err != nil {
		return err
	}

	e.Error = errText.String
	e.Duration = time.Duration(durationMS) * time.Millisecond
	if metaJSON != "" && metaJSON != "{}" {
		if err := json.Unmarshal([]byte(metaJSON), &e.Metadata); err != nil {
			return fmt.Errorf("invalid metadata: %w", err)
		}
	}
	return nil
}

// Stats summarises the stored runs.
func (s *Store) Stats() (map[string]any, error) {
	var total, succeeded int
	var last time.Time

	if err := s.db.QueryRow("SELECT COUNT(*) FROM placements").Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to query placement count: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM placements WHERE success = 1").Scan(&succeeded); err != nil {
		return nil, fmt.Errorf("failed to query success count: %w", err)
	}
	err := s.db.QueryRow("SELECT created_at FROM placements ORDER BY created_at DESC LIMIT 1").Scan(&last)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query last placement: %w", err)
	}

	return map[string]any{
		"total":     total,
		"succeeded": succeeded,
		"failed":    total - succeeded,
		"last":      last,
	}, nil
}

// Clear deletes every entry.
func (s *Store) Clear() error {
	if _, err := s.db.Exec("DELETE FROM placements"); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
