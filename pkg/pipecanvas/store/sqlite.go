package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists workflows to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite workflow store.
// The path should be a file path (e.g., "./workflows.db") or ":memory:"
// for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS workflows (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			nodes BLOB NOT NULL,
			edges BLOB NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_workflows_created_at
		ON workflows(created_at)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Create implements Store.
func (s *SQLiteStore) Create(w Workflow) (Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Workflow{}, ErrStoreClosed
	}

	now := time.Now().UTC()
	w.ID = uuid.NewString()
	w.CreatedAt = now
	w.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO workflows (id, name, description, nodes, edges, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, w.ID, w.Name, w.Description, []byte(w.Nodes), []byte(w.Edges),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return Workflow{}, fmt.Errorf("create workflow: %w", err)
	}
	return w, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(id string) (Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Workflow{}, ErrStoreClosed
	}

	row := s.db.QueryRow(`
		SELECT id, name, description, nodes, edges, created_at, updated_at
		FROM workflows WHERE id = ?
	`, id)
	w, err := scanWorkflow(row)
	if err == sql.ErrNoRows {
		return Workflow{}, ErrNotFound
	}
	if err != nil {
		return Workflow{}, fmt.Errorf("get workflow: %w", err)
	}
	return w, nil
}

// List implements Store.
func (s *SQLiteStore) List() ([]Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT id, name, description, nodes, edges, created_at, updated_at
		FROM workflows ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var out []Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflows: %w", err)
	}
	return out, nil
}

// Update implements Store.
func (s *SQLiteStore) Update(w Workflow) (Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Workflow{}, ErrStoreClosed
	}

	now := time.Now().UTC()
	res, err := s.db.Exec(`
		UPDATE workflows
		SET name = ?, description = ?, nodes = ?, edges = ?, updated_at = ?
		WHERE id = ?
	`, w.Name, w.Description, []byte(w.Nodes), []byte(w.Edges),
		now.Format(time.RFC3339Nano), w.ID)
	if err != nil {
		return Workflow{}, fmt.Errorf("update workflow: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Workflow{}, fmt.Errorf("update workflow: %w", err)
	}
	if affected == 0 {
		return Workflow{}, ErrNotFound
	}

	row := s.db.QueryRow(`
		SELECT id, name, description, nodes, edges, created_at, updated_at
		FROM workflows WHERE id = ?
	`, w.ID)
	updated, err := scanWorkflow(row)
	if err != nil {
		return Workflow{}, fmt.Errorf("reload workflow: %w", err)
	}
	return updated, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	res, err := s.db.Exec(`DELETE FROM workflows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Duplicate implements Store.
func (s *SQLiteStore) Duplicate(id, newName string) (Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Workflow{}, ErrStoreClosed
	}

	row := s.db.QueryRow(`
		SELECT id, name, description, nodes, edges, created_at, updated_at
		FROM workflows WHERE id = ?
	`, id)
	src, err := scanWorkflow(row)
	if err == sql.ErrNoRows {
		return Workflow{}, ErrNotFound
	}
	if err != nil {
		return Workflow{}, fmt.Errorf("duplicate workflow: %w", err)
	}

	now := time.Now().UTC()
	cp := src
	cp.ID = uuid.NewString()
	cp.Name = newName
	cp.CreatedAt = now
	cp.UpdatedAt = now

	_, err = s.db.Exec(`
		INSERT INTO workflows (id, name, description, nodes, edges, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, cp.ID, cp.Name, cp.Description, []byte(cp.Nodes), []byte(cp.Edges),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return Workflow{}, fmt.Errorf("duplicate workflow: %w", err)
	}
	return cp, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (Workflow, error) {
	var w Workflow
	var createdAt, updatedAt string
	if err := row.Scan(&w.ID, &w.Name, &w.Description, (*[]byte)(&w.Nodes), (*[]byte)(&w.Edges), &createdAt, &updatedAt); err != nil {
		return Workflow{}, err
	}
	w.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	w.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return w, nil
}
