package graph

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/loom-mcp/loom/internal/index"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// schema holds one JSON payload per tree root; saves replace the row.
const schema = `
CREATE TABLE IF NOT EXISTS trees (
	root     TEXT PRIMARY KEY,
	payload  TEXT NOT NULL,
	saved_at TEXT NOT NULL
);`

// SQLiteStore persists dependency trees in a workspace-scoped sqlite
// database (loom/cache/trees.db). It implements Store.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the tree cache database at dbPath,
// creating parent directories as needed.
func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", filepath.Dir(dbPath), err)
	}
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening tree cache %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying tree cache schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveTree upserts the tree's JSON payload under its root.
func (s *SQLiteStore) SaveTree(tree *Tree) error {
	payload, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("marshaling tree for %s: %w", tree.Root, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO trees (root, payload, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(root) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at
	`, string(tree.Root), string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving tree for %s: %w", tree.Root, err)
	}
	return nil
}

// LoadTree returns the last saved tree for root, ok=false when absent.
func (s *SQLiteStore) LoadTree(root index.ArtifactID) (*Tree, bool, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM trees WHERE root = ?`, string(root)).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading tree for %s: %w", root, err)
	}
	var tree Tree
	if err := json.Unmarshal([]byte(payload), &tree); err != nil {
		return nil, false, fmt.Errorf("parsing cached tree for %s: %w", root, err)
	}
	return &tree, true, nil
}
