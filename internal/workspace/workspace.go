// Package workspace manages the workspace marker and settings file
// (loom/workspace.json) and the structural preconditions around it:
// locating the workspace root from any subdirectory, and refusing to
// initialize a workspace nested inside an existing one.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// Dir is the workspace directory name at the project root.
	Dir = "loom"
	// ConfigFile is the marker/settings file inside Dir.
	ConfigFile = "workspace.json"
	// CacheDir holds derived data (dependency-tree cache) under Dir.
	CacheDir = "cache"
)

// ErrNested is returned by Init when an ancestor directory already
// contains a workspace.
var ErrNested = errors.New("workspace nested inside an existing workspace")

// ErrNotFound is returned when no workspace marker exists at or above
// the starting directory.
var ErrNotFound = errors.New("no loom workspace found")

// Config is the persisted workspace settings record.
type Config struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	CreatedAt   string   `json:"created_at"`
	// Ignore lists doublestar globs (relative to the workspace dir)
	// excluded from indexing, e.g. "history/**".
	Ignore []string `json:"ignore,omitempty"`
	// ProbeTimeoutSeconds bounds each reachability probe. Zero means
	// the engine default.
	ProbeTimeoutSeconds int `json:"probe_timeout_seconds,omitempty"`
	// ProbeMaxRedirects bounds redirect following per probe. Zero means
	// the engine default.
	ProbeMaxRedirects int `json:"probe_max_redirects,omitempty"`
}

// Store defines the persistence interface for workspace config.
// Abstracted for testability.
type Store interface {
	Save(projectRoot string, cfg *Config) error
	Load(projectRoot string) (*Config, error)
}

// FileStore implements Store on the local filesystem.
type FileStore struct{}

// NewFileStore creates a filesystem-backed workspace config store.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// Path returns the absolute path to the loom/ directory.
func Path(projectRoot string) string {
	return filepath.Join(projectRoot, Dir)
}

// ConfigPath returns the absolute path to loom/workspace.json.
func ConfigPath(projectRoot string) string {
	return filepath.Join(projectRoot, Dir, ConfigFile)
}

// CachePath returns the absolute path to loom/cache/.
func CachePath(projectRoot string) string {
	return filepath.Join(projectRoot, Dir, CacheDir)
}

// Exists reports whether a workspace marker is present at projectRoot.
func Exists(projectRoot string) bool {
	_, err := os.Stat(ConfigPath(projectRoot))
	return err == nil
}

// Save writes the config as indented JSON.
func (fs *FileStore) Save(projectRoot string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling workspace config: %w", err)
	}
	path := ConfigPath(projectRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Load reads and parses the workspace config.
func (fs *FileStore) Load(projectRoot string) (*Config, error) {
	path := ConfigPath(projectRoot)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// FindRoot walks up from dir looking for a workspace marker and returns
// the project root containing it. Returns ErrNotFound when no ancestor
// carries one.
func FindRoot(dir string) (string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	for {
		if Exists(current) {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", ErrNotFound
		}
		current = parent
	}
}

// Init creates a new workspace at projectRoot. It refuses to proceed when
// projectRoot is already a workspace or when any ancestor directory
// already contains one — this check runs before any directory is created.
func Init(store Store, projectRoot, name, description string) (*Config, error) {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", projectRoot, err)
	}
	if Exists(abs) {
		return nil, fmt.Errorf("workspace already exists at %s", abs)
	}
	if found, err := FindRoot(filepath.Dir(abs)); err == nil {
		return nil, fmt.Errorf("%w: ancestor workspace at %s", ErrNested, found)
	}

	dirs := []string{
		Path(abs),
		CachePath(abs),
		filepath.Join(Path(abs), "specs"),
		filepath.Join(Path(abs), "impl"),
		filepath.Join(Path(abs), "scratch"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := &Config{
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Ignore:      []string{CacheDir + "/**"},
	}
	if err := store.Save(abs, cfg); err != nil {
		return nil, fmt.Errorf("saving workspace config: %w", err)
	}
	return cfg, nil
}
