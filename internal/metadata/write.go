package metadata

import (
	"fmt"
	"os"
	"path/filepath"
)

// Read loads an artifact file and returns its decoded metadata and body.
func Read(path string) (Metadata, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, "", fmt.Errorf("reading %s: %w", path, err)
	}
	block, body, err := Split(string(data))
	if err != nil {
		return Metadata{}, "", fmt.Errorf("%s: %w", path, err)
	}
	m, err := Decode(block)
	if err != nil {
		return Metadata{}, "", fmt.Errorf("%s: %w", path, err)
	}
	return m, body, nil
}

// Write rewrites the artifact at path with new metadata, preserving the
// current body byte-for-byte. The file must already exist and carry a
// valid metadata block. The rewrite goes through a temporary file in the
// same directory and a rename, so a crash mid-write cannot leave a
// half-written artifact.
func Write(path string, m Metadata) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	_, body, err := Split(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	content, err := Compose(m, body)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return atomicWrite(path, []byte(content))
}

// WriteNew creates a fresh artifact at path from metadata and body,
// creating parent directories as needed. Fails if the file exists.
func WriteNew(path string, m Metadata, body string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("artifact already exists: %s", path)
	}
	content, err := Compose(m, body)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}
	return atomicWrite(path, []byte(content))
}

// atomicWrite writes data to a temp file next to path and renames it
// into place.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
