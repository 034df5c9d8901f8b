// Package artifact implements the workspace write path: creating,
// updating, and deleting artifact files. Every operation acts on the
// filesystem directly; callers rescan to see the result in the index.
// Deletion consults the dependency graph first and refuses to strand
// dependents unless forced.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/loom-mcp/loom/internal/graph"
	"github.com/loom-mcp/loom/internal/index"
	"github.com/loom-mcp/loom/internal/metadata"
	"github.com/loom-mcp/loom/internal/workspace"
)

// DeletionBlockedError is returned when a deletion would strand
// dependents and force was not set. Recoverable policy condition, not a
// corruption: the caller may retry with force.
type DeletionBlockedError struct {
	Target index.ArtifactID
}

func (e *DeletionBlockedError) Error() string {
	return fmt.Sprintf("deletion blocked: artifacts depend on %s", e.Target)
}

// kindDirs maps artifact kinds to their conventional subdirectory.
var kindDirs = map[metadata.Kind]string{
	metadata.KindSpec:           "specs",
	metadata.KindImplementation: "impl",
	metadata.KindScratch:        "scratch",
}

// DefaultPath derives the conventional workspace-relative path for a new
// artifact from its kind and name.
func DefaultPath(kind metadata.Kind, name string) string {
	return kindDirs[kind] + "/" + Slug(name) + ".md"
}

// Slug normalizes a name into a filename: lowercase, spaces and
// punctuation collapsed to hyphens.
func Slug(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Create writes a new artifact under the workspace directory and returns
// its ID. rel must be workspace-relative; an empty rel derives the
// conventional path from kind and name.
func Create(projectRoot, rel string, m metadata.Metadata, body string) (index.ArtifactID, error) {
	if err := metadata.ValidateKind(m.Kind()); err != nil {
		return "", err
	}
	if m.Identity().Name == "" {
		return "", fmt.Errorf("artifact name is required")
	}
	if rel == "" {
		rel = DefaultPath(m.Kind(), m.Identity().Name)
	}
	rel = filepath.ToSlash(filepath.Clean(filepath.FromSlash(rel)))
	if rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("artifact path %q escapes the workspace", rel)
	}
	abs := filepath.Join(workspace.Path(projectRoot), filepath.FromSlash(rel))
	if err := metadata.WriteNew(abs, m, body); err != nil {
		return "", err
	}
	return index.ArtifactID(rel), nil
}

// Update applies a partial metadata patch to an existing artifact,
// leaving its body untouched.
func Update(projectRoot string, id index.ArtifactID, u metadata.Update) (metadata.Metadata, error) {
	abs := filepath.Join(workspace.Path(projectRoot), filepath.FromSlash(string(id)))
	current, _, err := metadata.Read(abs)
	if err != nil {
		return metadata.Metadata{}, err
	}
	merged, err := metadata.Apply(current, u)
	if err != nil {
		return metadata.Metadata{}, fmt.Errorf("updating %s: %w", id, err)
	}
	if err := metadata.Write(abs, merged); err != nil {
		return metadata.Metadata{}, err
	}
	return merged, nil
}

// DeleteOptions controls deletion policy.
type DeleteOptions struct {
	// Force removes the artifact even when dependents exist.
	Force bool
	// DryRun short-circuits before any mutation and returns the same
	// impact analysis a real deletion would have used.
	DryRun bool
	// Ignore lists scan-excluded globs, usually from workspace config.
	Ignore []string
}

// DeleteResult reports what a deletion did (or would do).
type DeleteResult struct {
	Impact  *graph.Impact `json:"impact"`
	Deleted bool          `json:"deleted"`
	DryRun  bool          `json:"dry_run,omitempty"`
}

// Delete removes an artifact after a fresh scan and impact analysis.
// Blocked deletions fail with DeletionBlockedError unless forced.
func Delete(projectRoot string, id index.ArtifactID, opts DeleteOptions) (*DeleteResult, error) {
	idx, err := index.Scan(workspace.Path(projectRoot), opts.Ignore)
	if err != nil {
		return nil, err
	}
	impact, err := graph.New(idx, nil).CheckDeletionImpact(id)
	if err != nil {
		return nil, err
	}
	res := &DeleteResult{Impact: impact, DryRun: opts.DryRun}
	if opts.DryRun {
		return res, nil
	}
	if impact.Blocked && !opts.Force {
		return res, &DeletionBlockedError{Target: id}
	}
	abs := filepath.Join(workspace.Path(projectRoot), filepath.FromSlash(string(id)))
	if err := os.Remove(abs); err != nil {
		return res, fmt.Errorf("removing %s: %w", abs, err)
	}
	res.Deleted = true
	return res, nil
}
