// Package index implements the structural indexer: it scans the
// workspace tree, decodes each artifact's metadata, extracts headings,
// constraint anchors, and relationship edges, and produces the Workspace
// Index — a derived, disposable summary that a full rescan replaces
// wholesale. The filesystem is always ground truth; nothing here writes.
package index

import (
	"fmt"
	"strings"
)

// ArtifactID is the stable key identifying one workspace artifact: its
// workspace-relative path with forward slashes, case-sensitive. It is the
// dependency graph's node identity.
type ArtifactID string

// EntityKind classifies an artifact in the index.
type EntityKind string

const (
	KindSpecification  EntityKind = "specification"
	KindImplementation EntityKind = "implementation"
	KindScratchPad     EntityKind = "scratchpad"
	KindTemplate       EntityKind = "template"
	KindOther          EntityKind = "other"
)

// ArtifactRecord is the index's view of one artifact. Owned exclusively
// by the Index and rebuilt on each scan, never patched in place.
type ArtifactRecord struct {
	ID          ArtifactID `json:"id"`
	Kind        EntityKind `json:"kind"`
	Name        string     `json:"name"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Version     string     `json:"version,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	// Path is the absolute on-disk location.
	Path string `json:"path"`
	// Kind-specific declarations surfaced for validation.
	RequiresImplementation bool   `json:"requires_implementation,omitempty"`
	SpecPointer            string `json:"spec,omitempty"`
	Branch                 string `json:"branch,omitempty"`
	WorkType               string `json:"work_type,omitempty"`
	ScratchTarget          string `json:"target,omitempty"`
}

// HeadingRecord is a section heading discovered in an artifact body.
type HeadingRecord struct {
	Artifact ArtifactID `json:"artifact"`
	Level    int        `json:"level"`
	Text     string     `json:"text"`
	Slug     string     `json:"slug"`
	Line     int        `json:"line"`
}

// Key returns the heading's index key, unique per artifact+slug.
func (h HeadingRecord) Key() string {
	return string(h.Artifact) + "#" + h.Slug
}

// ConstraintID identifies a testable-requirement anchor of the form
// <namespace>.<name>:<verb>.
type ConstraintID string

// ParseConstraintID validates and normalizes a raw anchor tag.
func ParseConstraintID(raw string) (ConstraintID, error) {
	if !constraintRe.MatchString(raw) {
		return "", fmt.Errorf("invalid constraint identifier %q: want <namespace>.<name>:<verb>", raw)
	}
	return ConstraintID(raw), nil
}

// Namespace returns the portion before the first dot.
func (c ConstraintID) Namespace() string {
	id := string(c)
	if i := strings.IndexByte(id, '.'); i >= 0 {
		return id[:i]
	}
	return id
}

// Verb returns the portion after the colon.
func (c ConstraintID) Verb() string {
	id := string(c)
	if i := strings.LastIndexByte(id, ':'); i >= 0 {
		return id[i+1:]
	}
	return ""
}

// ConstraintRecord is one discovered anchor occurrence.
type ConstraintRecord struct {
	ID       ConstraintID `json:"id"`
	Artifact ArtifactID   `json:"artifact"`
	Line     int          `json:"line"`
}

// EdgeKind is the type of a relationship edge.
type EdgeKind string

const (
	EdgeDependsOn  EdgeKind = "depends_on"
	EdgeReferences EdgeKind = "references"
	EdgeImplements EdgeKind = "implements"
)

// Edge is a typed directed link between two artifacts, or from an
// artifact to an external target. Edges form an ordered sequence;
// duplicates and self-edges are permitted here and flagged by validation.
type Edge struct {
	Kind   EdgeKind   `json:"kind"`
	Source ArtifactID `json:"source"`
	// Target is the declared target: a workspace-relative artifact path,
	// or a URL when External is true.
	Target   string `json:"target"`
	External bool   `json:"external,omitempty"`
}

// ParseFailure records one artifact that could not be decoded during a
// scan. Failures are collected, never abort the scan.
type ParseFailure struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Duplicate records an identifier claimed by more than one location. The
// winner (lexicographically smallest path) holds the index slot; the
// rest land here.
type Duplicate struct {
	Identifier string     `json:"identifier"`
	Winner     ArtifactID `json:"winner"`
	Loser      ArtifactID `json:"loser"`
}

// Index is the workspace index: every map and slice is rebuilt wholesale
// by Scan and must be treated as immutable afterwards.
type Index struct {
	// Root is the absolute path of the scanned workspace directory.
	Root string `json:"root"`

	Artifacts   map[ArtifactID]*ArtifactRecord `json:"artifacts"`
	ByName      map[string]ArtifactID          `json:"by_name"`
	Headings    map[string]*HeadingRecord      `json:"headings"`
	Constraints map[ConstraintID]*ConstraintRecord `json:"constraints"`
	Edges       []Edge                         `json:"edges"`

	DuplicateNames       []Duplicate    `json:"duplicate_names,omitempty"`
	DuplicateHeadings    []Duplicate    `json:"duplicate_headings,omitempty"`
	DuplicateConstraints []Duplicate    `json:"duplicate_constraints,omitempty"`
	ParseFailures        []ParseFailure `json:"parse_failures,omitempty"`
}
