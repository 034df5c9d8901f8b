package index

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/loom-mcp/loom/internal/metadata"
)

// maxScanWorkers caps the file-reading pool regardless of CPU count.
const maxScanWorkers = 8

var (
	// constraintRe matches a bare anchor tag <namespace>.<name>:<verb>.
	constraintRe = regexp.MustCompile(`^[a-z][a-z0-9_-]*\.[a-z][a-z0-9_-]*:(must|should|may|shall)$`)
	// anchorSpanRe finds inline code spans that might be anchor tags.
	anchorSpanRe = regexp.MustCompile("`([a-z][a-z0-9_-]*\\.[a-z][a-z0-9_-]*:[a-z]+)`")
	// headingRe matches an ATX heading line.
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
)

// fileResult is the per-file outcome produced by a scan worker. Results
// are merged in sorted-path order, so worker scheduling cannot affect
// the final index.
type fileResult struct {
	rel      string // workspace-relative path, forward slashes
	abs      string
	failure  *ParseFailure
	record   *ArtifactRecord
	headings []HeadingRecord
	anchors  []ConstraintRecord
	edges    []Edge
}

// Scan walks the workspace directory, parses every artifact, and builds
// a fresh Index. Per-artifact parse failures are collected in the index;
// only filesystem-level walk errors abort the scan. The ignore list is
// doublestar globs relative to the workspace directory.
func Scan(workspaceDir string, ignore []string) (*Index, error) {
	root, err := filepath.Abs(workspaceDir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", workspaceDir, err)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return fmt.Errorf("relativizing %s: %w", path, relErr)
		}
		rel = filepath.ToSlash(rel)
		if ignored(rel, ignore) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	// Parallel read/parse phase: independent workers, one accumulation
	// lock. Order is restored afterwards, so the merge is deterministic.
	var (
		mu      sync.Mutex
		results = make([]fileResult, 0, len(paths))
		jobs    = make(chan string)
		wg      sync.WaitGroup
	)
	workers := runtime.NumCPU()
	if workers > maxScanWorkers {
		workers = maxScanWorkers
	}
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rel := range jobs {
				res := scanFile(root, rel)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}()
	}
	for _, rel := range paths {
		jobs <- rel
	}
	close(jobs)
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].rel < results[j].rel })

	return merge(root, results), nil
}

// ignored reports whether rel matches any ignore glob.
func ignored(rel string, ignore []string) bool {
	if rel == "." {
		return false
	}
	for _, pattern := range ignore {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// scanFile reads and parses one artifact. All failures are folded into
// the result; scanFile never returns an error.
func scanFile(root, rel string) fileResult {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	res := fileResult{rel: rel, abs: abs}

	data, err := os.ReadFile(abs)
	if err != nil {
		res.failure = &ParseFailure{Path: rel, Message: fmt.Sprintf("reading artifact: %v", err)}
		return res
	}
	block, body, err := metadata.Split(string(data))
	if err != nil {
		res.failure = &ParseFailure{Path: rel, Message: err.Error()}
		return res
	}
	meta, err := metadata.Decode(block)
	if err != nil {
		res.failure = &ParseFailure{Path: rel, Message: err.Error()}
		return res
	}

	id := ArtifactID(rel)
	res.record = buildRecord(id, abs, meta)
	res.headings, res.anchors = scanBody(id, body)
	res.edges = extractEdges(id, meta)
	return res
}

// buildRecord projects decoded metadata into an index record.
func buildRecord(id ArtifactID, abs string, m metadata.Metadata) *ArtifactRecord {
	ident := m.Identity()
	rec := &ArtifactRecord{
		ID:          id,
		Name:        ident.Name,
		Title:       ident.Title,
		Description: ident.Description,
		Version:     ident.Version,
		Tags:        ident.Tags,
		Path:        abs,
	}
	switch m.Kind() {
	case metadata.KindSpec:
		rec.Kind = KindSpecification
		rec.RequiresImplementation = m.Spec.RequiresImplementation
	case metadata.KindImplementation:
		rec.Kind = KindImplementation
		rec.SpecPointer = m.Implementation.Spec
	case metadata.KindScratch:
		rec.Kind = KindScratchPad
		rec.Branch = m.Scratch.Branch
		rec.WorkType = string(m.Scratch.WorkType)
		rec.ScratchTarget = m.Scratch.Target
	default:
		rec.Kind = KindOther
	}
	return rec
}

// scanBody extracts headings and constraint anchors from a body,
// skipping fenced code blocks.
func scanBody(id ArtifactID, body string) ([]HeadingRecord, []ConstraintRecord) {
	var headings []HeadingRecord
	var anchors []ConstraintRecord
	inFence := false
	for lineNo, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := headingRe.FindStringSubmatch(line); m != nil {
			text := m[2]
			headings = append(headings, HeadingRecord{
				Artifact: id,
				Level:    len(m[1]),
				Text:     text,
				Slug:     Slugify(text),
				Line:     lineNo + 1,
			})
		}
		for _, span := range anchorSpanRe.FindAllStringSubmatch(line, -1) {
			cid, err := ParseConstraintID(span[1])
			if err != nil {
				continue // code span that only looks like an anchor
			}
			anchors = append(anchors, ConstraintRecord{ID: cid, Artifact: id, Line: lineNo + 1})
		}
	}
	return headings, anchors
}

// extractEdges converts declared metadata relationships into the ordered
// edge sequence: dependencies → DependsOn, references → References,
// implementation spec pointer → Implements, scratch target → References.
func extractEdges(id ArtifactID, m metadata.Metadata) []Edge {
	var edges []Edge
	add := func(kind EdgeKind, target string) {
		if target == "" {
			return
		}
		edges = append(edges, Edge{
			Kind:     kind,
			Source:   id,
			Target:   normalizeTarget(target),
			External: IsExternalTarget(target),
		})
	}
	for _, dep := range m.Dependencies() {
		add(EdgeDependsOn, dep)
	}
	for _, ref := range m.References() {
		add(EdgeReferences, ref)
	}
	if m.Implementation != nil {
		add(EdgeImplements, m.Implementation.Spec)
	}
	if m.Scratch != nil {
		add(EdgeReferences, m.Scratch.Target)
	}
	return edges
}

// IsExternalTarget reports whether a declared target is an external
// (non-workspace) reference, i.e. carries a URL scheme.
func IsExternalTarget(target string) bool {
	i := strings.Index(target, "://")
	if i <= 0 {
		return false
	}
	for _, r := range target[:i] {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '+' && r != '-' && r != '.' {
			return false
		}
	}
	return true
}

// normalizeTarget canonicalizes a workspace-relative target path.
// External targets pass through untouched.
func normalizeTarget(target string) string {
	if IsExternalTarget(target) {
		return target
	}
	return filepath.ToSlash(filepath.Clean(filepath.FromSlash(target)))
}

// merge folds sorted per-file results into a fresh Index. Because input
// order is the sorted path order, duplicate tie-breaks are deterministic:
// the smallest path wins the slot.
func merge(root string, results []fileResult) *Index {
	idx := &Index{
		Root:        root,
		Artifacts:   make(map[ArtifactID]*ArtifactRecord),
		ByName:      make(map[string]ArtifactID),
		Headings:    make(map[string]*HeadingRecord),
		Constraints: make(map[ConstraintID]*ConstraintRecord),
	}
	for _, res := range results {
		if res.failure != nil {
			idx.ParseFailures = append(idx.ParseFailures, *res.failure)
			continue
		}
		rec := res.record
		idx.Artifacts[rec.ID] = rec

		if rec.Name != "" {
			if winner, taken := idx.ByName[rec.Name]; taken {
				idx.DuplicateNames = append(idx.DuplicateNames, Duplicate{
					Identifier: rec.Name, Winner: winner, Loser: rec.ID,
				})
			} else {
				idx.ByName[rec.Name] = rec.ID
			}
		}

		for i := range res.headings {
			h := res.headings[i]
			if prev, taken := idx.Headings[h.Key()]; taken {
				idx.DuplicateHeadings = append(idx.DuplicateHeadings, Duplicate{
					Identifier: h.Key(), Winner: prev.Artifact, Loser: h.Artifact,
				})
				continue
			}
			idx.Headings[h.Key()] = &h
		}

		for i := range res.anchors {
			a := res.anchors[i]
			if prev, taken := idx.Constraints[a.ID]; taken {
				idx.DuplicateConstraints = append(idx.DuplicateConstraints, Duplicate{
					Identifier: string(a.ID), Winner: prev.Artifact, Loser: a.Artifact,
				})
				continue
			}
			idx.Constraints[a.ID] = &a
		}

		idx.Edges = append(idx.Edges, res.edges...)
	}
	return idx
}

// Slugify converts heading text to its anchor slug: lowercase,
// non-alphanumerics collapsed to single hyphens.
func Slugify(text string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(text) {
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
