// Package graph implements the dependency graph engine over the
// workspace index: transitive dependency trees in either direction,
// cycle detection, and deletion-impact analysis.
//
// Traversal keeps two separate sets: the current DFS path and the fully
// expanded nodes. A node met again on the current path is a back-edge —
// a cycle, recorded without recursing. A node met again after full
// expansion is a shared-dependency convergence, not a cycle. A single
// visited set cannot tell the two apart.
package graph

import (
	"fmt"
	"sort"

	"github.com/loom-mcp/loom/internal/index"
)

// Direction selects which way DependsOn edges are followed.
type Direction string

const (
	// Forward answers "what does root depend on".
	Forward Direction = "forward"
	// Reverse answers "what depends on root".
	Reverse Direction = "reverse"
)

// Options restrict a traversal. The zero value means fully transitive
// over DependsOn edges only.
type Options struct {
	// Kinds lists the edge kinds to follow; empty means DependsOn only.
	Kinds []index.EdgeKind `json:"kinds,omitempty"`
	// DirectOnly limits traversal to root's immediate neighbors.
	DirectOnly bool `json:"direct_only,omitempty"`
}

// kindSet expands Options.Kinds into a lookup set.
func (o Options) kindSet() map[index.EdgeKind]bool {
	set := make(map[index.EdgeKind]bool, len(o.Kinds))
	for _, k := range o.Kinds {
		set[k] = true
	}
	if len(set) == 0 {
		set[index.EdgeDependsOn] = true
	}
	return set
}

// Tree is an immutable snapshot of everything reachable from Root under
// the requested direction and options. Cycles found along the way are
// recorded, never rejected: a tree is not required to be acyclic.
type Tree struct {
	Root      index.ArtifactID   `json:"root"`
	Direction Direction          `json:"direction"`
	Nodes     []index.ArtifactID `json:"nodes"`
	Edges     []index.Edge       `json:"edges"`
	Cycles    [][]index.ArtifactID `json:"cycles,omitempty"`
}

// Contains reports whether id is in the tree's node set.
func (t *Tree) Contains(id index.ArtifactID) bool {
	for _, n := range t.Nodes {
		if n == id {
			return true
		}
	}
	return false
}

// Engine computes trees and cycles over one index snapshot. An optional
// Store receives computed trees; the index stays the source of truth.
type Engine struct {
	idx   *index.Index
	store Store
}

// New creates an engine over a scanned index. store may be nil.
func New(idx *index.Index, store Store) *Engine {
	return &Engine{idx: idx, store: store}
}

// BuildTree traverses from root and returns the reachable snapshot.
// Unknown roots are an error; cycles are findings inside the tree.
func (e *Engine) BuildTree(root index.ArtifactID, dir Direction, opts Options) (*Tree, error) {
	if _, ok := e.idx.Artifact(root); !ok {
		return nil, fmt.Errorf("unknown artifact %q", root)
	}
	t := &Tree{Root: root, Direction: dir}

	nodes := map[index.ArtifactID]bool{root: true}
	onPath := map[index.ArtifactID]bool{}
	expanded := map[index.ArtifactID]bool{}
	kinds := opts.kindSet()

	var visit func(id index.ArtifactID, path []index.ArtifactID)
	visit = func(id index.ArtifactID, path []index.ArtifactID) {
		onPath[id] = true
		path = append(path, id)
		for _, edge := range e.neighbors(id, dir, kinds) {
			next := e.neighborOf(edge, dir)
			t.Edges = append(t.Edges, edge)
			nodes[next] = true
			switch {
			case onPath[next]:
				t.Cycles = append(t.Cycles, cycleSlice(path, next))
			case expanded[next]:
				// Shared dependency already explored; converge.
			case opts.DirectOnly:
				// Immediate neighbors only.
			default:
				visit(next, path)
			}
		}
		onPath[id] = false
		expanded[id] = true
	}
	visit(root, nil)

	t.Nodes = sortedIDs(nodes)
	if e.store != nil {
		// Cache is advisory; a save failure never fails the build.
		_ = e.store.SaveTree(t)
	}
	return t, nil
}

// neighbors returns the edges leaving (forward) or entering (reverse) id,
// restricted to the requested kinds. External edges are never traversed.
func (e *Engine) neighbors(id index.ArtifactID, dir Direction, kinds map[index.EdgeKind]bool) []index.Edge {
	var out []index.Edge
	for _, edge := range e.idx.Edges {
		if edge.External || !kinds[edge.Kind] {
			continue
		}
		if dir == Reverse {
			if index.ArtifactID(edge.Target) == id {
				out = append(out, edge)
			}
			continue
		}
		if edge.Source == id {
			// Skip targets that don't resolve: dangling edges are a
			// validation finding, not graph nodes.
			if _, ok := e.idx.Artifact(index.ArtifactID(edge.Target)); ok {
				out = append(out, edge)
			}
		}
	}
	return out
}

// neighborOf returns the far end of an edge for the traversal direction.
func (e *Engine) neighborOf(edge index.Edge, dir Direction) index.ArtifactID {
	if dir == Reverse {
		return edge.Source
	}
	return index.ArtifactID(edge.Target)
}

// cycleSlice extracts the cycle from the current path: the nodes from
// the first occurrence of entry through the path's end.
func cycleSlice(path []index.ArtifactID, entry index.ArtifactID) []index.ArtifactID {
	for i, n := range path {
		if n == entry {
			cycle := make([]index.ArtifactID, len(path)-i)
			copy(cycle, path[i:])
			return cycle
		}
	}
	return []index.ArtifactID{entry}
}

// Impact is the result of deletion analysis for one artifact.
type Impact struct {
	// Dependencies is the reverse DependsOn tree from the target.
	Dependencies *Tree `json:"dependencies"`
	// Blocked reports whether deleting the target would strand dependents.
	Blocked bool `json:"blocked"`
}

// CheckDeletionImpact computes the reverse dependency tree for target and
// whether removal is blocked. This is the authority consulted before any
// deletion.
func (e *Engine) CheckDeletionImpact(target index.ArtifactID) (*Impact, error) {
	tree, err := e.BuildTree(target, Reverse, Options{})
	if err != nil {
		return nil, err
	}
	return &Impact{
		Dependencies: tree,
		Blocked:      HasBlockingDependents(tree, nil),
	}, nil
}

// HasBlockingDependents reports whether the reverse tree's root has at
// least one dependent outside the removal set. removing lists the nodes
// being deleted together with the root; nil means the root alone. A
// self-loop on the root always blocks.
func HasBlockingDependents(tree *Tree, removing map[index.ArtifactID]bool) bool {
	for _, edge := range tree.Edges {
		if index.ArtifactID(edge.Target) != tree.Root {
			continue
		}
		if edge.Source == tree.Root {
			return true // self-loop
		}
		if removing != nil && removing[edge.Source] {
			continue
		}
		return true
	}
	return false
}

// AllCycles runs the traversal from every node not yet fully expanded,
// in sorted ID order, and aggregates the distinct cycles in the whole
// DependsOn graph. Fully expanded subtrees are never revisited, so the
// work is bounded by the total edge count.
func (e *Engine) AllCycles() [][]index.ArtifactID {
	onPath := map[index.ArtifactID]bool{}
	expanded := map[index.ArtifactID]bool{}
	seen := map[string]bool{}
	var cycles [][]index.ArtifactID

	var visit func(id index.ArtifactID, path []index.ArtifactID)
	visit = func(id index.ArtifactID, path []index.ArtifactID) {
		onPath[id] = true
		path = append(path, id)
		for _, edge := range e.neighbors(id, Forward, map[index.EdgeKind]bool{index.EdgeDependsOn: true}) {
			next := index.ArtifactID(edge.Target)
			switch {
			case onPath[next]:
				cycle := cycleSlice(path, next)
				if key := cycleKey(cycle); !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
			case expanded[next]:
				// Already explored from another seed.
			default:
				visit(next, path)
			}
		}
		onPath[id] = false
		expanded[id] = true
	}

	for _, id := range sortedIDs(artifactSet(e.idx)) {
		if !expanded[id] {
			visit(id, nil)
		}
	}
	return cycles
}

// cycleKey canonicalizes a cycle for dedup: rotated so the smallest
// member leads, so X→Y→X and Y→X→Y collapse to one key.
func cycleKey(cycle []index.ArtifactID) string {
	if len(cycle) == 0 {
		return ""
	}
	min := 0
	for i, n := range cycle {
		if n < cycle[min] {
			min = i
		}
	}
	key := ""
	for i := range cycle {
		key += string(cycle[(min+i)%len(cycle)]) + "|"
	}
	return key
}

func artifactSet(idx *index.Index) map[index.ArtifactID]bool {
	set := make(map[index.ArtifactID]bool, len(idx.Artifacts))
	for id := range idx.Artifacts {
		set[id] = true
	}
	return set
}

func sortedIDs(set map[index.ArtifactID]bool) []index.ArtifactID {
	out := make([]index.ArtifactID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
