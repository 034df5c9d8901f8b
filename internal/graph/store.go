package graph

import (
	"sync"

	"github.com/loom-mcp/loom/internal/index"
)

// Store is the narrow persistence contract for computed dependency
// trees. The engine depends only on this contract; trees are a derived
// cache and the workspace filesystem stays the source of truth.
type Store interface {
	// SaveTree persists a tree keyed by its root. Concurrent saves to
	// the same root are last-write-wins.
	SaveTree(tree *Tree) error
	// LoadTree returns the last saved tree for root, or ok=false when
	// none exists.
	LoadTree(root index.ArtifactID) (tree *Tree, ok bool, err error)
}

// MemoryStore is the in-memory Store: a process-wide table behind one
// mutex. Illustrative default; any transactional key-value store can
// replace it.
type MemoryStore struct {
	mu    sync.Mutex
	trees map[index.ArtifactID]*Tree
}

// NewMemoryStore creates an empty in-memory tree store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trees: make(map[index.ArtifactID]*Tree)}
}

// SaveTree stores a copy-by-reference snapshot under the tree's root.
func (s *MemoryStore) SaveTree(tree *Tree) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trees[tree.Root] = tree
	return nil
}

// LoadTree returns the last saved tree for root.
func (s *MemoryStore) LoadTree(root index.ArtifactID) (*Tree, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trees[root]
	return t, ok, nil
}
