package tools

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/loom-mcp/loom/internal/graph"
	"github.com/loom-mcp/loom/internal/index"
	"github.com/loom-mcp/loom/internal/workspace"
)

// DependencyTreeTool handles the loom_dependency_tree MCP tool.
type DependencyTreeTool struct {
	store workspace.Store
}

// NewDependencyTreeTool creates a DependencyTreeTool with its store.
func NewDependencyTreeTool(store workspace.Store) *DependencyTreeTool {
	return &DependencyTreeTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *DependencyTreeTool) Definition() mcp.Tool {
	return mcp.NewTool("loom_dependency_tree",
		mcp.WithDescription(
			"Build the dependency tree for an artifact: forward ('what does "+
				"it depend on') or reverse ('what depends on it'). Cycles are "+
				"reported inside the tree, never an error. The computed tree is "+
				"cached under loom/cache/; the filesystem stays ground truth.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Workspace-relative artifact path, e.g. 'specs/parser.md'"),
		),
		mcp.WithString("direction",
			mcp.Description("Traversal direction"),
			mcp.DefaultString("forward"),
			mcp.Enum("forward", "reverse"),
		),
		mcp.WithBoolean("direct_only",
			mcp.Description("Limit to immediate neighbors instead of the full transitive closure"),
			mcp.DefaultBool(false),
		),
		mcp.WithString("kinds",
			mcp.Description("Comma-separated edge kinds to follow (depends_on, references, implements). Default: depends_on."),
		),
	)
}

// Handle processes the loom_dependency_tree tool call.
func (t *DependencyTreeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}
	direction := graph.Direction(req.GetString("direction", string(graph.Forward)))

	projectRoot, err := findWorkspaceRoot()
	if err != nil {
		return nil, fmt.Errorf("finding workspace root: %w", err)
	}
	_, idx, err := scanRoot(t.store, projectRoot)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var opts graph.Options
	opts.DirectOnly = req.GetBool("direct_only", false)
	for _, k := range splitList(req.GetString("kinds", "")) {
		switch kind := index.EdgeKind(k); kind {
		case index.EdgeDependsOn, index.EdgeReferences, index.EdgeImplements:
			opts.Kinds = append(opts.Kinds, kind)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown edge kind %q", k)), nil
		}
	}

	// Tree cache is best-effort: a broken cache never blocks the query.
	var store graph.Store
	sqlStore, err := graph.OpenSQLiteStore(filepath.Join(workspace.CachePath(projectRoot), "trees.db"))
	if err != nil {
		log.Printf("WARNING: tree cache disabled: %v", err)
	} else {
		store = sqlStore
		defer sqlStore.Close()
	}

	tree, err := graph.New(idx, store).BuildTree(index.ArtifactID(path), direction, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tree)
}
