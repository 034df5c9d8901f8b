package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/loom-mcp/loom/internal/graph"
	"github.com/loom-mcp/loom/internal/index"
	"github.com/loom-mcp/loom/internal/workspace"
)

// DeletionImpactTool handles the loom_deletion_impact MCP tool: the same
// analysis a deletion would run, without any mutation.
type DeletionImpactTool struct {
	store workspace.Store
}

// NewDeletionImpactTool creates a DeletionImpactTool with its store.
func NewDeletionImpactTool(store workspace.Store) *DeletionImpactTool {
	return &DeletionImpactTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *DeletionImpactTool) Definition() mcp.Tool {
	return mcp.NewTool("loom_deletion_impact",
		mcp.WithDescription(
			"Report what deleting an artifact would do: the reverse dependency "+
				"tree (everything that depends on it) and whether deletion is "+
				"blocked. Read-only.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Workspace-relative artifact path, e.g. 'specs/parser.md'"),
		),
	)
}

// Handle processes the loom_deletion_impact tool call.
func (t *DeletionImpactTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}

	projectRoot, err := findWorkspaceRoot()
	if err != nil {
		return nil, fmt.Errorf("finding workspace root: %w", err)
	}
	_, idx, err := scanRoot(t.store, projectRoot)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	impact, err := graph.New(idx, nil).CheckDeletionImpact(index.ArtifactID(path))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(impact)
}
