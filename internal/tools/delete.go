package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/loom-mcp/loom/internal/artifact"
	"github.com/loom-mcp/loom/internal/index"
	"github.com/loom-mcp/loom/internal/workspace"
)

// DeleteTool handles the loom_delete_artifact MCP tool. Deletion is
// refused while dependents exist unless forced; dry_run returns the
// impact analysis without touching anything.
type DeleteTool struct {
	store workspace.Store
}

// NewDeleteTool creates a DeleteTool with the given config store.
func NewDeleteTool(store workspace.Store) *DeleteTool {
	return &DeleteTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *DeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("loom_delete_artifact",
		mcp.WithDescription(
			"Delete a workspace artifact. The dependency graph is consulted "+
				"first: if other artifacts depend on the target, deletion fails "+
				"unless 'force' is set. Use 'dry_run' to see the impact analysis "+
				"without deleting.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Workspace-relative artifact path, e.g. 'specs/parser.md'"),
		),
		mcp.WithBoolean("force",
			mcp.Description("Delete even when dependents exist"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Only report what the deletion would do"),
			mcp.DefaultBool(false),
		),
	)
}

// Handle processes the loom_delete_artifact tool call.
func (t *DeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}

	projectRoot, err := findWorkspaceRoot()
	if err != nil {
		return nil, fmt.Errorf("finding workspace root: %w", err)
	}
	cfg, err := t.store.Load(projectRoot)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading workspace config: %v", err)), nil
	}

	res, err := artifact.Delete(projectRoot, index.ArtifactID(path), artifact.DeleteOptions{
		Force:  req.GetBool("force", false),
		DryRun: req.GetBool("dry_run", false),
		Ignore: cfg.Ignore,
	})
	var blocked *artifact.DeletionBlockedError
	if errors.As(err, &blocked) {
		// Recoverable policy refusal: return the impact so the caller
		// can decide whether to force.
		out, jerr := jsonResult(res)
		if jerr != nil {
			return nil, jerr
		}
		out.IsError = true
		return out, nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}
