package tools

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/loom-mcp/loom/internal/workspace"
)

// InitTool handles the loom_init_workspace MCP tool.
// It creates the loom/ directory structure and workspace marker.
type InitTool struct {
	store workspace.Store
}

// NewInitTool creates an InitTool with the given config store.
func NewInitTool(store workspace.Store) *InitTool {
	return &InitTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *InitTool) Definition() mcp.Tool {
	return mcp.NewTool("loom_init_workspace",
		mcp.WithDescription(
			"Initialize a new loom workspace in the current project. "+
				"Creates the loom/ directory with the workspace marker and the "+
				"specs/, impl/, and scratch/ artifact directories. "+
				"Fails if this directory is already inside a workspace.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Workspace name"),
		),
		mcp.WithString("description",
			mcp.Description("Brief description of what this workspace tracks"),
		),
	)
}

// Handle processes the loom_init_workspace tool call.
func (t *InitTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	cfg, err := workspace.Init(t.store, cwd, name, req.GetString("description", ""))
	if err != nil {
		if errors.Is(err, workspace.ErrNested) {
			return mcp.NewToolResultError(
				"Cannot create a workspace here: an ancestor directory already contains one. " +
					"Work inside the existing workspace or move this project out of it.",
			), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	response := fmt.Sprintf(
		"# Workspace Initialized\n\n"+
			"**Name:** %s\n"+
			"**Location:** `%s/`\n\n"+
			"```\nloom/\n├── workspace.json   # Workspace marker and settings\n"+
			"├── specs/           # Specification artifacts\n"+
			"├── impl/            # Implementation artifacts\n"+
			"├── scratch/         # Scratch pads\n"+
			"└── cache/           # Derived data (dependency trees)\n```\n\n"+
			"Use `loom_create_artifact` to add your first specification.",
		cfg.Name, workspace.Dir,
	)
	return mcp.NewToolResultText(response), nil
}
