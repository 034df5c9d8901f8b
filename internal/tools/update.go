package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/loom-mcp/loom/internal/artifact"
	"github.com/loom-mcp/loom/internal/index"
	"github.com/loom-mcp/loom/internal/metadata"
	"github.com/loom-mcp/loom/internal/workspace"
)

// UpdateTool handles the loom_update_artifact MCP tool. It applies a
// partial metadata patch: only the provided parameters change, the body
// and every omitted field stay as they are.
type UpdateTool struct {
	store workspace.Store
}

// NewUpdateTool creates an UpdateTool with the given config store.
func NewUpdateTool(store workspace.Store) *UpdateTool {
	return &UpdateTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("loom_update_artifact",
		mcp.WithDescription(
			"Apply a partial metadata update to an existing artifact. "+
				"Omitted parameters are left unchanged; provided ones replace "+
				"the current value wholesale. The artifact body is never touched. "+
				"A scratch pad's target cannot be rewritten once set.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Workspace-relative artifact path, e.g. 'specs/parser.md'"),
		),
		mcp.WithString("name", mcp.Description("New name")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("version", mcp.Description("New version")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags (replaces the full list)")),
		mcp.WithString("dependencies", mcp.Description("Comma-separated dependency paths (replaces the full list)")),
		mcp.WithString("references", mcp.Description("Comma-separated references (replaces the full list)")),
		mcp.WithString("spec", mcp.Description("For implementations: new spec pointer")),
		mcp.WithBoolean("requires_implementation", mcp.Description("For specs: new requires_implementation value")),
		mcp.WithString("branch", mcp.Description("For scratch pads: new branch")),
		mcp.WithString("work_type",
			mcp.Description("For scratch pads: new work type"),
			mcp.Enum("exploration", "design", "debug", "review"),
		),
		mcp.WithString("target", mcp.Description("For scratch pads: target (only settable while empty)")),
	)
}

// Handle processes the loom_update_artifact tool call.
func (t *UpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}

	projectRoot, err := findWorkspaceRoot()
	if err != nil {
		return nil, fmt.Errorf("finding workspace root: %w", err)
	}

	// The patch shape depends on the artifact's kind; read it first.
	current, _, err := metadata.Read(artifactAbs(projectRoot, path))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := req.GetArguments()
	ident := metadata.IdentityUpdate{
		Name:        optString(args, "name"),
		Title:       optString(args, "title"),
		Description: optString(args, "description"),
		Version:     optString(args, "version"),
		Tags:        optList(args, "tags"),
	}

	var u metadata.Update
	switch current.Kind() {
	case metadata.KindSpec:
		su := &metadata.SpecUpdate{
			Identity:     ident,
			Dependencies: optList(args, "dependencies"),
			References:   optList(args, "references"),
		}
		if v, ok := args["requires_implementation"].(bool); ok {
			su.RequiresImplementation = &v
		}
		u.Spec = su
	case metadata.KindImplementation:
		u.Implementation = &metadata.ImplementationUpdate{
			Identity:     ident,
			Spec:         optString(args, "spec"),
			Dependencies: optList(args, "dependencies"),
			References:   optList(args, "references"),
		}
	case metadata.KindScratch:
		su := &metadata.ScratchUpdate{
			Identity:   ident,
			Branch:     optString(args, "branch"),
			Target:     optString(args, "target"),
			References: optList(args, "references"),
		}
		if v := optString(args, "work_type"); v != nil {
			w := metadata.WorkType(*v)
			su.WorkType = &w
		}
		u.Scratch = su
	}

	merged, err := artifact.Update(projectRoot, index.ArtifactID(path), u)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"path":     path,
		"kind":     merged.Kind(),
		"identity": merged.Identity(),
	})
}
