package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/loom-mcp/loom/internal/artifact"
	"github.com/loom-mcp/loom/internal/metadata"
	"github.com/loom-mcp/loom/internal/templates"
	"github.com/loom-mcp/loom/internal/workspace"
)

// CreateTool handles the loom_create_artifact MCP tool.
type CreateTool struct {
	store    workspace.Store
	renderer *templates.Renderer
}

// NewCreateTool creates a CreateTool with its dependencies.
func NewCreateTool(store workspace.Store, renderer *templates.Renderer) *CreateTool {
	return &CreateTool{store: store, renderer: renderer}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateTool) Definition() mcp.Tool {
	return mcp.NewTool("loom_create_artifact",
		mcp.WithDescription(
			"Create a new workspace artifact with frontmatter metadata and a "+
				"scaffold body. Specs live under specs/, implementations under "+
				"impl/, scratch pads under scratch/ (derived from kind unless "+
				"'path' overrides it).",
		),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Artifact kind"),
			mcp.Enum("spec", "implementation", "scratch"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Artifact name; also used to derive the filename slug"),
		),
		mcp.WithString("title", mcp.Description("Human-readable title")),
		mcp.WithString("description", mcp.Description("One-line description")),
		mcp.WithString("path",
			mcp.Description("Workspace-relative path override, e.g. 'specs/parser.md'"),
		),
		mcp.WithString("dependencies",
			mcp.Description("Comma-separated workspace paths this artifact depends on"),
		),
		mcp.WithString("references",
			mcp.Description("Comma-separated workspace paths or URLs this artifact references"),
		),
		mcp.WithString("spec",
			mcp.Description("For implementations: workspace path of the implemented spec"),
		),
		mcp.WithBoolean("requires_implementation",
			mcp.Description("For specs: whether an implementation artifact is expected"),
		),
		mcp.WithString("branch", mcp.Description("For scratch pads: the working branch")),
		mcp.WithString("work_type",
			mcp.Description("For scratch pads: what the pad is for"),
			mcp.Enum("exploration", "design", "debug", "review"),
		),
		mcp.WithString("target",
			mcp.Description("For scratch pads: the artifact this pad is about (immutable once set)"),
		),
	)
}

// Handle processes the loom_create_artifact tool call.
func (t *CreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := metadata.Kind(req.GetString("kind", ""))
	if err := metadata.ValidateKind(kind); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	ident := metadata.Identity{
		Name:        name,
		Title:       req.GetString("title", ""),
		Description: req.GetString("description", ""),
	}
	var m metadata.Metadata
	switch kind {
	case metadata.KindSpec:
		m = metadata.Metadata{Spec: &metadata.Spec{
			Kind:                   kind,
			Identity:               ident,
			RequiresImplementation: req.GetBool("requires_implementation", false),
			Dependencies:           splitList(req.GetString("dependencies", "")),
			References:             splitList(req.GetString("references", "")),
		}}
	case metadata.KindImplementation:
		m = metadata.Metadata{Implementation: &metadata.Implementation{
			Kind:         kind,
			Identity:     ident,
			Spec:         req.GetString("spec", ""),
			Dependencies: splitList(req.GetString("dependencies", "")),
			References:   splitList(req.GetString("references", "")),
		}}
	case metadata.KindScratch:
		workType := metadata.WorkType(req.GetString("work_type", string(metadata.WorkExploration)))
		if err := metadata.ValidateWorkType(workType); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		m = metadata.Metadata{Scratch: &metadata.Scratch{
			Kind:       kind,
			Identity:   ident,
			Branch:     req.GetString("branch", ""),
			WorkType:   workType,
			Target:     req.GetString("target", ""),
			References: splitList(req.GetString("references", "")),
		}}
	}

	body, err := t.renderer.Render(kind, templates.ScaffoldData{
		Name:        name,
		Title:       ident.Title,
		Description: ident.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering scaffold: %w", err)
	}

	projectRoot, err := findWorkspaceRoot()
	if err != nil {
		return nil, fmt.Errorf("finding workspace root: %w", err)
	}
	if !workspace.Exists(projectRoot) {
		return mcp.NewToolResultError(
			"No loom workspace found. Run loom_init_workspace first.",
		), nil
	}

	id, err := artifact.Create(projectRoot, req.GetString("path", ""), m, body)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Created %s artifact `%s`.\n\nRun `loom_workspace_status` to validate the workspace.",
		kind, id,
	)), nil
}
