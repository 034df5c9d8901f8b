// Package server wires all MCP components and creates the server instance.
//
// This is the composition root (DIP): it creates concrete implementations
// and injects them into the tools/prompts/resources that depend on
// abstractions. No business logic lives here — only wiring.
package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/loom-mcp/loom/internal/prompts"
	"github.com/loom-mcp/loom/internal/resources"
	"github.com/loom-mcp/loom/internal/templates"
	"github.com/loom-mcp/loom/internal/tools"
	"github.com/loom-mcp/loom/internal/workspace"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The dependency-tree cache is opened per request by the tools that use
// it, so there is no long-lived state to clean up on shutdown.
func New() (*server.MCPServer, error) {
	// --- Create shared dependencies ---

	store := workspace.NewFileStore()

	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("creating template renderer: %w", err)
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"loom",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register workspace tools ---

	initTool := tools.NewInitTool(store)
	s.AddTool(initTool.Definition(), initTool.Handle)

	statusTool := tools.NewStatusTool(store)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	createTool := tools.NewCreateTool(store, renderer)
	s.AddTool(createTool.Definition(), createTool.Handle)

	updateTool := tools.NewUpdateTool(store)
	s.AddTool(updateTool.Definition(), updateTool.Handle)

	deleteTool := tools.NewDeleteTool(store)
	s.AddTool(deleteTool.Definition(), deleteTool.Handle)

	// --- Register graph tools ---

	depsTool := tools.NewDependencyTreeTool(store)
	s.AddTool(depsTool.Definition(), depsTool.Handle)

	impactTool := tools.NewDeletionImpactTool(store)
	s.AddTool(impactTool.Definition(), impactTool.Handle)

	// --- Register prompts ---

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(store)
	s.AddResource(resourceHandler.IndexResource(), resourceHandler.HandleIndex)
	s.AddResource(resourceHandler.StatusResource(), resourceHandler.HandleStatus)

	return s, nil
}

// serverInstructions returns the system instructions that tell the AI
// how to use loom effectively.
func serverInstructions() string {
	return `You have access to Loom, a spec-workspace MCP server.

Loom manages a loom/ directory of markdown artifacts with frontmatter
metadata. There are three artifact kinds:
- spec: a specification (specs/), may require an implementation
- implementation: an implementation record (impl/), points at its spec
- scratch: a scratch pad (scratch/) tied to a branch and a target artifact

## When to use Loom
- The user wants to capture a specification, design, or decision as a
  durable artifact rather than chat text
- The user asks what depends on an artifact, or whether it is safe to
  delete one
- The user wants to check the health of their spec workspace

## Workflow
1. loom_init_workspace once per project — creates loom/ with
   workspace.json, specs/, impl/, scratch/, cache/
2. loom_create_artifact to add artifacts. Declare relationships in
   frontmatter: dependencies (workspace paths), references (paths or
   URLs), spec (implementation → spec pointer), target (scratch pad →
   the artifact it is about)
3. loom_update_artifact for metadata changes — it patches only the
   fields you pass and never touches the body. Edit the body directly
   in the file.
4. loom_workspace_status after changes — it validates structure,
   reference resolution, dependency cycles, kind compliance, and
   scratch-pad rules. Pass check_reachability=true to also probe
   external URLs (slower; network).
5. loom_dependency_tree to explore relationships; direction=reverse
   answers "what depends on this"
6. loom_deletion_impact before deleting; loom_delete_artifact refuses
   to strand dependents unless force=true

## Important rules
- Artifacts are identified by workspace-relative path, e.g.
  specs/parser.md — always pass paths, not titles
- The filesystem is ground truth: users may edit artifacts by hand, and
  every tool call rescans before acting
- A scratch pad's target is immutable once set — create a new pad
  instead of retargeting
- Constraint anchors are backticked spans like ` + "`parser.tokens:must`" + `
  inside artifact bodies; other artifacts can reference them
- Dependency cycles are reported by validation but never block writes —
  surface them to the user and suggest which edge to break`
}
