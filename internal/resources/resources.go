// Package resources implements MCP resource handlers for the workspace.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (loom://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/loom-mcp/loom/internal/index"
	"github.com/loom-mcp/loom/internal/validate"
	"github.com/loom-mcp/loom/internal/workspace"
)

// Handler manages workspace resource endpoints.
type Handler struct {
	store workspace.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(store workspace.Store) *Handler {
	return &Handler{store: store}
}

// IndexResource returns the MCP resource definition for the structural index.
func (h *Handler) IndexResource() mcp.Resource {
	return mcp.NewResource(
		"loom://workspace/index",
		"Workspace Index",
		mcp.WithResourceDescription("Structural index of all artifacts: records, headings, constraint anchors, edges"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleIndex returns a fresh scan of the workspace as JSON.
func (h *Handler) HandleIndex(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	idx, err := h.scan()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return jsonResource(req.Params.URI, idx)
}

// StatusResource returns the MCP resource definition for the validation report.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		"loom://workspace/status",
		"Workspace Status",
		mcp.WithResourceDescription("Validation report over all artifacts: structure, references, cycles, compliance, scratch pads"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStatus runs every syntax-level check and returns the report as
// JSON. Reachability probes are never run from a resource read.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	idx, err := h.scan()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return jsonResource(req.Params.URI, validate.Run(idx, validate.AllChecks()))
}

// scan locates the workspace from cwd and runs a full index scan.
func (h *Handler) scan() (*index.Index, error) {
	projectRoot, err := findRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := h.store.Load(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("loading workspace config: %w", err)
	}
	idx, err := index.Scan(workspace.Path(projectRoot), cfg.Ignore)
	if err != nil {
		return nil, fmt.Errorf("scanning workspace: %w", err)
	}
	return idx, nil
}

// jsonResource marshals v as an application/json resource.
func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
