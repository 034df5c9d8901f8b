package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/loom-mcp/loom/internal/validate"
	"github.com/loom-mcp/loom/internal/workspace"
)

// StatusTool handles the loom_workspace_status MCP tool: a full
// validation pass with independently selectable categories.
type StatusTool struct {
	store workspace.Store
}

// NewStatusTool creates a StatusTool with the given config store.
func NewStatusTool(store workspace.Store) *StatusTool {
	return &StatusTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("loom_workspace_status",
		mcp.WithDescription(
			"Validate the workspace and return a structured report. "+
				"Checks are independently selectable: structure (index integrity), "+
				"references (targets resolve; external URLs well-formed), "+
				"cycles (dependency cycle detection), compliance (kind-specific rules), "+
				"scratchpads (lifecycle rules). All checks run by default. "+
				"Optionally probes external references for network reachability.",
		),
		mcp.WithBoolean("structure", mcp.Description("Check index integrity"), mcp.DefaultBool(true)),
		mcp.WithBoolean("references", mcp.Description("Check reference resolution"), mcp.DefaultBool(true)),
		mcp.WithBoolean("cycles", mcp.Description("Check for dependency cycles"), mcp.DefaultBool(true)),
		mcp.WithBoolean("compliance", mcp.Description("Check kind-specific compliance rules"), mcp.DefaultBool(true)),
		mcp.WithBoolean("scratchpads", mcp.Description("Check scratch-pad lifecycle rules"), mcp.DefaultBool(true)),
		mcp.WithBoolean("check_reachability",
			mcp.Description("Probe external references over the network (HEAD requests). Off by default: adds network latency."),
			mcp.DefaultBool(false),
		),
	)
}

// Handle processes the loom_workspace_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectRoot, err := findWorkspaceRoot()
	if err != nil {
		return nil, fmt.Errorf("finding workspace root: %w", err)
	}
	cfg, idx, err := scanRoot(t.store, projectRoot)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	vcfg := validate.Config{
		Structure:   req.GetBool("structure", true),
		References:  req.GetBool("references", true),
		Cycles:      req.GetBool("cycles", true),
		Compliance:  req.GetBool("compliance", true),
		ScratchPads: req.GetBool("scratchpads", true),
	}
	if req.GetBool("check_reachability", false) {
		vcfg.Reachability = &validate.ProbeConfig{
			Timeout:      time.Duration(cfg.ProbeTimeoutSeconds) * time.Second,
			MaxRedirects: cfg.ProbeMaxRedirects,
		}
	}

	return jsonResult(validate.Run(idx, vcfg))
}
