// Package tools implements the MCP tool handlers for workspace
// operations. Each tool receives its dependencies via its struct and
// exposes a Definition/Handle pair; all graph and validation logic lives
// in the engine packages — the tools only translate requests and
// serialize results.
//
// Design principles:
// - SRP: each file = one tool
// - DIP: tools depend on interfaces (workspace.Store, graph.Store), not concretions
// - The index is rebuilt per call: the filesystem is ground truth
package tools

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/loom-mcp/loom/internal/index"
	"github.com/loom-mcp/loom/internal/workspace"
)

// findWorkspaceRoot walks up from the current working directory looking
// for a workspace marker. This allows tools to work from any
// subdirectory of the project.
func findWorkspaceRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	root, err := workspace.FindRoot(dir)
	if err != nil {
		// No marker found — return cwd, the caller decides what to do.
		return dir, nil
	}
	return root, nil
}

// scanRoot loads workspace config and runs a fresh full scan.
func scanRoot(store workspace.Store, projectRoot string) (*workspace.Config, *index.Index, error) {
	cfg, err := store.Load(projectRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("loading workspace config: %w", err)
	}
	idx, err := index.Scan(workspace.Path(projectRoot), cfg.Ignore)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning workspace: %w", err)
	}
	return cfg, idx, nil
}

// artifactAbs resolves a workspace-relative artifact path to disk.
func artifactAbs(projectRoot, rel string) string {
	return filepath.Join(workspace.Path(projectRoot), filepath.FromSlash(rel))
}

// jsonResult marshals v as an indented JSON tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// splitList parses a comma-separated parameter into trimmed entries.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// optString returns the argument as a string pointer when it was
// provided, distinguishing "absent" from "empty" for partial updates.
func optString(args map[string]any, key string) *string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// optList returns a provided comma-separated argument as a slice
// pointer, nil when absent.
func optList(args map[string]any, key string) *[]string {
	s := optString(args, key)
	if s == nil {
		return nil
	}
	list := splitList(*s)
	if list == nil {
		list = []string{}
	}
	return &list
}
