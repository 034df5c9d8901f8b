package resources

import (
	"fmt"
	"os"

	"github.com/loom-mcp/loom/internal/workspace"
)

// findRoot walks up from cwd looking for loom/workspace.json.
// Shared utility for resource handlers.
func findRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	root, err := workspace.FindRoot(dir)
	if err != nil {
		return "", err
	}
	return root, nil
}
