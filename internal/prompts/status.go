// Package prompts implements the MCP prompts exposed by the server.
package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the loom-status MCP prompt.
// It instructs the AI to validate the workspace and present the result.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("loom-status",
		mcp.WithPromptDescription(
			"Check the health of your loom workspace. "+
				"Runs the full validation pass and summarizes findings, "+
				"dangling references, and dependency cycles.",
		),
	)
}

// Handle processes the loom-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Loom Workspace Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `loom_workspace_status` to validate my workspace.\n\n" +
						"Then:\n" +
						"1. Summarize the report: artifact count and whether validation passed\n" +
						"2. List every fatal finding with the artifacts it names\n" +
						"3. For dependency cycles, show each cycle as a path of artifact IDs\n" +
						"4. Suggest a concrete fix for each finding (which file to edit and how)",
				),
			},
		},
	}, nil
}
