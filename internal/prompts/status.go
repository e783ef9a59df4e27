package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the research-status MCP prompt.
// It instructs the AI to gather and present the current state of a project.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("research-status",
		mcp.WithPromptDescription(
			"Check the status of a research project. Shows progress per research act, "+
				"velocity, workflow health, milestones and what to do next.",
		),
		mcp.WithArgument("project_id",
			mcp.ArgumentDescription("Project ID (omit to be asked)"),
		),
	)
}

// Handle processes the research-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	target := "my research project (ask me for the project ID if you don't have it)"
	if args := req.Params.Arguments; args != nil {
		if id, ok := args["project_id"]; ok && id != "" {
			target = fmt.Sprintf("project `%s`", id)
		}
	}

	return &mcp.GetPromptResult{
		Description: "Research Project Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please check the status of " + target + ".\n\n" +
						"Run, in order:\n" +
						"1. `research_progress` with include_categories=true\n" +
						"2. `research_milestones` to record anything newly achieved\n" +
						"3. `research_contextual_recommendations`\n\n" +
						"Then:\n" +
						"1. Show progress per research act in a clear, visual format\n" +
						"2. Highlight workflow gaps and health issues\n" +
						"3. Mention any NEW milestones\n" +
						"4. Tell me exactly which tool to use next and why",
				),
			},
		},
	}, nil
}
