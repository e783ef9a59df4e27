// Package prompts implements MCP prompt handlers for the research workflow.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence of research_* tools.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StartPrompt handles the research-start MCP prompt.
// It guides the AI to register a project, open a session and pick a first tool.
type StartPrompt struct{}

// NewStartPrompt creates a StartPrompt.
func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("research-start",
		mcp.WithPromptDescription(
			"Start tracking a new research project. Registers the project, opens a "+
				"session and suggests where to begin in the research workflow.",
		),
		mcp.WithArgument("project_name",
			mcp.ArgumentDescription("Name of the research project"),
		),
		mcp.WithArgument("domain",
			mcp.ArgumentDescription("Research domain, e.g. physics or sociology"),
		),
	)
}

// Handle processes the research-start prompt request.
func (p *StartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	projectName := "my-research"
	domain := ""
	if args := req.Params.Arguments; args != nil {
		if name, ok := args["project_name"]; ok && name != "" {
			projectName = name
		}
		if d, ok := args["domain"]; ok {
			domain = d
		}
	}

	domainLine := "Ask me which research domain this belongs to."
	if domain != "" {
		domainLine = fmt.Sprintf("Use domain='%s'.", domain)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Start research project: %s", projectName),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to start tracking a research project called '%s'.\n\n"+
						"Please:\n"+
						"1. Run `research_project_create` with name='%s' and a one-line description (ask me for it). %s\n"+
						"2. Run `research_session_start` with the returned project ID\n"+
						"3. Run `research_recommendations` for the project and explain where to begin\n"+
						"4. From now on, call `research_log_tool` after every research tool you use",
					projectName, projectName, domainLine,
				)),
			},
		},
	}, nil
}
