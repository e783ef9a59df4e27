package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markomanninen/srrd-builder-sub000/internal/workflow"
)

// ProjectCreateTool handles the research_project_create MCP tool.
type ProjectCreateTool struct {
	engine *workflow.Engine
}

// NewProjectCreateTool creates a ProjectCreateTool.
func NewProjectCreateTool(engine *workflow.Engine) *ProjectCreateTool {
	return &ProjectCreateTool{engine: engine}
}

// Definition returns the MCP tool definition for research_project_create.
func (t *ProjectCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("research_project_create",
		mcp.WithDescription(
			"Register a research project. All sessions, tool usage and milestones "+
				"are tracked per project. Returns the project ID to pass to other research_* tools.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Project name"),
		),
		mcp.WithString("description",
			mcp.Description("Short description of the research question"),
		),
		mcp.WithString("domain",
			mcp.Description("Research domain, e.g. physics or sociology"),
		),
	)
}

// Handle processes the research_project_create tool call.
func (t *ProjectCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	id, err := t.engine.CreateProject(ctx, name, req.GetString("description", ""), req.GetString("domain", ""))
	if err != nil {
		return engineError("create project", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Project %q created.\n\n**Project ID**: `%s`\n\nStart a session with `research_session_start`.", name, id,
	)), nil
}
