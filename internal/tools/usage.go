package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markomanninen/srrd-builder-sub000/internal/workflow"
)

// LogToolTool handles the research_log_tool MCP tool.
// It appends one tool invocation to the session's usage log.
type LogToolTool struct {
	engine *workflow.Engine
}

// NewLogToolTool creates a LogToolTool.
func NewLogToolTool(engine *workflow.Engine) *LogToolTool {
	return &LogToolTool{engine: engine}
}

// Definition returns the MCP tool definition for research_log_tool.
func (t *LogToolTool) Definition() mcp.Tool {
	return mcp.NewTool("research_log_tool",
		mcp.WithDescription(
			"Record that a research tool was used in a session. The tool is classified into its "+
				"research act and category automatically. Call this after every research tool invocation "+
				"so progress, velocity and recommendations stay accurate.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session ID"),
		),
		mcp.WithString("tool_name",
			mcp.Required(),
			mcp.Description("Name of the research tool that was used"),
		),
		mcp.WithBoolean("success",
			mcp.Description("Whether the tool call succeeded (default: true)"),
		),
		mcp.WithNumber("execution_time_ms",
			mcp.Description("Execution time in milliseconds"),
		),
		mcp.WithString("error_message",
			mcp.Description("Error message when the call failed"),
		),
		mcp.WithString("result_summary",
			mcp.Description("One-line summary of the result"),
		),
	)
}

// Handle processes the research_log_tool tool call.
func (t *LogToolTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	toolName := req.GetString("tool_name", "")
	if toolName == "" {
		return mcp.NewToolResultError("'tool_name' is required"), nil
	}
	ms := intArg(req, "execution_time_ms", 0)
	if ms < 0 {
		return mcp.NewToolResultError("'execution_time_ms' must not be negative"), nil
	}

	u, err := t.engine.RecordToolUsage(ctx, workflow.ToolCall{
		SessionID:     sessionID,
		ToolName:      toolName,
		Success:       boolArg(req, "success", true),
		ExecutionTime: time.Duration(ms) * time.Millisecond,
		ErrorMessage:  req.GetString("error_message", ""),
		ResultSummary: req.GetString("result_summary", ""),
	})
	if err != nil {
		return engineError("log tool usage", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Logged `%s` (%s / %s) as usage #%d.", u.ToolName, u.Act, u.Category, u.ID,
	)), nil
}

// ToolContextTool handles the research_tool_context MCP tool.
// It reports where a tool sits in the research taxonomy.
type ToolContextTool struct {
	engine *workflow.Engine
}

// NewToolContextTool creates a ToolContextTool.
func NewToolContextTool(engine *workflow.Engine) *ToolContextTool {
	return &ToolContextTool{engine: engine}
}

// Definition returns the MCP tool definition for research_tool_context.
func (t *ToolContextTool) Definition() mcp.Tool {
	return mcp.NewTool("research_tool_context",
		mcp.WithDescription("Look up the research act and category a tool belongs to, with its sibling tools."),
		mcp.WithString("tool_name",
			mcp.Required(),
			mcp.Description("Research tool name"),
		),
	)
}

// Handle processes the research_tool_context tool call.
func (t *ToolContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	toolName := req.GetString("tool_name", "")
	if toolName == "" {
		return mcp.NewToolResultError("'tool_name' is required"), nil
	}

	reg := t.engine.Registry()
	tc, ok := reg.ToolContext(toolName)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("tool %q is not part of the research taxonomy", toolName)), nil
	}
	act, _ := reg.Act(tc.Act)
	cat, _ := reg.Category(tc.Category)

	response := fmt.Sprintf("# %s\n\n", tc.Tool)
	response += fmt.Sprintf("- **Act**: %s (`%s`), step %d of %d\n", act.Name, act.ID, reg.ActIndex(act.ID)+1, len(reg.ActIDs()))
	response += fmt.Sprintf("- **Category**: %s (`%s`)\n", cat.Name, cat.ID)
	response += "- **Tools in category**:"
	for _, tool := range cat.Tools {
		response += fmt.Sprintf(" `%s`", tool)
	}
	response += "\n"
	if next, ok := reg.NextAct(act.ID); ok {
		response += fmt.Sprintf("- **Next act**: `%s`\n", next)
	}
	return mcp.NewToolResultText(response), nil
}
