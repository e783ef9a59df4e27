package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markomanninen/srrd-builder-sub000/internal/storage"
	"github.com/markomanninen/srrd-builder-sub000/internal/workflow"
)

// ─── research_session_start ──────────────────────────────────────────────────

// SessionStartTool handles the research_session_start MCP tool.
type SessionStartTool struct {
	engine *workflow.Engine
}

// NewSessionStartTool creates a SessionStartTool.
func NewSessionStartTool(engine *workflow.Engine) *SessionStartTool {
	return &SessionStartTool{engine: engine}
}

// Definition returns the MCP tool definition for research_session_start.
func (t *SessionStartTool) Definition() mcp.Tool {
	return mcp.NewTool("research_session_start",
		mcp.WithDescription("Start a working session inside a research project. Tool usage is logged per session."),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID from research_project_create"),
		),
		mcp.WithString("session_type",
			mcp.Description("Session type (default: research)"),
		),
		mcp.WithString("user_id",
			mcp.Description("Optional user identifier"),
		),
	)
}

// Handle processes the research_session_start tool call.
func (t *SessionStartTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}

	id, err := t.engine.StartSession(ctx, projectID, req.GetString("session_type", ""), req.GetString("user_id", ""))
	if err != nil {
		return engineError("start session", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session started.\n\n**Session ID**: `%s`", id)), nil
}

// ─── research_session_update ─────────────────────────────────────────────────

// SessionUpdateTool handles the research_session_update MCP tool.
// It updates session context and optionally ends the session.
type SessionUpdateTool struct {
	engine *workflow.Engine
}

// NewSessionUpdateTool creates a SessionUpdateTool.
func NewSessionUpdateTool(engine *workflow.Engine) *SessionUpdateTool {
	return &SessionUpdateTool{engine: engine}
}

// Definition returns the MCP tool definition for research_session_update.
func (t *SessionUpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("research_session_update",
		mcp.WithDescription(
			"Update a session's research context: the act being worked on, the current focus, "+
				"and session goals. Set end=true to close the session. Omitted fields are left unchanged.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session ID"),
		),
		mcp.WithString("current_act",
			mcp.Description("Research act ID, e.g. design_planning"),
		),
		mcp.WithString("focus",
			mcp.Description("What the session is focused on"),
		),
		mcp.WithString("goals",
			mcp.Description("Comma-separated session goals (replaces existing goals)"),
		),
		mcp.WithBoolean("end",
			mcp.Description("End the session after applying the update"),
		),
	)
}

// Handle processes the research_session_update tool call.
func (t *SessionUpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}

	update := storage.SessionContextUpdate{
		CurrentAct: optionalString(req, "current_act"),
		Focus:      optionalString(req, "focus"),
	}
	if goals := optionalString(req, "goals"); goals != nil {
		update.Goals = splitList(*goals)
		if update.Goals == nil {
			update.Goals = []string{}
		}
	}

	if err := t.engine.UpdateSessionContext(ctx, sessionID, update); err != nil {
		return engineError("update session", err), nil
	}

	msg := fmt.Sprintf("Session `%s` updated.", sessionID)
	if boolArg(req, "end", false) {
		if err := t.engine.EndSession(ctx, sessionID); err != nil {
			return engineError("end session", err), nil
		}
		msg = fmt.Sprintf("Session `%s` updated and ended.", sessionID)
	}
	return mcp.NewToolResultText(msg), nil
}

// ─── research_session_summary ────────────────────────────────────────────────

// SessionSummaryTool handles the research_session_summary MCP tool.
type SessionSummaryTool struct {
	engine *workflow.Engine
}

// NewSessionSummaryTool creates a SessionSummaryTool.
func NewSessionSummaryTool(engine *workflow.Engine) *SessionSummaryTool {
	return &SessionSummaryTool{engine: engine}
}

// Definition returns the MCP tool definition for research_session_summary.
func (t *SessionSummaryTool) Definition() mcp.Tool {
	return mcp.NewTool("research_session_summary",
		mcp.WithDescription("Summarize the tools, acts and outcomes of one research session."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session ID"),
		),
	)
}

// Handle processes the research_session_summary tool call.
func (t *SessionSummaryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}

	s, err := t.engine.GenerateSessionSummary(ctx, sessionID)
	if err != nil {
		return engineError("summarize session", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Session Summary: %s\n\n", s.SessionID)
	if s.TotalCalls == 0 {
		b.WriteString("No tool usage recorded in this session yet.\n")
		return mcp.NewToolResultText(b.String()), nil
	}

	fmt.Fprintf(&b, "- **Calls**: %d (%d successful)\n", s.TotalCalls, s.SuccessfulCalls)
	fmt.Fprintf(&b, "- **Duration**: %s\n", s.Duration.Round(time.Second))
	fmt.Fprintf(&b, "- **Last activity**: %s\n", humanize.Time(s.LastActivity))
	fmt.Fprintf(&b, "- **Avg execution time**: %s\n", s.AvgExecutionTime)
	fmt.Fprintf(&b, "- **Tools**: %s\n", strings.Join(s.ToolsUsed, ", "))
	fmt.Fprintf(&b, "- **Acts**: %s\n", strings.Join(s.ActsTouched, ", "))
	fmt.Fprintf(&b, "- **Categories**: %s\n", strings.Join(s.CategoriesTouched, ", "))
	return mcp.NewToolResultText(b.String()), nil
}
