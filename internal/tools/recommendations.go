package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markomanninen/srrd-builder-sub000/internal/storage"
	"github.com/markomanninen/srrd-builder-sub000/internal/workflow"
)

// ─── research_recommendations ────────────────────────────────────────────────

// RecommendationsTool handles the research_recommendations MCP tool.
type RecommendationsTool struct {
	engine *workflow.Engine
}

// NewRecommendationsTool creates a RecommendationsTool.
func NewRecommendationsTool(engine *workflow.Engine) *RecommendationsTool {
	return &RecommendationsTool{engine: engine}
}

// Definition returns the MCP tool definition for research_recommendations.
func (t *RecommendationsTool) Definition() mcp.Tool {
	return mcp.NewTool("research_recommendations",
		mcp.WithDescription(
			"Suggest the next research tools to use, with priority, effort estimate and reasoning. "+
				"When a session is given and has a current act, suggestions target that act. "+
				"Each suggestion is saved as a pending recommendation.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID"),
		),
		mcp.WithString("session_id",
			mcp.Description("Optional session ID whose current act drives the suggestions"),
		),
	)
}

// Handle processes the research_recommendations tool call.
func (t *RecommendationsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}

	recs, err := t.engine.GenerateRecommendations(ctx, projectID, req.GetString("session_id", ""))
	if err != nil {
		return engineError("generate recommendations", err), nil
	}
	if len(recs) == 0 {
		return mcp.NewToolResultText("Every tool in the current act has been used. No further suggestions."), nil
	}

	var b strings.Builder
	b.WriteString("# Recommended Next Tools\n\n")
	for i, r := range recs {
		fmt.Fprintf(&b, "%d. `%s` [%s priority, %s effort] (#%d)\n   %s\n", i+1, r.Tool, r.Priority, r.Effort, r.ID, r.Reason)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ─── research_contextual_recommendations ─────────────────────────────────────

// ContextualRecommendationsTool handles the research_contextual_recommendations MCP tool.
type ContextualRecommendationsTool struct {
	engine *workflow.Engine
}

// NewContextualRecommendationsTool creates a ContextualRecommendationsTool.
func NewContextualRecommendationsTool(engine *workflow.Engine) *ContextualRecommendationsTool {
	return &ContextualRecommendationsTool{engine: engine}
}

// Definition returns the MCP tool definition for research_contextual_recommendations.
func (t *ContextualRecommendationsTool) Definition() mcp.Tool {
	return mcp.NewTool("research_contextual_recommendations",
		mcp.WithDescription(
			"Pattern-aware suggestions. Looks at the most recent tool calls, classifies them as "+
				"repetitive, logical progression or exploratory, and scores each suggestion with a confidence. "+
				"Also lists under-used research acts as alternative paths.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID"),
		),
		mcp.WithString("session_id",
			mcp.Description("Limit the recent-call window to this session"),
		),
		mcp.WithString("last_tool_used",
			mcp.Description("Tool just used; its act becomes the current act"),
		),
		mcp.WithNumber("depth",
			mcp.Description("Number of suggestions to return (default: 3)"),
		),
	)
}

// Handle processes the research_contextual_recommendations tool call.
func (t *ContextualRecommendationsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}

	r, err := t.engine.ContextualRecommendations(ctx, workflow.ContextualRequest{
		ProjectID:    projectID,
		SessionID:    req.GetString("session_id", ""),
		LastToolUsed: req.GetString("last_tool_used", ""),
		Depth:        intArg(req, "depth", workflow.DefaultDepth),
	})
	if err != nil {
		return engineError("generate contextual recommendations", err), nil
	}

	var b strings.Builder
	b.WriteString("# Contextual Recommendations\n\n")
	fmt.Fprintf(&b, "**Overall progress**: %d%%\n", r.Progress.OverallProgress)
	fmt.Fprintf(&b, "**Pattern**: %s\n\n", r.Pattern.Pattern)
	b.WriteString(r.Rationale + "\n\n")

	for i, rec := range r.Recommendations {
		fmt.Fprintf(&b, "%d. `%s` (confidence %.0f%%, %s effort)\n   %s\n", i+1, rec.Tool, rec.Confidence*100, rec.Effort, rec.Reason)
	}

	if len(r.Alternatives) > 0 {
		b.WriteString("\n## Alternative Paths\n\n")
		for _, alt := range r.Alternatives {
			fmt.Fprintf(&b, "- %s\n", alt)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ─── research_recommendation_update ──────────────────────────────────────────

// RecommendationUpdateTool handles the research_recommendation_update MCP tool.
type RecommendationUpdateTool struct {
	engine *workflow.Engine
}

// NewRecommendationUpdateTool creates a RecommendationUpdateTool.
func NewRecommendationUpdateTool(engine *workflow.Engine) *RecommendationUpdateTool {
	return &RecommendationUpdateTool{engine: engine}
}

// Definition returns the MCP tool definition for research_recommendation_update.
func (t *RecommendationUpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("research_recommendation_update",
		mcp.WithDescription("Mark a saved recommendation as accepted, dismissed or completed."),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Recommendation ID as shown by research_recommendations"),
		),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Description("New status"),
			mcp.Enum(storage.RecommendationAccepted, storage.RecommendationDismissed, storage.RecommendationCompleted),
		),
	)
}

// Handle processes the research_recommendation_update tool call.
func (t *RecommendationUpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := intArg(req, "id", 0)
	if id <= 0 {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	status := req.GetString("status", "")
	switch status {
	case storage.RecommendationAccepted, storage.RecommendationDismissed, storage.RecommendationCompleted:
	default:
		return mcp.NewToolResultError("'status' must be one of accepted, dismissed, completed"), nil
	}

	if err := t.engine.UpdateRecommendationStatus(ctx, int64(id), status); err != nil {
		return engineError("update recommendation", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Recommendation #%d marked %s.", id, status)), nil
}
