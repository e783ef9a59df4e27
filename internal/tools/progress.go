package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markomanninen/srrd-builder-sub000/internal/workflow"
)

// ─── research_progress ───────────────────────────────────────────────────────

// ProgressTool handles the research_progress MCP tool.
type ProgressTool struct {
	engine *workflow.Engine
}

// NewProgressTool creates a ProgressTool.
func NewProgressTool(engine *workflow.Engine) *ProgressTool {
	return &ProgressTool{engine: engine}
}

// Definition returns the MCP tool definition for research_progress.
func (t *ProgressTool) Definition() mcp.Tool {
	return mcp.NewTool("research_progress",
		mcp.WithDescription(
			"Full progress report for a research project: overall and per-act completion, "+
				"usage statistics, velocity, workflow health, gaps and suggested next tools.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID"),
		),
		mcp.WithBoolean("include_categories",
			mcp.Description("Include per-category completion (default: false)"),
		),
	)
}

// Handle processes the research_progress tool call.
func (t *ProgressTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}

	r, err := t.engine.AnalyzeProgress(ctx, projectID)
	if err != nil {
		return engineError("analyze progress", err), nil
	}
	return mcp.NewToolResultText(FormatProgress(r, boolArg(req, "include_categories", false))), nil
}

// FormatProgress renders a progress report as markdown.
func FormatProgress(r *workflow.ProgressReport, includeCategories bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Research Progress: %s\n\n", r.ProjectName)
	fmt.Fprintf(&b, "**Overall**: %d%% %s\n\n", r.OverallProgress, progressBar(r.OverallProgress))

	b.WriteString("## Research Acts\n\n")
	for _, a := range r.ActsProgress {
		fmt.Fprintf(&b, "- %s %3d%% **%s** (%d/%d categories, %d/%d tools)\n",
			progressBar(a.Percentage), a.Percentage, a.Name,
			a.CategoriesCompleted, a.TotalCategories, a.ToolsUsed, a.TotalTools)
	}

	if includeCategories {
		b.WriteString("\n## Categories\n\n")
		for _, c := range r.CategoriesProgress {
			fmt.Fprintf(&b, "- `%s` / `%s`: %d%% (%d/%d)\n", c.Act, c.Category, c.Percentage, c.ToolsUsed, c.TotalTools)
		}
	}

	b.WriteString("\n## Usage\n\n")
	fmt.Fprintf(&b, "- **Calls**: %s (%.1f%% successful)\n", humanize.Comma(int64(r.Usage.TotalCalls)), r.Usage.SuccessRate)
	fmt.Fprintf(&b, "- **Distinct tools**: %d\n", r.Usage.DistinctTools)
	if len(r.Usage.MostUsed) > 0 {
		b.WriteString("- **Most used**:")
		for _, tc := range r.Usage.MostUsed {
			fmt.Fprintf(&b, " `%s` (%d)", tc.Tool, tc.Count)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	writeVelocity(&b, r.Velocity)
	b.WriteString("\n")
	writeHealth(&b, r.Health)

	if len(r.Gaps) > 0 {
		b.WriteString("\n## Gaps\n\n")
		for _, g := range r.Gaps {
			fmt.Fprintf(&b, "- [%s] %s\n", g.Severity, g.Description)
		}
	}

	if len(r.Recommendations) > 0 {
		b.WriteString("\n## Next Tools\n\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "- `%s` (%s): %s\n", rec.Tool, rec.Priority, rec.Reason)
		}
	}

	if len(r.MilestonesImplied) > 0 {
		b.WriteString("\n## Milestones\n\n")
		for _, m := range r.MilestonesImplied {
			fmt.Fprintf(&b, "- %s (%d%%)\n", m.Name, m.Percentage)
		}
	}
	return b.String()
}

// ─── research_velocity ───────────────────────────────────────────────────────

// VelocityTool handles the research_velocity MCP tool.
type VelocityTool struct {
	engine *workflow.Engine
}

// NewVelocityTool creates a VelocityTool.
func NewVelocityTool(engine *workflow.Engine) *VelocityTool {
	return &VelocityTool{engine: engine}
}

// Definition returns the MCP tool definition for research_velocity.
func (t *VelocityTool) Definition() mcp.Tool {
	return mcp.NewTool("research_velocity",
		mcp.WithDescription("Research pace: tools per active day, week-over-week trend and estimated days to cover every tool."),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID"),
		),
	)
}

// Handle processes the research_velocity tool call.
func (t *VelocityTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}
	v, err := t.engine.CalculateVelocity(ctx, projectID)
	if err != nil {
		return engineError("calculate velocity", err), nil
	}
	var b strings.Builder
	writeVelocity(&b, v)
	return mcp.NewToolResultText(b.String()), nil
}

func writeVelocity(b *strings.Builder, v *workflow.Velocity) {
	b.WriteString("## Velocity\n\n")
	if v.Trend == workflow.TrendNoData {
		b.WriteString("No tool usage recorded yet.\n")
		return
	}
	fmt.Fprintf(b, "- **Pace**: %.2f tools/day over %d active days\n", v.ToolsPerDay, v.ActiveDays)
	fmt.Fprintf(b, "- **Trend**: %s (%d calls this week, %d the week before)\n", v.Trend, v.RecentEvents, v.PreviousEvents)
	fmt.Fprintf(b, "- **Remaining tools**: %d\n", v.RemainingTools)
	if v.ETADays != nil {
		fmt.Fprintf(b, "- **Estimated days to cover all tools**: %.1f\n", *v.ETADays)
	}
}

// ─── research_health ─────────────────────────────────────────────────────────

// HealthTool handles the research_health MCP tool.
type HealthTool struct {
	engine *workflow.Engine
}

// NewHealthTool creates a HealthTool.
func NewHealthTool(engine *workflow.Engine) *HealthTool {
	return &HealthTool{engine: engine}
}

// Definition returns the MCP tool definition for research_health.
func (t *HealthTool) Definition() mcp.Tool {
	return mcp.NewTool("research_health",
		mcp.WithDescription("Workflow health score (0-100) from workflow gaps and balance of usage across research acts."),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID"),
		),
	)
}

// Handle processes the research_health tool call.
func (t *HealthTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}

	used, err := t.engine.ListUsedTools(ctx, projectID)
	if err != nil {
		return engineError("assess health", err), nil
	}
	h, err := t.engine.AssessHealth(ctx, projectID, used)
	if err != nil {
		return engineError("assess health", err), nil
	}
	var b strings.Builder
	writeHealth(&b, h)
	return mcp.NewToolResultText(b.String()), nil
}

func writeHealth(b *strings.Builder, h *workflow.Health) {
	b.WriteString("## Health\n\n")
	fmt.Fprintf(b, "- **Score**: %d/100 (%s)\n", h.Score, h.Status)
	fmt.Fprintf(b, "- **Balance**: %.1f\n", h.BalanceScore)
	for _, issue := range h.Issues {
		fmt.Fprintf(b, "- Issue: %s\n", issue)
	}
}
