package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markomanninen/srrd-builder-sub000/internal/workflow"
)

// MilestonesTool handles the research_milestones MCP tool.
// By default it runs detection first, then lists what has been achieved.
type MilestonesTool struct {
	engine *workflow.Engine
}

// NewMilestonesTool creates a MilestonesTool.
func NewMilestonesTool(engine *workflow.Engine) *MilestonesTool {
	return &MilestonesTool{engine: engine}
}

// Definition returns the MCP tool definition for research_milestones.
func (t *MilestonesTool) Definition() mcp.Tool {
	return mcp.NewTool("research_milestones",
		mcp.WithDescription(
			"Detect and list research milestones: act completion thresholds, tool mastery and "+
				"workflow breadth. Detection is safe to repeat; each milestone is recorded once.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID"),
		),
		mcp.WithBoolean("detect",
			mcp.Description("Run milestone detection before listing (default: true)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum milestones to list when detect=false (default: 20)"),
		),
	)
}

// Handle processes the research_milestones tool call.
func (t *MilestonesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}

	var b strings.Builder
	b.WriteString("# Research Milestones\n\n")

	if !boolArg(req, "detect", true) {
		ms, err := t.engine.ListMilestones(ctx, projectID, intArg(req, "limit", 20))
		if err != nil {
			return engineError("list milestones", err), nil
		}
		if len(ms) == 0 {
			b.WriteString("No milestones recorded yet.\n")
		}
		for _, m := range ms {
			fmt.Fprintf(&b, "- **%s** (impact %d/5, %s)\n", m.Name, m.Impact, humanize.Time(m.AchievedAt))
		}
		return mcp.NewToolResultText(b.String()), nil
	}

	results, err := t.engine.DetectMilestones(ctx, projectID)
	if err != nil {
		return engineError("detect milestones", err), nil
	}
	if len(results) == 0 {
		b.WriteString("No milestones achieved yet. Keep using research tools to unlock them.\n")
		return mcp.NewToolResultText(b.String()), nil
	}

	fresh := 0
	for _, m := range results {
		marker := ""
		if m.New {
			marker = " NEW"
			fresh++
		}
		fmt.Fprintf(&b, "- **%s**%s (impact %d/5): %s\n", m.Name, marker, m.Impact, m.Description)
	}
	fmt.Fprintf(&b, "\n_%d achieved, %d new_\n", len(results), fresh)
	return mcp.NewToolResultText(b.String()), nil
}
