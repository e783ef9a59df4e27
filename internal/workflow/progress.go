package workflow

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/markomanninen/srrd-builder-sub000/internal/storage"
	"github.com/markomanninen/srrd-builder-sub000/internal/taxonomy"
)

const topToolsLimit = 5

// ToolCount is the number of calls of one tool.
type ToolCount struct {
	Tool  string `json:"tool"`
	Count int    `json:"count"`
}

// UsageStats summarizes raw tool usage.
type UsageStats struct {
	TotalCalls      int         `json:"total_calls"`
	SuccessfulCalls int         `json:"successful_calls"`
	SuccessRate     float64     `json:"success_rate"`
	DistinctTools   int         `json:"distinct_tools"`
	MostUsed        []ToolCount `json:"most_used"`
}

// ProgressReport is the composite view of a project's workflow.
type ProgressReport struct {
	ProjectID          string                        `json:"project_id"`
	ProjectName        string                        `json:"project_name"`
	OverallProgress    int                           `json:"overall_progress"`
	ActsProgress       []taxonomy.ActCompletion      `json:"acts_progress"`
	CategoriesProgress []taxonomy.CategoryCompletion `json:"categories_progress"`
	Recommendations    []taxonomy.Recommendation     `json:"recommendations"`
	Gaps               []taxonomy.Gap                `json:"gaps"`
	MilestonesImplied  []taxonomy.ImpliedMilestone   `json:"milestones_implied"`
	Usage              UsageStats                    `json:"usage"`
	Velocity           *Velocity                     `json:"velocity"`
	Health             *Health                       `json:"health"`
	GeneratedAt        time.Time                     `json:"generated_at"`
}

// AnalyzeProgress builds the full progress report for a project.
func (e *Engine) AnalyzeProgress(ctx context.Context, projectID string) (*ProgressReport, error) {
	const op = "analyze progress"
	p, err := e.requireProject(ctx, op, projectID)
	if err != nil {
		return nil, err
	}

	used, err := e.store.ListUsedTools(ctx, projectID)
	if err != nil {
		return nil, wrap(op, err)
	}
	used = e.knownTools(op, used)

	history, err := e.store.ListUsageHistory(ctx, storage.HistoryFilter{ProjectID: projectID})
	if err != nil {
		return nil, wrap(op, err)
	}
	counts, err := e.store.PerActUsageCounts(ctx, projectID)
	if err != nil {
		return nil, wrap(op, err)
	}

	now := timeNow()
	summary := e.reg.GenerateSummary(used)
	r := &ProgressReport{
		ProjectID:          p.ID,
		ProjectName:        p.Name,
		OverallProgress:    summary.OverallProgress,
		ActsProgress:       summary.ActsProgress,
		CategoriesProgress: summary.CategoriesProgress,
		Recommendations:    summary.Recommendations,
		Gaps:               summary.Gaps,
		MilestonesImplied:  summary.MilestonesImplied,
		Usage:              usageStats(history),
		Velocity:           e.velocity(history, now),
		Health:             e.health(used, counts),
		GeneratedAt:        now,
	}

	e.log.Debug(op,
		zap.String("project", projectID),
		zap.Int("overall", r.OverallProgress),
		zap.Int("distinct_tools", len(used)),
	)
	return r, nil
}

func usageStats(history []storage.ToolUsage) UsageStats {
	s := UsageStats{TotalCalls: len(history), MostUsed: []ToolCount{}}
	counts := make(map[string]int)
	for _, h := range history {
		if h.Success {
			s.SuccessfulCalls++
		}
		counts[h.ToolName]++
	}
	s.DistinctTools = len(counts)
	if s.TotalCalls > 0 {
		s.SuccessRate = round1(100 * float64(s.SuccessfulCalls) / float64(s.TotalCalls))
	}

	for tool, n := range counts {
		s.MostUsed = append(s.MostUsed, ToolCount{Tool: tool, Count: n})
	}
	sort.Slice(s.MostUsed, func(i, j int) bool {
		if s.MostUsed[i].Count != s.MostUsed[j].Count {
			return s.MostUsed[i].Count > s.MostUsed[j].Count
		}
		return s.MostUsed[i].Tool < s.MostUsed[j].Tool
	})
	if len(s.MostUsed) > topToolsLimit {
		s.MostUsed = s.MostUsed[:topToolsLimit]
	}
	return s
}
