package taxonomy

import (
	"fmt"
	"math"
)

// ImpliedMilestone is an act-level achievement derived from completion alone.
type ImpliedMilestone struct {
	Type       string `json:"type"`
	Act        string `json:"act"`
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
}

// Implied milestone types.
const (
	MilestoneActCompleted = "act_completed"
	MilestoneActHalfway   = "act_halfway"
)

// Summary aggregates completion, recommendations and gaps for a tool list.
type Summary struct {
	OverallProgress    int                  `json:"overall_progress"`
	ActsProgress       []ActCompletion      `json:"acts_progress"`
	CategoriesProgress []CategoryCompletion `json:"categories_progress"`
	Recommendations    []Recommendation     `json:"recommendations"`
	Gaps               []Gap                `json:"gaps"`
	MilestonesImplied  []ImpliedMilestone   `json:"milestones_implied"`
}

// GenerateSummary computes a full progress summary for toolsUsed.
// OverallProgress is the rounded mean of the act percentages.
func (r *Registry) GenerateSummary(toolsUsed []string) Summary {
	used := toolSet(toolsUsed)
	s := Summary{
		ActsProgress:       make([]ActCompletion, 0, len(r.acts)),
		CategoriesProgress: make([]CategoryCompletion, 0, len(r.categories)),
		MilestonesImplied:  []ImpliedMilestone{},
	}

	total := 0
	for _, a := range r.acts {
		ac := r.actCompletion(used, a)
		s.ActsProgress = append(s.ActsProgress, ac)
		total += ac.Percentage

		for _, c := range a.Categories {
			s.CategoriesProgress = append(s.CategoriesProgress, categoryCompletion(used, c))
		}

		switch {
		case ac.Percentage >= 100:
			s.MilestonesImplied = append(s.MilestonesImplied, ImpliedMilestone{
				Type: MilestoneActCompleted, Act: a.ID, Percentage: ac.Percentage,
				Name: fmt.Sprintf("%s completed", a.Name),
			})
		case ac.Percentage >= 50:
			s.MilestonesImplied = append(s.MilestonesImplied, ImpliedMilestone{
				Type: MilestoneActHalfway, Act: a.ID, Percentage: ac.Percentage,
				Name: fmt.Sprintf("%s halfway", a.Name),
			})
		}
	}

	s.OverallProgress = clampPercent(int(math.Round(float64(total) / float64(len(r.acts)))))
	s.Recommendations = r.RecommendNextTools(toolsUsed, "")
	s.Gaps = r.DetectWorkflowGaps(toolsUsed)
	return s
}
