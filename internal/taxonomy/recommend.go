package taxonomy

import "fmt"

// Priority ranks a recommendation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank maps a priority to its numeric rank (1 = high, 3 = low).
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Recommendation suggests a tool to use next.
type Recommendation struct {
	Tool     string   `json:"tool"`
	Priority Priority `json:"priority"`
	Reason   string   `json:"reason"`
	Act      string   `json:"act"`
	Category string   `json:"category"`
}

const (
	maxCurrentActRecommendations = 3
	maxNextActRecommendations    = 2
	// nextActThreshold is the act completion above which the next act is previewed.
	nextActThreshold = 70
)

// RecommendNextTools suggests which tools to use next.
//
// When currentAct is empty or unknown it is inferred from the most recently
// used known tool, i.e. the last one in toolsUsed. With no known tools in
// toolsUsed the first tools of the first act are suggested.
func (r *Registry) RecommendNextTools(toolsUsed []string, currentAct string) []Recommendation {
	if _, ok := r.actIndex[currentAct]; !ok {
		currentAct = r.inferAct(toolsUsed)
	}

	if currentAct == "" {
		first := r.acts[0]
		recs := []Recommendation{}
		for _, tool := range r.ToolsForAct(first.ID) {
			if len(recs) == maxCurrentActRecommendations {
				break
			}
			recs = append(recs, Recommendation{
				Tool:     tool,
				Priority: PriorityHigh,
				Reason:   fmt.Sprintf("Start your research in %s", first.Name),
				Act:      first.ID,
				Category: r.tools[tool].Category,
			})
		}
		return recs
	}

	used := toolSet(toolsUsed)
	act := r.acts[r.actIndex[currentAct]]

	recs := r.unusedTools(used, act, maxCurrentActRecommendations, PriorityHigh,
		fmt.Sprintf("Continue %s", act.Name))

	if r.actCompletion(used, act).Percentage > nextActThreshold {
		if next, ok := r.NextAct(currentAct); ok {
			nextAct := r.acts[r.actIndex[next]]
			recs = append(recs, r.unusedTools(used, nextAct, maxNextActRecommendations, PriorityMedium,
				fmt.Sprintf("%s is well covered; prepare for %s", act.Name, nextAct.Name))...)
		}
	}

	return recs
}

// inferAct returns the act of the last known tool in toolsUsed, or "".
func (r *Registry) inferAct(toolsUsed []string) string {
	for i := len(toolsUsed) - 1; i >= 0; i-- {
		if tc, ok := r.tools[toolsUsed[i]]; ok {
			return tc.Act
		}
	}
	return ""
}

func (r *Registry) unusedTools(used map[string]bool, act Act, limit int, p Priority, reason string) []Recommendation {
	recs := []Recommendation{}
	for _, c := range act.Categories {
		for _, tool := range c.Tools {
			if len(recs) == limit {
				return recs
			}
			if used[tool] {
				continue
			}
			recs = append(recs, Recommendation{
				Tool:     tool,
				Priority: p,
				Reason:   fmt.Sprintf("%s: %s not yet explored", reason, c.Name),
				Act:      act.ID,
				Category: c.ID,
			})
		}
	}
	return recs
}
