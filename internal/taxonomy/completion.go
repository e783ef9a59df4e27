package taxonomy

import "math"

// Weights for act completion. Category breadth counts more than tool count.
const (
	categoryWeight = 0.6
	toolWeight     = 0.4
)

// ActCompletion reports how far a user has progressed through one act.
type ActCompletion struct {
	Act                 string `json:"act"`
	Name                string `json:"name"`
	Percentage          int    `json:"percentage"`
	CategoriesCompleted int    `json:"categories_completed"`
	TotalCategories     int    `json:"total_categories"`
	ToolsUsed           int    `json:"tools_used"`
	TotalTools          int    `json:"total_tools"`
}

// CategoryCompletion reports how many tools of a category have been used.
type CategoryCompletion struct {
	Category   string `json:"category"`
	Act        string `json:"act"`
	Percentage int    `json:"percentage"`
	ToolsUsed  int    `json:"tools_used"`
	TotalTools int    `json:"total_tools"`
}

// ActCompletion computes the weighted completion of act given the tools used.
// Duplicate entries in toolsUsed are counted once. An unknown act yields a
// zero-valued report.
func (r *Registry) ActCompletion(toolsUsed []string, act string) ActCompletion {
	i, ok := r.actIndex[act]
	if !ok {
		return ActCompletion{Act: act}
	}
	return r.actCompletion(toolSet(toolsUsed), r.acts[i])
}

func (r *Registry) actCompletion(used map[string]bool, a Act) ActCompletion {
	out := ActCompletion{Act: a.ID, Name: a.Name, TotalCategories: len(a.Categories)}

	for _, c := range a.Categories {
		n := countUsed(used, c.Tools)
		out.ToolsUsed += n
		out.TotalTools += len(c.Tools)
		if n > 0 {
			out.CategoriesCompleted++
		}
	}

	if out.TotalTools == 0 || out.TotalCategories == 0 {
		return out
	}

	categoryCoverage := float64(out.CategoriesCompleted) / float64(out.TotalCategories)
	toolCoverage := float64(out.ToolsUsed) / float64(out.TotalTools)
	out.Percentage = clampPercent(int(math.Round(100 * (categoryWeight*categoryCoverage + toolWeight*toolCoverage))))
	return out
}

// CategoryCompletion computes the ratio of used tools in category.
// An unknown category yields a zero-valued report.
func (r *Registry) CategoryCompletion(toolsUsed []string, category string) CategoryCompletion {
	c, ok := r.categories[category]
	if !ok {
		return CategoryCompletion{Category: category}
	}
	return categoryCompletion(toolSet(toolsUsed), c)
}

func categoryCompletion(used map[string]bool, c Category) CategoryCompletion {
	out := CategoryCompletion{
		Category:   c.ID,
		Act:        c.Act,
		ToolsUsed:  countUsed(used, c.Tools),
		TotalTools: len(c.Tools),
	}
	if out.TotalTools > 0 {
		out.Percentage = clampPercent(int(math.Round(100 * float64(out.ToolsUsed) / float64(out.TotalTools))))
	}
	return out
}

func countUsed(used map[string]bool, tools []string) int {
	n := 0
	for _, t := range tools {
		if used[t] {
			n++
		}
	}
	return n
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
