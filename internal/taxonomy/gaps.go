package taxonomy

import "fmt"

// GapType classifies a workflow gap.
type GapType string

const (
	GapMissingCategory GapType = "missing_category"
	GapSkippedAct      GapType = "skipped_act"
)

// Severity of a workflow gap.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// foundationalActs is how many leading acts produce high-severity category gaps.
const foundationalActs = 2

// Gap is a hole in the user's coverage of the workflow.
type Gap struct {
	Type        GapType  `json:"type"`
	Severity    Severity `json:"severity"`
	Act         string   `json:"act"`
	Category    string   `json:"category,omitempty"`
	SkippedTo   string   `json:"skipped_to,omitempty"`
	Description string   `json:"description"`
}

// DetectWorkflowGaps reports untouched categories and acts that were skipped
// on the way to a later one.
func (r *Registry) DetectWorkflowGaps(toolsUsed []string) []Gap {
	used := toolSet(toolsUsed)
	gaps := []Gap{}

	for i, a := range r.acts {
		severity := SeverityMedium
		if i < foundationalActs {
			severity = SeverityHigh
		}
		for _, c := range a.Categories {
			if categoryCompletion(used, c).Percentage > 0 {
				continue
			}
			gaps = append(gaps, Gap{
				Type:        GapMissingCategory,
				Severity:    severity,
				Act:         a.ID,
				Category:    c.ID,
				Description: fmt.Sprintf("No tools used from %s in %s", c.Name, a.Name),
			})
		}
	}

	for i := 0; i+1 < len(r.acts); i++ {
		a, b := r.acts[i], r.acts[i+1]
		if r.actUsage(used, a) == 0 && r.actUsage(used, b) > 0 {
			gaps = append(gaps, Gap{
				Type:        GapSkippedAct,
				Severity:    SeverityHigh,
				Act:         a.ID,
				SkippedTo:   b.ID,
				Description: fmt.Sprintf("%s was skipped before starting %s", a.Name, b.Name),
			})
		}
	}

	return gaps
}

func (r *Registry) actUsage(used map[string]bool, a Act) int {
	n := 0
	for _, c := range a.Categories {
		n += countUsed(used, c.Tools)
	}
	return n
}
