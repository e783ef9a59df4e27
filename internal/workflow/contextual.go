package workflow

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/markomanninen/srrd-builder-sub000/internal/storage"
)

// DefaultDepth is how many contextual recommendations are returned by default.
const DefaultDepth = 3

const (
	baseConfidence       = 0.7
	progressionBonus     = 0.2
	repetitionPenalty    = 0.1
	recentlyUsedPenalty  = 0.1
	minConfidence        = 0.1
	maxConfidence        = 1.0
	underusedShareFactor = 0.5
)

// ContextualRequest selects the project and recent context for
// ContextualRecommendations.
type ContextualRequest struct {
	ProjectID string
	// SessionID scopes the recent-call window to one session when set.
	SessionID string
	// LastToolUsed, when it names a known tool, pins the current act.
	LastToolUsed string
	Depth        int
}

// ScoredRecommendation is a recommendation with a confidence in [0.1, 1].
type ScoredRecommendation struct {
	Recommendation
	Confidence float64 `json:"confidence"`
}

// ContextualReport combines progress with pattern-aware recommendations.
type ContextualReport struct {
	Progress        *ProgressReport        `json:"progress"`
	Pattern         PatternAnalysis        `json:"pattern"`
	Recommendations []ScoredRecommendation `json:"recommendations"`
	Rationale       string                 `json:"rationale"`
	Alternatives    []string               `json:"alternatives"`
}

// ContextualRecommendations scores next-step suggestions against the shape
// of the most recent tool calls.
func (e *Engine) ContextualRecommendations(ctx context.Context, req ContextualRequest) (*ContextualReport, error) {
	const op = "contextual recommendations"
	depth := req.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}

	progress, err := e.AnalyzeProgress(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	filter := storage.HistoryFilter{ProjectID: req.ProjectID, Limit: e.recentWindow}
	currentAct := ""
	if req.SessionID != "" {
		sess, err := e.projectSession(ctx, op, req.ProjectID, req.SessionID)
		if err != nil {
			return nil, err
		}
		filter = storage.HistoryFilter{SessionID: req.SessionID, Limit: e.recentWindow}
		currentAct = sess.CurrentAct
	}
	if req.LastToolUsed != "" {
		if tc, ok := e.reg.ToolContext(req.LastToolUsed); ok {
			currentAct = tc.Act
		} else {
			e.log.Warn("ignoring unknown last tool", zap.String("tool", req.LastToolUsed))
		}
	}

	window, err := e.store.ListUsageHistory(ctx, filter)
	if err != nil {
		return nil, wrap(op, err)
	}
	pattern := classifyPattern(window)

	recs, err := e.recommend(ctx, op, req.ProjectID, req.SessionID, currentAct)
	if err != nil {
		return nil, err
	}

	recent := make(map[string]bool, len(pattern.RecentTools))
	for _, t := range pattern.RecentTools {
		recent[t] = true
	}
	scored := make([]ScoredRecommendation, 0, len(recs))
	for _, r := range recs {
		scored = append(scored, ScoredRecommendation{
			Recommendation: r,
			Confidence:     confidence(pattern.Pattern, recent[r.Tool]),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Confidence > scored[j].Confidence })
	if len(scored) > depth {
		scored = scored[:depth]
	}

	report := &ContextualReport{
		Progress:        progress,
		Pattern:         pattern,
		Recommendations: scored,
		Rationale:       rationale(pattern),
		Alternatives:    e.alternatives(progress.Health.ActCounts, scored),
	}
	e.log.Debug(op,
		zap.String("project", req.ProjectID),
		zap.String("pattern", string(pattern.Pattern)),
		zap.Int("recommendations", len(scored)),
	)
	return report, nil
}

func confidence(p Pattern, recentlyUsed bool) float64 {
	c := baseConfidence
	switch p {
	case PatternLogicalProgression:
		c += progressionBonus
	case PatternRepetitive:
		c -= repetitionPenalty
	}
	if recentlyUsed {
		c -= recentlyUsedPenalty
	}
	return round2(min(maxConfidence, max(minConfidence, c)))
}

func rationale(pa PatternAnalysis) string {
	switch pa.Pattern {
	case PatternRepetitive:
		return fmt.Sprintf("Recent calls repeat %s. The suggestions steer toward tools not used yet.", pa.RecentTools[0])
	case PatternLogicalProgression:
		return fmt.Sprintf("Recent calls follow the %s to %s progression. The suggestions continue along that path.",
			pa.Sequence[0], pa.Sequence[1])
	case PatternExploratory:
		return fmt.Sprintf("Recent calls are exploratory (diversity %.0f%%). The suggestions focus on the current research act.",
			pa.Diversity*100)
	default:
		return "No recent activity. The suggestions start from the beginning of the workflow."
	}
}

// alternatives lists acts with less than half their even share of usage.
// When none qualify and every recommendation sits in one act, it suggests
// diversifying instead.
func (e *Engine) alternatives(counts map[string]int, recs []ScoredRecommendation) []string {
	out := []string{}
	acts := e.reg.Acts()
	total := 0
	for _, a := range acts {
		total += counts[a.ID]
	}
	if total > 0 {
		expected := float64(total) / float64(len(acts))
		for _, a := range acts {
			if float64(counts[a.ID]) < underusedShareFactor*expected {
				out = append(out, fmt.Sprintf("Explore %s: %d calls against about %.0f expected", a.Name, counts[a.ID], expected))
			}
		}
	}
	if len(out) > 0 || len(recs) == 0 {
		return out
	}

	act := recs[0].Act
	for _, r := range recs[1:] {
		if r.Act != act {
			return out
		}
	}
	name := act
	if a, ok := e.reg.Act(act); ok {
		name = a.Name
	}
	return append(out, fmt.Sprintf("All suggestions are in %s. Consider diversifying into other research acts.", name))
}
