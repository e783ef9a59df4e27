package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/markomanninen/srrd-builder-sub000/internal/storage"
	"github.com/markomanninen/srrd-builder-sub000/internal/taxonomy"
)

// Effort is a rough estimate of how much work a tool takes.
type Effort string

const (
	EffortHigh   Effort = "high"
	EffortMedium Effort = "medium"
	EffortLow    Effort = "low"
)

// effortTable lists tools whose effort differs from the medium default.
var effortTable = map[string]Effort{
	"initiate_paradigm_challenge":                  EffortHigh,
	"develop_alternative_framework":                EffortHigh,
	"validate_novel_theory":                        EffortHigh,
	"evaluate_paradigm_shift_potential":            EffortHigh,
	"simulate_peer_review":                         EffortHigh,
	"build_knowledge_graph":                        EffortHigh,
	"generate_latex_document":                      EffortHigh,
	"generate_document_with_database_bibliography": EffortHigh,
	"cultivate_innovation":                         EffortHigh,

	"list_latex_templates":          EffortLow,
	"save_session":                  EffortLow,
	"version_control":               EffortLow,
	"explain_methodology":           EffortLow,
	"store_bibliographic_reference": EffortLow,
	"format_research_content":       EffortLow,
	"initialize_project":            EffortLow,
	"clarify_research_goals":        EffortLow,
}

// EffortFor returns the effort estimate for tool.
func EffortFor(tool string) Effort {
	if e, ok := effortTable[tool]; ok {
		return e
	}
	return EffortMedium
}

// Recommendation is a taxonomy recommendation enriched with pace-aware
// reasoning and an effort estimate. ID is the persisted row id.
type Recommendation struct {
	taxonomy.Recommendation
	Effort Effort `json:"effort"`
	ID     int64  `json:"id"`
}

// GenerateRecommendations suggests next tools for a project and persists each
// suggestion as a pending recommendation. sessionID is optional; when set and
// the session has a current act, that act drives the suggestions.
func (e *Engine) GenerateRecommendations(ctx context.Context, projectID, sessionID string) ([]Recommendation, error) {
	const op = "generate recommendations"
	if _, err := e.requireProject(ctx, op, projectID); err != nil {
		return nil, err
	}

	currentAct := ""
	if sessionID != "" {
		sess, err := e.projectSession(ctx, op, projectID, sessionID)
		if err != nil {
			return nil, err
		}
		currentAct = sess.CurrentAct
	}
	return e.recommend(ctx, op, projectID, sessionID, currentAct)
}

func (e *Engine) recommend(ctx context.Context, op, projectID, sessionID, currentAct string) ([]Recommendation, error) {
	used, err := e.store.ListUsedTools(ctx, projectID)
	if err != nil {
		return nil, wrap(op, err)
	}
	used = e.knownTools(op, used)

	history, err := e.store.ListUsageHistory(ctx, storage.HistoryFilter{ProjectID: projectID})
	if err != nil {
		return nil, wrap(op, err)
	}
	v := e.velocity(history, timeNow())

	if _, ok := e.reg.Act(currentAct); !ok && len(used) > 0 {
		if tc, ok := e.reg.ToolContext(used[len(used)-1]); ok {
			currentAct = tc.Act
		}
	}

	base := e.reg.RecommendNextTools(used, currentAct)
	out := make([]Recommendation, 0, len(base))
	for _, b := range base {
		rec := Recommendation{Recommendation: b, Effort: EffortFor(b.Tool)}
		rec.Reason = paceReason(b.Reason, v.Trend, rec.Effort)

		row := &storage.Recommendation{
			ProjectID:      projectID,
			SessionID:      sessionID,
			CurrentAct:     currentAct,
			RecommendedAct: nextAct(b.Act, currentAct),
			Tools:          []string{b.Tool},
			Reasoning:      rec.Reason,
			Priority:       b.Priority.Rank(),
		}
		id, err := e.store.CreateRecommendation(ctx, row)
		if err != nil {
			return nil, wrap(op, err)
		}
		rec.ID = id
		out = append(out, rec)
	}

	e.log.Debug(op,
		zap.String("project", projectID),
		zap.String("act", currentAct),
		zap.Int("count", len(out)),
		zap.String("trend", string(v.Trend)),
	)
	return out, nil
}

// nextAct returns act when it differs from the current act, or "".
func nextAct(act, currentAct string) string {
	if act == currentAct {
		return ""
	}
	return act
}

func paceReason(reason string, trend Trend, effort Effort) string {
	switch trend {
	case TrendDecelerating:
		if effort == EffortLow {
			return reason + ". Activity has slowed, and this is a quick step to regain momentum"
		}
		return reason + ". Activity has slowed compared to the previous week"
	case TrendAccelerating:
		return reason + ". Momentum is building, keep this pace"
	case TrendNoData:
		return reason + ". A good starting point for a new project"
	default:
		return reason
	}
}

// ListRecommendations returns persisted recommendations with the given
// status. An empty status returns all of them.
func (e *Engine) ListRecommendations(ctx context.Context, projectID, status string) ([]storage.Recommendation, error) {
	const op = "list recommendations"
	if _, err := e.requireProject(ctx, op, projectID); err != nil {
		return nil, err
	}
	recs, err := e.store.ListRecommendations(ctx, projectID, status)
	if err != nil {
		return nil, wrap(op, err)
	}
	return recs, nil
}

// UpdateRecommendationStatus marks a persisted recommendation as accepted,
// dismissed or completed.
func (e *Engine) UpdateRecommendationStatus(ctx context.Context, id int64, status string) error {
	if err := e.store.UpdateRecommendationStatus(ctx, id, status); err != nil {
		return wrap("update recommendation", err)
	}
	return nil
}
