package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/markomanninen/srrd-builder-sub000/internal/storage"
)

// Milestone types.
const (
	MilestoneActProgress     = "act_progress"
	MilestoneToolMastery     = "tool_mastery"
	MilestoneWorkflowBreadth = "workflow_breadth"
)

type tier struct {
	threshold int
	impact    int
}

var (
	actProgressTiers = []tier{{25, 2}, {50, 3}, {75, 4}, {100, 5}}
	toolMasteryTiers = []tier{{10, 3}, {15, 4}, {20, 5}}
	breadthTiers     = []tier{{4, 3}, {6, 5}}
)

// MilestoneResult is an achieved milestone. New is true when this call
// persisted it.
type MilestoneResult struct {
	storage.Milestone
	New bool `json:"new"`
}

// DetectMilestones evaluates every milestone tier for a project, persists the
// ones not yet recorded and returns all currently achieved milestones.
// Running it again without new usage records nothing new.
func (e *Engine) DetectMilestones(ctx context.Context, projectID string) ([]MilestoneResult, error) {
	const op = "detect milestones"
	if _, err := e.requireProject(ctx, op, projectID); err != nil {
		return nil, err
	}

	used, err := e.store.ListUsedTools(ctx, projectID)
	if err != nil {
		return nil, wrap(op, err)
	}
	used = e.knownTools(op, used)

	existing, err := e.store.ListMilestones(ctx, projectID, 0)
	if err != nil {
		return nil, wrap(op, err)
	}
	recorded := make(map[string]storage.Milestone, len(existing))
	for _, m := range existing {
		recorded[m.Name] = m
	}

	var out []MilestoneResult
	created := 0
	for _, m := range e.achievedMilestones(projectID, used) {
		if prev, ok := recorded[m.Name]; ok {
			out = append(out, MilestoneResult{Milestone: prev})
			continue
		}
		isNew, err := e.store.CreateMilestone(ctx, &m)
		if err != nil {
			return nil, wrap(op, err)
		}
		if isNew {
			created++
		}
		out = append(out, MilestoneResult{Milestone: m, New: isNew})
	}

	e.log.Debug(op, zap.String("project", projectID), zap.Int("achieved", len(out)), zap.Int("new", created))
	return out, nil
}

func (e *Engine) achievedMilestones(projectID string, used []string) []storage.Milestone {
	usedSet := make(map[string]bool, len(used))
	for _, t := range used {
		usedSet[t] = true
	}

	var out []storage.Milestone
	actsTouched := 0
	for _, a := range e.reg.Acts() {
		ac := e.reg.ActCompletion(used, a.ID)
		var actTools []string
		for _, t := range e.reg.ToolsForAct(a.ID) {
			if usedSet[t] {
				actTools = append(actTools, t)
			}
		}
		if len(actTools) > 0 {
			actsTouched++
		}
		for _, t := range actProgressTiers {
			if ac.Percentage < t.threshold {
				break
			}
			out = append(out, storage.Milestone{
				ProjectID:     projectID,
				Type:          MilestoneActProgress,
				Name:          fmt.Sprintf("%s %d%% Complete", a.Name, t.threshold),
				Description:   fmt.Sprintf("Reached %d%% completion of %s", ac.Percentage, a.Name),
				Act:           a.ID,
				Criteria:      map[string]any{"threshold": t.threshold, "percentage": ac.Percentage},
				ToolsInvolved: actTools,
				Impact:        t.impact,
			})
		}
	}

	for _, t := range toolMasteryTiers {
		if len(used) < t.threshold {
			break
		}
		out = append(out, storage.Milestone{
			ProjectID:     projectID,
			Type:          MilestoneToolMastery,
			Name:          fmt.Sprintf("Tool Mastery: %d Tools", t.threshold),
			Description:   fmt.Sprintf("Used %d distinct research tools", len(used)),
			Criteria:      map[string]any{"threshold": t.threshold, "distinct_tools": len(used)},
			ToolsInvolved: used,
			Impact:        t.impact,
		})
	}

	for _, t := range breadthTiers {
		if actsTouched < t.threshold {
			break
		}
		out = append(out, storage.Milestone{
			ProjectID:   projectID,
			Type:        MilestoneWorkflowBreadth,
			Name:        fmt.Sprintf("Workflow Breadth: %d Acts", t.threshold),
			Description: fmt.Sprintf("Worked across %d research acts", actsTouched),
			Criteria:    map[string]any{"threshold": t.threshold, "acts_touched": actsTouched},
			Impact:      t.impact,
		})
	}
	return out
}

// ListMilestones returns recorded milestones, newest first.
func (e *Engine) ListMilestones(ctx context.Context, projectID string, limit int) ([]storage.Milestone, error) {
	const op = "list milestones"
	if _, err := e.requireProject(ctx, op, projectID); err != nil {
		return nil, err
	}
	ms, err := e.store.ListMilestones(ctx, projectID, limit)
	if err != nil {
		return nil, wrap(op, err)
	}
	return ms, nil
}
