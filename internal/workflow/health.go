package workflow

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/markomanninen/srrd-builder-sub000/internal/taxonomy"
)

// HealthStatus buckets a health score.
type HealthStatus string

const (
	HealthExcellent HealthStatus = "excellent"
	HealthGood      HealthStatus = "good"
	HealthFair      HealthStatus = "fair"
	HealthPoor      HealthStatus = "poor"
)

const (
	highGapPenalty   = 20
	mediumGapPenalty = 10
	imbalancePenalty = 20
	balanceFloor     = 50
)

// Health is a composite score of gap severity and cross-act balance.
type Health struct {
	Score        int            `json:"score"`
	Status       HealthStatus   `json:"status"`
	BalanceScore float64        `json:"balance_score"`
	HighGaps     int            `json:"high_gaps"`
	MediumGaps   int            `json:"medium_gaps"`
	Issues       []string       `json:"issues"`
	ActCounts    map[string]int `json:"act_counts"`
}

// AssessHealth scores the project's workflow. toolsUsed drives gap
// detection; balance comes from the per-act event counts in the store.
func (e *Engine) AssessHealth(ctx context.Context, projectID string, toolsUsed []string) (*Health, error) {
	const op = "assess health"
	if _, err := e.requireProject(ctx, op, projectID); err != nil {
		return nil, err
	}
	counts, err := e.store.PerActUsageCounts(ctx, projectID)
	if err != nil {
		return nil, wrap(op, err)
	}
	h := e.health(toolsUsed, counts)
	e.log.Debug(op, zap.String("project", projectID), zap.Int("score", h.Score), zap.String("status", string(h.Status)))
	return h, nil
}

func (e *Engine) health(toolsUsed []string, counts map[string]int) *Health {
	h := &Health{Issues: []string{}, ActCounts: make(map[string]int)}
	score := 100

	for _, g := range e.reg.DetectWorkflowGaps(toolsUsed) {
		switch g.Severity {
		case taxonomy.SeverityHigh:
			h.HighGaps++
			score -= highGapPenalty
		case taxonomy.SeverityMedium:
			h.MediumGaps++
			score -= mediumGapPenalty
		}
	}
	if h.HighGaps > 0 {
		h.Issues = append(h.Issues, fmt.Sprintf("%d high-severity workflow gaps", h.HighGaps))
	}
	if h.MediumGaps > 0 {
		h.Issues = append(h.Issues, fmt.Sprintf("%d medium-severity workflow gaps", h.MediumGaps))
	}

	acts := e.reg.ActIDs()
	total := 0
	for _, a := range acts {
		h.ActCounts[a] = counts[a]
		total += counts[a]
	}
	h.BalanceScore = balance(acts, h.ActCounts, total)
	if h.BalanceScore < balanceFloor {
		score -= imbalancePenalty
		h.Issues = append(h.Issues, fmt.Sprintf("unbalanced usage across research acts (balance %.1f)", h.BalanceScore))
	}

	h.Score = min(100, max(0, score))
	h.Status = healthStatus(h.Score)
	return h
}

// balance is 100 for perfectly even usage and falls with the variance of
// per-act counts relative to the even share.
func balance(acts []string, counts map[string]int, total int) float64 {
	if total == 0 || len(acts) == 0 {
		return 100
	}
	n := float64(len(acts))
	expected := float64(total) / n
	var variance float64
	for _, a := range acts {
		d := float64(counts[a]) - expected
		variance += d * d
	}
	variance /= n
	return round1(math.Max(0, 100-variance/expected*100))
}

func healthStatus(score int) HealthStatus {
	switch {
	case score >= 80:
		return HealthExcellent
	case score >= 60:
		return HealthGood
	case score >= 40:
		return HealthFair
	default:
		return HealthPoor
	}
}
