package workflow

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/markomanninen/srrd-builder-sub000/internal/storage"
)

// Trend classifies recent activity against the week before it.
type Trend string

const (
	TrendAccelerating Trend = "accelerating"
	TrendDecelerating Trend = "decelerating"
	TrendStable       Trend = "stable"
	TrendNoData       Trend = "no_data"
)

const (
	trendWindow      = 7 * 24 * time.Hour
	accelerateFactor = 1.2
	decelerateFactor = 0.8
)

// Velocity describes the pace of tool usage in a project.
type Velocity struct {
	TotalEvents    int      `json:"total_events"`
	ActiveDays     int      `json:"active_days"`
	ToolsPerDay    float64  `json:"tools_per_day"`
	RemainingTools int      `json:"remaining_tools"`
	ETADays        *float64 `json:"eta_days"`
	Trend          Trend    `json:"trend"`
	RecentEvents   int      `json:"recent_events"`
	PreviousEvents int      `json:"previous_events"`
}

// CalculateVelocity measures usage pace and projects time to cover every
// tool in the taxonomy.
func (e *Engine) CalculateVelocity(ctx context.Context, projectID string) (*Velocity, error) {
	const op = "calculate velocity"
	if _, err := e.requireProject(ctx, op, projectID); err != nil {
		return nil, err
	}
	history, err := e.store.ListUsageHistory(ctx, storage.HistoryFilter{ProjectID: projectID})
	if err != nil {
		return nil, wrap(op, err)
	}
	v := e.velocity(history, timeNow())
	e.log.Debug(op, zap.String("project", projectID), zap.Int("events", v.TotalEvents), zap.String("trend", string(v.Trend)))
	return v, nil
}

// velocity computes a Velocity from oldest-first history.
func (e *Engine) velocity(history []storage.ToolUsage, now time.Time) *Velocity {
	v := &Velocity{TotalEvents: len(history), Trend: TrendNoData}

	distinct := make(map[string]bool)
	for _, h := range history {
		if _, ok := e.reg.ToolContext(h.ToolName); ok {
			distinct[h.ToolName] = true
		}
	}
	v.RemainingTools = max(0, e.reg.TotalTools()-len(distinct))

	if len(history) == 0 {
		return v
	}

	first := utcDate(history[0].Timestamp)
	last := utcDate(history[len(history)-1].Timestamp)
	v.ActiveDays = int(last.Sub(first).Hours()/24) + 1

	rate := float64(len(history)) / float64(v.ActiveDays)
	v.ToolsPerDay = round2(rate)
	if rate > 0 {
		eta := round2(float64(v.RemainingTools) / rate)
		v.ETADays = &eta
	}

	recentStart := now.Add(-trendWindow)
	previousStart := now.Add(-2 * trendWindow)
	for _, h := range history {
		ts := h.Timestamp
		switch {
		case ts.After(recentStart) && !ts.After(now):
			v.RecentEvents++
		case ts.After(previousStart) && !ts.After(recentStart):
			v.PreviousEvents++
		}
	}

	recent, previous := float64(v.RecentEvents), float64(v.PreviousEvents)
	switch {
	case recent > accelerateFactor*previous:
		v.Trend = TrendAccelerating
	case recent < decelerateFactor*previous:
		v.Trend = TrendDecelerating
	default:
		v.Trend = TrendStable
	}
	return v
}

func utcDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
