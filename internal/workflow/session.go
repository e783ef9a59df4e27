package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/markomanninen/srrd-builder-sub000/internal/storage"
)

// SessionSummary describes the activity inside one session.
type SessionSummary struct {
	SessionID         string        `json:"session_id"`
	ProjectID         string        `json:"project_id"`
	TotalCalls        int           `json:"total_calls"`
	SuccessfulCalls   int           `json:"successful_calls"`
	ToolsUsed         []string      `json:"tools_used"`
	ActsTouched       []string      `json:"acts_touched"`
	CategoriesTouched []string      `json:"categories_touched"`
	FirstActivity     time.Time     `json:"first_activity"`
	LastActivity      time.Time     `json:"last_activity"`
	Duration          time.Duration `json:"duration"`
	AvgExecutionTime  time.Duration `json:"avg_execution_time"`
}

// GenerateSessionSummary summarizes a session's usage. A session with no
// usage yields a summary with zero counts.
func (e *Engine) GenerateSessionSummary(ctx context.Context, sessionID string) (*SessionSummary, error) {
	const op = "session summary"
	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, wrap(op, err)
	}
	history, err := e.store.ListUsageHistory(ctx, storage.HistoryFilter{SessionID: sessionID})
	if err != nil {
		return nil, wrap(op, err)
	}

	s := &SessionSummary{
		SessionID:         sess.ID,
		ProjectID:         sess.ProjectID,
		TotalCalls:        len(history),
		ToolsUsed:         []string{},
		ActsTouched:       []string{},
		CategoriesTouched: []string{},
	}
	if len(history) == 0 {
		return s, nil
	}

	s.FirstActivity = history[0].Timestamp
	s.LastActivity = history[len(history)-1].Timestamp
	s.Duration = s.LastActivity.Sub(s.FirstActivity)

	s.ToolsUsed = distinctInOrder(history, func(h storage.ToolUsage) string { return h.ToolName })
	s.ActsTouched = distinctInOrder(history, func(h storage.ToolUsage) string { return h.Act })
	s.CategoriesTouched = distinctInOrder(history, func(h storage.ToolUsage) string { return h.Category })

	var total time.Duration
	for _, h := range history {
		if h.Success {
			s.SuccessfulCalls++
			total += h.ExecutionTime
		}
	}
	if s.SuccessfulCalls > 0 {
		s.AvgExecutionTime = total / time.Duration(s.SuccessfulCalls)
	}

	e.log.Debug(op, zap.String("session", sessionID), zap.Int("calls", s.TotalCalls))
	return s, nil
}

func distinctInOrder(history []storage.ToolUsage, key func(storage.ToolUsage) string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, h := range history {
		k := key(h)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// CreateProject registers a project and returns its id.
func (e *Engine) CreateProject(ctx context.Context, name, description, domain string) (string, error) {
	id, err := e.store.CreateProject(ctx, storage.Project{Name: name, Description: description, Domain: domain})
	if err != nil {
		return "", wrap("create project", err)
	}
	e.log.Info("project created", zap.String("project", id), zap.String("name", name))
	return id, nil
}

// ListProjects returns every project, newest first.
func (e *Engine) ListProjects(ctx context.Context) ([]storage.Project, error) {
	ps, err := e.store.ListProjects(ctx)
	if err != nil {
		return nil, wrap("list projects", err)
	}
	return ps, nil
}

// StartSession opens a session in an existing project.
func (e *Engine) StartSession(ctx context.Context, projectID, sessionType, userID string) (string, error) {
	id, err := e.store.CreateSession(ctx, projectID, sessionType, userID)
	if err != nil {
		return "", wrap("start session", err)
	}
	e.log.Debug("start session", zap.String("project", projectID), zap.String("session", id))
	return id, nil
}

// UpdateSessionContext changes a session's current act, focus or goals.
// A current act must name an act of the taxonomy.
func (e *Engine) UpdateSessionContext(ctx context.Context, sessionID string, u storage.SessionContextUpdate) error {
	const op = "update session"
	if u.CurrentAct != nil && *u.CurrentAct != "" {
		if _, ok := e.reg.Act(*u.CurrentAct); !ok {
			return notFound(op, "research act %q", *u.CurrentAct)
		}
	}
	if err := e.store.UpdateSessionContext(ctx, sessionID, u); err != nil {
		return wrap(op, err)
	}
	return nil
}

// EndSession marks a session as finished.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	if err := e.store.EndSession(ctx, sessionID); err != nil {
		return wrap("end session", err)
	}
	return nil
}
