// Package workflow turns the persisted tool usage log into progress,
// velocity, health, milestone and recommendation reports.
//
// The Engine is stateless between calls. It holds a taxonomy registry and a
// Store, and every operation reads what it needs from the Store on demand.
package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/markomanninen/srrd-builder-sub000/internal/storage"
	"github.com/markomanninen/srrd-builder-sub000/internal/taxonomy"
)

// timeNow is replaced in tests to pin the trend windows.
var timeNow = time.Now

// DefaultRecentWindow is how many recent calls pattern detection looks at.
const DefaultRecentWindow = 5

// Store is the persistence the engine needs. *storage.Store implements it.
type Store interface {
	CreateProject(ctx context.Context, p storage.Project) (string, error)
	GetProject(ctx context.Context, id string) (*storage.Project, error)
	ListProjects(ctx context.Context) ([]storage.Project, error)

	CreateSession(ctx context.Context, projectID, sessionType, userID string) (string, error)
	GetSession(ctx context.Context, id string) (*storage.Session, error)
	UpdateSessionContext(ctx context.Context, id string, u storage.SessionContextUpdate) error
	EndSession(ctx context.Context, id string) error

	LogToolUsage(ctx context.Context, u *storage.ToolUsage) (int64, error)
	ListUsedTools(ctx context.Context, projectID string) ([]string, error)
	ListUsageHistory(ctx context.Context, f storage.HistoryFilter) ([]storage.ToolUsage, error)
	PerActUsageCounts(ctx context.Context, projectID string) (map[string]int, error)

	CreateMilestone(ctx context.Context, m *storage.Milestone) (bool, error)
	ListMilestones(ctx context.Context, projectID string, limit int) ([]storage.Milestone, error)

	CreateRecommendation(ctx context.Context, r *storage.Recommendation) (int64, error)
	ListRecommendations(ctx context.Context, projectID, status string) ([]storage.Recommendation, error)
	UpdateRecommendationStatus(ctx context.Context, id int64, status string) error
}

// Engine computes workflow intelligence reports.
type Engine struct {
	reg          *taxonomy.Registry
	store        Store
	log          *zap.Logger
	recentWindow int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithRecentWindow sets how many recent calls pattern detection inspects.
// Values below 1 are ignored.
func WithRecentWindow(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.recentWindow = n
		}
	}
}

// New creates an Engine over reg and store.
func New(reg *taxonomy.Registry, store Store, opts ...Option) *Engine {
	e := &Engine{
		reg:          reg,
		store:        store,
		log:          zap.NewNop(),
		recentWindow: DefaultRecentWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the taxonomy the engine classifies tools with.
func (e *Engine) Registry() *taxonomy.Registry {
	return e.reg
}

func (e *Engine) requireProject(ctx context.Context, op, projectID string) (*storage.Project, error) {
	p, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, wrap(op, err)
	}
	return p, nil
}

// knownTools filters tools to those present in the registry, logging the rest.
func (e *Engine) knownTools(op string, tools []string) []string {
	out := make([]string, 0, len(tools))
	for _, t := range tools {
		if _, ok := e.reg.ToolContext(t); !ok {
			e.log.Warn("unknown tool in usage history", zap.String("op", op), zap.String("tool", t))
			continue
		}
		out = append(out, t)
	}
	return out
}

// projectSession fetches a session and checks that it belongs to projectID.
func (e *Engine) projectSession(ctx context.Context, op, projectID, sessionID string) (*storage.Session, error) {
	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, wrap(op, err)
	}
	if sess.ProjectID != projectID {
		return nil, notFound(op, "session %q in project %q", sessionID, projectID)
	}
	return sess, nil
}
