package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/markomanninen/srrd-builder-sub000/internal/storage"
	"github.com/markomanninen/srrd-builder-sub000/internal/taxonomy"
	"github.com/markomanninen/srrd-builder-sub000/internal/workflow"
)

var base = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	eng     *workflow.Engine
	store   *storage.Store
	project string
	session string
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.New(storage.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// newFixture builds an engine over a fresh store with one project and session.
// A nil reg uses the default taxonomy.
func newFixture(t *testing.T, reg *taxonomy.Registry) *fixture {
	t.Helper()
	if reg == nil {
		var err error
		reg, err = taxonomy.Default()
		require.NoError(t, err)
	}
	store := newTestStore(t)
	eng := workflow.New(reg, store, workflow.WithLogger(zaptest.NewLogger(t)))

	ctx := context.Background()
	project, err := eng.CreateProject(ctx, "Test project", "", "physics")
	require.NoError(t, err)
	session, err := eng.StartSession(ctx, project, "research", "")
	require.NoError(t, err)

	t.Cleanup(workflow.SetTimeNow(base))
	return &fixture{eng: eng, store: store, project: project, session: session}
}

func (f *fixture) use(t *testing.T, tool string, at time.Time) {
	t.Helper()
	_, err := f.eng.RecordToolUsage(context.Background(), workflow.ToolCall{
		SessionID:     f.session,
		ToolName:      tool,
		Success:       true,
		ExecutionTime: 200 * time.Millisecond,
		Timestamp:     at,
	})
	require.NoError(t, err)
}

// scenarioRegistry is one act with two categories of two tools each.
func scenarioRegistry(t *testing.T) *taxonomy.Registry {
	t.Helper()
	reg, err := taxonomy.New([]taxonomy.Act{{
		ID: "only_act",
		Categories: []taxonomy.Category{
			{ID: "category1", Tools: []string{"tool1", "tool2"}},
			{ID: "category2", Tools: []string{"tool3", "tool4"}},
		},
	}})
	require.NoError(t, err)
	return reg
}

// failingStore fails ListUsedTools and delegates everything else.
type failingStore struct {
	workflow.Store
	err error
}

func (s failingStore) ListUsedTools(context.Context, string) ([]string, error) {
	return nil, s.err
}
