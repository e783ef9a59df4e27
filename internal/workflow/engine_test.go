package workflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markomanninen/srrd-builder-sub000/internal/storage"
	"github.com/markomanninen/srrd-builder-sub000/internal/taxonomy"
	"github.com/markomanninen/srrd-builder-sub000/internal/workflow"
)

const day = 24 * time.Hour

// ─── RecordToolUsage ────────────────────────────────────────────────────────

func TestRecordToolUsage_ClassifiesThroughTaxonomy(t *testing.T) {
	f := newFixture(t, nil)

	u, err := f.eng.RecordToolUsage(context.Background(), workflow.ToolCall{
		SessionID: f.session,
		ToolName:  "suggest_methodology",
		Success:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, f.project, u.ProjectID)
	assert.Equal(t, "design_planning", u.Act)
	assert.Equal(t, "methodology", u.Category)
	assert.True(t, u.Timestamp.Equal(base), "zero timestamp defaults to engine clock")
}

func TestRecordToolUsage_NotFound(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		call workflow.ToolCall
	}{
		{"unknown tool", workflow.ToolCall{SessionID: f.session, ToolName: "make_coffee"}},
		{"unknown session", workflow.ToolCall{SessionID: "missing", ToolName: "semantic_search"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.eng.RecordToolUsage(ctx, tt.call)
			require.Error(t, err)
			assert.ErrorIs(t, err, workflow.ErrNotFound)
		})
	}
}

// ─── Velocity ───────────────────────────────────────────────────────────────

func TestCalculateVelocity_NoHistory(t *testing.T) {
	f := newFixture(t, nil)

	v, err := f.eng.CalculateVelocity(context.Background(), f.project)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.ToolsPerDay)
	assert.Equal(t, workflow.TrendNoData, v.Trend)
	assert.Nil(t, v.ETADays)
	assert.Equal(t, 37, v.RemainingTools)
}

func TestCalculateVelocity_Accelerating(t *testing.T) {
	f := newFixture(t, nil)

	// Two calls in the previous week, four in the last one.
	f.use(t, "clarify_research_goals", base.Add(-10*day))
	f.use(t, "identify_research_gaps", base.Add(-9*day))
	f.use(t, "suggest_methodology", base.Add(-3*day))
	f.use(t, "validate_design", base.Add(-3*day))
	f.use(t, "semantic_search", base.Add(-1*day))
	f.use(t, "semantic_search", base.Add(-1*day+time.Hour))

	v, err := f.eng.CalculateVelocity(context.Background(), f.project)
	require.NoError(t, err)
	assert.Equal(t, 6, v.TotalEvents)
	assert.Equal(t, 4, v.RecentEvents)
	assert.Equal(t, 2, v.PreviousEvents)
	assert.Equal(t, workflow.TrendAccelerating, v.Trend)
	assert.Equal(t, 10, v.ActiveDays)
	assert.Equal(t, 0.6, v.ToolsPerDay)
	assert.Equal(t, 32, v.RemainingTools)
	require.NotNil(t, v.ETADays)
	assert.InDelta(t, 53.33, *v.ETADays, 0.01)
}

func TestCalculateVelocity_Trends(t *testing.T) {
	tests := []struct {
		name     string
		recent   int
		previous int
		want     workflow.Trend
	}{
		{"decelerating", 1, 4, workflow.TrendDecelerating},
		{"stable", 3, 3, workflow.TrendStable},
		{"only old activity", 0, 2, workflow.TrendDecelerating},
		{"only recent activity", 2, 0, workflow.TrendAccelerating},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			for i := 0; i < tt.previous; i++ {
				f.use(t, "semantic_search", base.Add(-10*day+time.Duration(i)*time.Minute))
			}
			for i := 0; i < tt.recent; i++ {
				f.use(t, "semantic_search", base.Add(-2*day+time.Duration(i)*time.Minute))
			}

			v, err := f.eng.CalculateVelocity(context.Background(), f.project)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Trend)
		})
	}
}

func TestCalculateVelocity_UnknownProject(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.eng.CalculateVelocity(context.Background(), "missing")
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

// ─── Health ─────────────────────────────────────────────────────────────────

func TestAssessHealth_PerfectBalance(t *testing.T) {
	reg, err := taxonomy.New([]taxonomy.Act{
		{ID: "plan", Categories: []taxonomy.Category{{ID: "p", Tools: []string{"p1"}}}},
		{ID: "do", Categories: []taxonomy.Category{{ID: "d", Tools: []string{"d1"}}}},
	})
	require.NoError(t, err)
	f := newFixture(t, reg)
	f.use(t, "p1", base.Add(-time.Hour))
	f.use(t, "d1", base.Add(-time.Minute))

	h, err := f.eng.AssessHealth(context.Background(), f.project, []string{"p1", "d1"})
	require.NoError(t, err)
	assert.Equal(t, 100, h.Score)
	assert.Equal(t, workflow.HealthExcellent, h.Status)
	assert.Equal(t, 100.0, h.BalanceScore)
	assert.Empty(t, h.Issues)
}

func TestAssessHealth_GapsAndImbalance(t *testing.T) {
	f := newFixture(t, nil)
	f.use(t, "compile_latex", base.Add(-time.Hour))

	h, err := f.eng.AssessHealth(context.Background(), f.project, []string{"compile_latex"})
	require.NoError(t, err)
	assert.Equal(t, 0, h.Score)
	assert.Equal(t, workflow.HealthPoor, h.Status)
	assert.Positive(t, h.HighGaps)
	assert.Less(t, h.BalanceScore, 50.0)
	assert.Len(t, h.ActCounts, 6)
	assert.Equal(t, 1, h.ActCounts["communication"])
	assert.NotEmpty(t, h.Issues)
}

func TestAssessHealth_NoUsageIsBalanced(t *testing.T) {
	f := newFixture(t, scenarioRegistry(t))

	h, err := f.eng.AssessHealth(context.Background(), f.project, nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, h.BalanceScore)
	// Two untouched categories in the first act.
	assert.Equal(t, 2, h.HighGaps)
	assert.Equal(t, 60, h.Score)
	assert.Equal(t, workflow.HealthGood, h.Status)
}

// ─── AnalyzeProgress ────────────────────────────────────────────────────────

func TestAnalyzeProgress_SingleTool(t *testing.T) {
	f := newFixture(t, scenarioRegistry(t))
	f.use(t, "tool1", base.Add(-time.Hour))

	r, err := f.eng.AnalyzeProgress(context.Background(), f.project)
	require.NoError(t, err)
	assert.Equal(t, "Test project", r.ProjectName)
	assert.Equal(t, 40, r.OverallProgress)
	require.Len(t, r.ActsProgress, 1)
	assert.Equal(t, 40, r.ActsProgress[0].Percentage)
	require.Len(t, r.CategoriesProgress, 2)
	assert.Equal(t, 50, r.CategoriesProgress[0].Percentage)
	assert.Equal(t, 0, r.CategoriesProgress[1].Percentage)

	assert.Equal(t, 1, r.Usage.TotalCalls)
	assert.Equal(t, 100.0, r.Usage.SuccessRate)
	assert.Equal(t, []workflow.ToolCount{{Tool: "tool1", Count: 1}}, r.Usage.MostUsed)
	assert.Equal(t, 1, r.Velocity.TotalEvents)
	assert.NotNil(t, r.Health)
	assert.True(t, r.GeneratedAt.Equal(base))
}

func TestAnalyzeProgress_TopToolsLimited(t *testing.T) {
	f := newFixture(t, nil)
	tools := []string{"semantic_search", "compile_latex", "discover_patterns", "enhance_quality", "ensure_ethics", "version_control"}
	for i, tool := range tools {
		for j := 0; j <= i; j++ {
			f.use(t, tool, base.Add(-time.Duration(i*10+j)*time.Minute))
		}
	}

	r, err := f.eng.AnalyzeProgress(context.Background(), f.project)
	require.NoError(t, err)
	require.Len(t, r.Usage.MostUsed, 5)
	assert.Equal(t, "version_control", r.Usage.MostUsed[0].Tool)
	assert.Equal(t, 6, r.Usage.MostUsed[0].Count)
	assert.Equal(t, 6, r.Usage.DistinctTools)
	assert.Equal(t, 21, r.Usage.TotalCalls)
}

func TestAnalyzeProgress_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.eng.AnalyzeProgress(ctx, "missing")
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	boom := errors.New("database is locked")
	reg, _ := taxonomy.Default()
	eng := workflow.New(reg, failingStore{Store: f.store, err: boom})
	_, err = eng.AnalyzeProgress(ctx, f.project)
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrPersistence)
	assert.ErrorIs(t, err, boom)

	var we *workflow.Error
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "analyze progress", we.Op)
}

// ─── Recommendations ────────────────────────────────────────────────────────

func TestGenerateRecommendations_SessionActAndPersistence(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.use(t, "clarify_research_goals", base.Add(-time.Hour))

	act := "design_planning"
	require.NoError(t, f.eng.UpdateSessionContext(ctx, f.session, storage.SessionContextUpdate{CurrentAct: &act}))

	recs, err := f.eng.GenerateRecommendations(ctx, f.project, f.session)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	tools := make([]string, 0, len(recs))
	for _, r := range recs {
		tools = append(tools, r.Tool)
		assert.Equal(t, act, r.Act)
		assert.Equal(t, taxonomy.PriorityHigh, r.Priority)
		assert.Contains(t, r.Reason, "Momentum is building")
		assert.NotZero(t, r.ID)
	}
	assert.Equal(t, []string{"suggest_methodology", "explain_methodology", "compare_approaches"}, tools)
	assert.Equal(t, workflow.EffortLow, recs[1].Effort)
	assert.Equal(t, workflow.EffortMedium, recs[0].Effort)

	pending, err := f.eng.ListRecommendations(ctx, f.project, storage.RecommendationPending)
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	require.NoError(t, f.eng.UpdateRecommendationStatus(ctx, recs[0].ID, storage.RecommendationAccepted))
	pending, err = f.eng.ListRecommendations(ctx, f.project, storage.RecommendationPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestGenerateRecommendations_NewProject(t *testing.T) {
	f := newFixture(t, nil)

	recs, err := f.eng.GenerateRecommendations(context.Background(), f.project, "")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "clarify_research_goals", recs[0].Tool)
	assert.Contains(t, recs[0].Reason, "starting point")
}

func TestGenerateRecommendations_UnknownSession(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.eng.GenerateRecommendations(context.Background(), f.project, "missing")
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestGenerateRecommendations_SessionFromOtherProject(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	act := "communication"
	require.NoError(t, f.eng.UpdateSessionContext(ctx, f.session, storage.SessionContextUpdate{CurrentAct: &act}))

	other, err := f.eng.CreateProject(ctx, "Other project", "", "")
	require.NoError(t, err)

	_, err = f.eng.GenerateRecommendations(ctx, other, f.session)
	require.ErrorIs(t, err, workflow.ErrNotFound)
	assert.Contains(t, err.Error(), other)

	_, err = f.eng.ContextualRecommendations(ctx, workflow.ContextualRequest{ProjectID: other, SessionID: f.session})
	require.ErrorIs(t, err, workflow.ErrNotFound)

	saved, err := f.eng.ListRecommendations(ctx, other, "")
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestGenerateRecommendations_Decelerating(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.use(t, "clarify_research_goals", base.Add(-10*24*time.Hour).Add(time.Duration(i)*time.Minute))
	}
	f.use(t, "generate_critical_questions", base.Add(-time.Hour))

	act := "design_planning"
	require.NoError(t, f.eng.UpdateSessionContext(ctx, f.session, storage.SessionContextUpdate{CurrentAct: &act}))

	recs, err := f.eng.GenerateRecommendations(ctx, f.project, f.session)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	require.Equal(t, workflow.EffortMedium, recs[0].Effort)
	assert.Contains(t, recs[0].Reason, "Activity has slowed compared to the previous week")
	require.Equal(t, workflow.EffortLow, recs[1].Effort)
	assert.Contains(t, recs[1].Reason, "Activity has slowed")
	assert.Contains(t, recs[1].Reason, "quick step to regain momentum")
}

func TestGenerateRecommendations_RecommendedActOnlyForNextAct(t *testing.T) {
	reg, err := taxonomy.New([]taxonomy.Act{
		{ID: "act1", Categories: []taxonomy.Category{
			{ID: "c1", Tools: []string{"t1", "t2"}},
			{ID: "c2", Tools: []string{"t3", "t4"}},
		}},
		{ID: "act2", Categories: []taxonomy.Category{
			{ID: "c3", Tools: []string{"t5", "t6"}},
		}},
	})
	require.NoError(t, err)
	f := newFixture(t, reg)
	ctx := context.Background()
	// Both categories touched, 3 of 4 tools: 90%, so act2 is previewed.
	for i, tool := range []string{"t1", "t3", "t4"} {
		f.use(t, tool, base.Add(-time.Duration(3-i)*time.Hour))
	}

	_, err = f.eng.GenerateRecommendations(ctx, f.project, "")
	require.NoError(t, err)

	saved, err := f.eng.ListRecommendations(ctx, f.project, storage.RecommendationPending)
	require.NoError(t, err)
	require.Len(t, saved, 3)
	for _, r := range saved {
		assert.Equal(t, "act1", r.CurrentAct)
		if r.Priority == taxonomy.PriorityHigh.Rank() {
			assert.Empty(t, r.RecommendedAct, "current-act entry %v", r.Tools)
		} else {
			assert.Equal(t, "act2", r.RecommendedAct, "next-act entry %v", r.Tools)
		}
	}
}

func TestEffortFor(t *testing.T) {
	assert.Equal(t, workflow.EffortHigh, workflow.EffortFor("simulate_peer_review"))
	assert.Equal(t, workflow.EffortLow, workflow.EffortFor("save_session"))
	assert.Equal(t, workflow.EffortMedium, workflow.EffortFor("semantic_search"))
	assert.Equal(t, workflow.EffortMedium, workflow.EffortFor("not_a_tool"))
}

// ─── Milestones ─────────────────────────────────────────────────────────────

func TestDetectMilestones_Idempotent(t *testing.T) {
	f := newFixture(t, scenarioRegistry(t))
	ctx := context.Background()
	f.use(t, "tool1", base.Add(-time.Hour))

	first, err := f.eng.DetectMilestones(ctx, f.project)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, first[0].New)
	assert.Equal(t, workflow.MilestoneActProgress, first[0].Type)
	assert.Equal(t, 2, first[0].Impact)

	second, err := f.eng.DetectMilestones(ctx, f.project)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.False(t, second[0].New)
	assert.Equal(t, first[0].Name, second[0].Name)

	stored, err := f.eng.ListMilestones(ctx, f.project, 0)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestDetectMilestones_Tiers(t *testing.T) {
	f := newFixture(t, nil)
	reg := f.eng.Registry()
	i := 0
	for _, act := range []string{"conceptualization", "design_planning"} {
		for _, tool := range reg.ToolsForAct(act) {
			f.use(t, tool, base.Add(-time.Duration(100-i)*time.Minute))
			i++
		}
	}

	got, err := f.eng.DetectMilestones(context.Background(), f.project)
	require.NoError(t, err)

	byType := map[string][]int{}
	for _, m := range got {
		assert.True(t, m.New)
		byType[m.Type] = append(byType[m.Type], m.Impact)
	}
	assert.Equal(t, []int{2, 3, 4, 5, 2, 3, 4, 5}, byType[workflow.MilestoneActProgress])
	assert.Equal(t, []int{3}, byType[workflow.MilestoneToolMastery])
	assert.Empty(t, byType[workflow.MilestoneWorkflowBreadth])
}

func TestDetectMilestones_Breadth(t *testing.T) {
	f := newFixture(t, nil)
	tools := []string{"clarify_research_goals", "suggest_methodology", "semantic_search", "discover_patterns"}
	for i, tool := range tools {
		f.use(t, tool, base.Add(-time.Duration(10-i)*time.Minute))
	}

	got, err := f.eng.DetectMilestones(context.Background(), f.project)
	require.NoError(t, err)

	var breadth []workflow.MilestoneResult
	for _, m := range got {
		if m.Type == workflow.MilestoneWorkflowBreadth {
			breadth = append(breadth, m)
		}
	}
	require.Len(t, breadth, 1)
	assert.Equal(t, "Workflow Breadth: 4 Acts", breadth[0].Name)
	assert.Equal(t, 3, breadth[0].Impact)
}

// ─── Sessions ───────────────────────────────────────────────────────────────

func TestGenerateSessionSummary(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	empty, err := f.eng.GenerateSessionSummary(ctx, f.session)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalCalls)
	assert.Zero(t, empty.Duration)
	assert.Empty(t, empty.ToolsUsed)

	_, err = f.eng.RecordToolUsage(ctx, workflow.ToolCall{
		SessionID: f.session, ToolName: "semantic_search", Success: true,
		ExecutionTime: 100 * time.Millisecond, Timestamp: base.Add(-30 * time.Minute),
	})
	require.NoError(t, err)
	_, err = f.eng.RecordToolUsage(ctx, workflow.ToolCall{
		SessionID: f.session, ToolName: "extract_key_concepts", Success: true,
		ExecutionTime: 300 * time.Millisecond, Timestamp: base.Add(-20 * time.Minute),
	})
	require.NoError(t, err)
	_, err = f.eng.RecordToolUsage(ctx, workflow.ToolCall{
		SessionID: f.session, ToolName: "semantic_search", Success: false,
		ExecutionTime: 5 * time.Second, ErrorMessage: "timeout", Timestamp: base.Add(-10 * time.Minute),
	})
	require.NoError(t, err)

	s, err := f.eng.GenerateSessionSummary(ctx, f.session)
	require.NoError(t, err)
	assert.Equal(t, 3, s.TotalCalls)
	assert.Equal(t, 2, s.SuccessfulCalls)
	assert.Equal(t, 20*time.Minute, s.Duration)
	assert.Equal(t, 200*time.Millisecond, s.AvgExecutionTime)
	assert.Equal(t, []string{"semantic_search", "extract_key_concepts"}, s.ToolsUsed)
	assert.Equal(t, []string{"knowledge_acquisition", "analysis_synthesis"}, s.ActsTouched)
	assert.Equal(t, []string{"literature_search", "data_analysis"}, s.CategoriesTouched)
}

func TestGenerateSessionSummary_UnknownSession(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.eng.GenerateSessionSummary(context.Background(), "missing")
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	bogus := "time_travel"
	err := f.eng.UpdateSessionContext(ctx, f.session, storage.SessionContextUpdate{CurrentAct: &bogus})
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	focus := "related work"
	require.NoError(t, f.eng.UpdateSessionContext(ctx, f.session, storage.SessionContextUpdate{Focus: &focus}))
	require.NoError(t, f.eng.EndSession(ctx, f.session))

	sess, err := f.store.GetSession(ctx, f.session)
	require.NoError(t, err)
	assert.Equal(t, focus, sess.Focus)
	assert.NotNil(t, sess.EndedAt)

	_, err = f.eng.StartSession(ctx, "missing", "", "")
	assert.ErrorIs(t, err, workflow.ErrNotFound)
	assert.ErrorIs(t, f.eng.EndSession(ctx, "missing"), workflow.ErrNotFound)
}

func TestListProjects(t *testing.T) {
	f := newFixture(t, nil)
	projects, err := f.eng.ListProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, f.project, projects[0].ID)
}
