package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markomanninen/srrd-builder-sub000/internal/storage"
	"github.com/markomanninen/srrd-builder-sub000/internal/taxonomy"
	"github.com/markomanninen/srrd-builder-sub000/internal/workflow"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

// newTestEngine creates an engine over a temp-dir store with one project and session.
func newTestEngine(t *testing.T) (eng *workflow.Engine, projectID, sessionID string) {
	t.Helper()
	store, err := storage.New(storage.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	reg, err := taxonomy.Default()
	if err != nil {
		t.Fatalf("default taxonomy: %v", err)
	}
	eng = workflow.New(reg, store)

	ctx := context.Background()
	projectID, err = eng.CreateProject(ctx, "Quantum gravity", "", "physics")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	sessionID, err = eng.StartSession(ctx, projectID, "", "")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return eng, projectID, sessionID
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// mustNotError asserts the Handle call returns no Go error and no tool error.
func mustNotError(t *testing.T, r *mcp.CallToolResult, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if r.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(r))
	}
}

// mustBeToolError asserts the Handle call returns a tool error (not a Go error).
func mustBeToolError(t *testing.T, r *mcp.CallToolResult, err error, wantSubstr string) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if !r.IsError {
		t.Fatalf("expected tool error containing %q, got success: %s", wantSubstr, resultText(r))
	}
	if wantSubstr != "" && !strings.Contains(resultText(r), wantSubstr) {
		t.Errorf("error text %q does not contain %q", resultText(r), wantSubstr)
	}
}

func logTool(t *testing.T, eng *workflow.Engine, sessionID, tool string) {
	t.Helper()
	r, err := NewLogToolTool(eng).Handle(context.Background(), makeReq(map[string]interface{}{
		"session_id": sessionID,
		"tool_name":  tool,
	}))
	mustNotError(t, r, err)
}

type toolHandler interface {
	Definition() mcp.Tool
	Handle(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// ─── Definitions ─────────────────────────────────────────────────────────────

func TestDefinitions(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	tests := []struct {
		tool     toolHandler
		name     string
		required string
	}{
		{NewProjectCreateTool(eng), "research_project_create", "name"},
		{NewSessionStartTool(eng), "research_session_start", "project_id"},
		{NewSessionUpdateTool(eng), "research_session_update", "session_id"},
		{NewSessionSummaryTool(eng), "research_session_summary", "session_id"},
		{NewLogToolTool(eng), "research_log_tool", "tool_name"},
		{NewToolContextTool(eng), "research_tool_context", "tool_name"},
		{NewProgressTool(eng), "research_progress", "project_id"},
		{NewVelocityTool(eng), "research_velocity", "project_id"},
		{NewHealthTool(eng), "research_health", "project_id"},
		{NewRecommendationsTool(eng), "research_recommendations", "project_id"},
		{NewContextualRecommendationsTool(eng), "research_contextual_recommendations", "project_id"},
		{NewRecommendationUpdateTool(eng), "research_recommendation_update", "status"},
		{NewMilestonesTool(eng), "research_milestones", "project_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := tt.tool.Definition()
			if def.Name != tt.name {
				t.Errorf("tool name = %q, want %q", def.Name, tt.name)
			}
			if _, ok := def.InputSchema.Properties[tt.required]; !ok {
				t.Errorf("missing %q parameter", tt.required)
			}
			found := false
			for _, r := range def.InputSchema.Required {
				if r == tt.required {
					found = true
				}
			}
			if !found {
				t.Errorf("%q should be required", tt.required)
			}
		})
	}
}

// ─── Missing arguments ───────────────────────────────────────────────────────

func TestHandlers_MissingRequired(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	tests := []struct {
		name string
		tool toolHandler
		want string
	}{
		{"project create", NewProjectCreateTool(eng), "'name' is required"},
		{"session start", NewSessionStartTool(eng), "'project_id' is required"},
		{"session update", NewSessionUpdateTool(eng), "'session_id' is required"},
		{"session summary", NewSessionSummaryTool(eng), "'session_id' is required"},
		{"log tool", NewLogToolTool(eng), "'session_id' is required"},
		{"tool context", NewToolContextTool(eng), "'tool_name' is required"},
		{"progress", NewProgressTool(eng), "'project_id' is required"},
		{"velocity", NewVelocityTool(eng), "'project_id' is required"},
		{"health", NewHealthTool(eng), "'project_id' is required"},
		{"recommendations", NewRecommendationsTool(eng), "'project_id' is required"},
		{"contextual", NewContextualRecommendationsTool(eng), "'project_id' is required"},
		{"recommendation update", NewRecommendationUpdateTool(eng), "'id' is required"},
		{"milestones", NewMilestonesTool(eng), "'project_id' is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tt.tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
			mustBeToolError(t, r, err, tt.want)
		})
	}
}

// ─── Projects & sessions ─────────────────────────────────────────────────────

func TestProjectCreateTool_Success(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	r, err := NewProjectCreateTool(eng).Handle(context.Background(), makeReq(map[string]interface{}{
		"name":   "Coral bleaching",
		"domain": "biology",
	}))
	mustNotError(t, r, err)
	if !strings.Contains(resultText(r), "Project ID") {
		t.Errorf("expected project id in output: %s", resultText(r))
	}
}

func TestSessionStartTool_UnknownProject(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	r, err := NewSessionStartTool(eng).Handle(context.Background(), makeReq(map[string]interface{}{
		"project_id": "missing",
	}))
	mustBeToolError(t, r, err, "not found")
}

func TestSessionUpdateTool(t *testing.T) {
	eng, projectID, sessionID := newTestEngine(t)
	ctx := context.Background()
	tool := NewSessionUpdateTool(eng)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id":  sessionID,
		"current_act": "no_such_act",
	}))
	mustBeToolError(t, r, err, "no_such_act")

	r, err = tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id":  sessionID,
		"current_act": "design_planning",
		"goals":       "pick method, ethics review ,",
		"end":         true,
	}))
	mustNotError(t, r, err)
	if !strings.Contains(resultText(r), "ended") {
		t.Errorf("expected ended confirmation: %s", resultText(r))
	}

	// The session act now drives recommendations.
	logTool(t, eng, sessionID, "clarify_research_goals")
	recs, err := eng.GenerateRecommendations(ctx, projectID, sessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) == 0 || recs[0].Act != "design_planning" {
		t.Errorf("expected design_planning recommendations, got %+v", recs)
	}
}

func TestSessionSummaryTool(t *testing.T) {
	eng, _, sessionID := newTestEngine(t)
	ctx := context.Background()
	tool := NewSessionSummaryTool(eng)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{"session_id": sessionID}))
	mustNotError(t, r, err)
	if !strings.Contains(resultText(r), "No tool usage") {
		t.Errorf("expected empty summary: %s", resultText(r))
	}

	logTool(t, eng, sessionID, "semantic_search")
	r, err = tool.Handle(ctx, makeReq(map[string]interface{}{"session_id": sessionID}))
	mustNotError(t, r, err)
	text := resultText(r)
	if !strings.Contains(text, "semantic_search") || !strings.Contains(text, "knowledge_acquisition") {
		t.Errorf("summary missing tool or act: %s", text)
	}

	r, err = tool.Handle(ctx, makeReq(map[string]interface{}{"session_id": "missing"}))
	mustBeToolError(t, r, err, "not found")
}

// ─── Usage ───────────────────────────────────────────────────────────────────

func TestLogToolTool(t *testing.T) {
	eng, _, sessionID := newTestEngine(t)
	ctx := context.Background()
	tool := NewLogToolTool(eng)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id":        sessionID,
		"tool_name":         "compile_latex",
		"success":           false,
		"execution_time_ms": float64(1200),
		"error_message":     "missing package",
	}))
	mustNotError(t, r, err)
	if !strings.Contains(resultText(r), "communication / formatting") {
		t.Errorf("expected classification in output: %s", resultText(r))
	}

	r, err = tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": sessionID,
		"tool_name":  "brew_coffee",
	}))
	mustBeToolError(t, r, err, "not part of the research taxonomy")

	r, err = tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id":        sessionID,
		"tool_name":         "compile_latex",
		"execution_time_ms": float64(-5),
	}))
	mustBeToolError(t, r, err, "must not be negative")
}

func TestToolContextTool(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	tool := NewToolContextTool(eng)

	r, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"tool_name": "validate_design"}))
	mustNotError(t, r, err)
	text := resultText(r)
	for _, want := range []string{"design_planning", "experimental_design", "ensure_ethics", "step 2 of 6"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q: %s", want, text)
		}
	}

	r, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"tool_name": "nope"}))
	mustBeToolError(t, r, err, "not part of the research taxonomy")
}

// ─── Reports ─────────────────────────────────────────────────────────────────

func TestProgressTools(t *testing.T) {
	eng, projectID, sessionID := newTestEngine(t)
	ctx := context.Background()
	logTool(t, eng, sessionID, "clarify_research_goals")
	logTool(t, eng, sessionID, "identify_research_gaps")

	tests := []struct {
		name string
		tool toolHandler
		args map[string]interface{}
		want []string
	}{
		{"progress", NewProgressTool(eng),
			map[string]interface{}{"project_id": projectID, "include_categories": true},
			[]string{"Research Progress: Quantum gravity", "Conceptualization", "## Categories", "## Velocity", "## Health"}},
		{"velocity", NewVelocityTool(eng),
			map[string]interface{}{"project_id": projectID},
			[]string{"tools/day", "Trend"}},
		{"health", NewHealthTool(eng),
			map[string]interface{}{"project_id": projectID},
			[]string{"Score", "Balance"}},
		{"recommendations", NewRecommendationsTool(eng),
			map[string]interface{}{"project_id": projectID},
			[]string{"Recommended Next Tools", "effort"}},
		{"contextual", NewContextualRecommendationsTool(eng),
			map[string]interface{}{"project_id": projectID, "depth": float64(2)},
			[]string{"Pattern", "confidence"}},
		{"milestones", NewMilestonesTool(eng),
			map[string]interface{}{"project_id": projectID},
			[]string{"Research Milestones"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tt.tool.Handle(ctx, makeReq(tt.args))
			mustNotError(t, r, err)
			text := resultText(r)
			for _, want := range tt.want {
				if !strings.Contains(text, want) {
					t.Errorf("output missing %q:\n%s", want, text)
				}
			}
		})
	}
}

func TestReportTools_UnknownProject(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	for _, tool := range []toolHandler{
		NewProgressTool(eng), NewVelocityTool(eng), NewHealthTool(eng),
		NewRecommendationsTool(eng), NewContextualRecommendationsTool(eng), NewMilestonesTool(eng),
	} {
		t.Run(tool.Definition().Name, func(t *testing.T) {
			r, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"project_id": "missing"}))
			mustBeToolError(t, r, err, "not found")
		})
	}
}

func TestMilestonesTool_DetectThenList(t *testing.T) {
	eng, projectID, sessionID := newTestEngine(t)
	ctx := context.Background()
	tool := NewMilestonesTool(eng)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{"project_id": projectID, "detect": false}))
	mustNotError(t, r, err)
	if !strings.Contains(resultText(r), "No milestones recorded") {
		t.Errorf("expected empty list: %s", resultText(r))
	}

	for _, name := range []string{"clarify_research_goals", "identify_research_gaps", "compare_paradigms"} {
		logTool(t, eng, sessionID, name)
	}
	r, err = tool.Handle(ctx, makeReq(map[string]interface{}{"project_id": projectID}))
	mustNotError(t, r, err)
	if !strings.Contains(resultText(r), "NEW") {
		t.Errorf("expected a new milestone: %s", resultText(r))
	}

	r, err = tool.Handle(ctx, makeReq(map[string]interface{}{"project_id": projectID}))
	mustNotError(t, r, err)
	if strings.Contains(resultText(r), "NEW") {
		t.Errorf("second detection should not report new milestones: %s", resultText(r))
	}

	r, err = tool.Handle(ctx, makeReq(map[string]interface{}{"project_id": projectID, "detect": false}))
	mustNotError(t, r, err)
	if !strings.Contains(resultText(r), "Conceptualization 25% Complete") {
		t.Errorf("expected recorded milestone: %s", resultText(r))
	}
}

func TestRecommendationUpdateTool(t *testing.T) {
	eng, projectID, _ := newTestEngine(t)
	ctx := context.Background()

	recs, err := eng.GenerateRecommendations(ctx, projectID, "")
	if err != nil || len(recs) == 0 {
		t.Fatalf("generate: %v (%d recs)", err, len(recs))
	}
	tool := NewRecommendationUpdateTool(eng)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{"id": float64(recs[0].ID), "status": "accepted"}))
	mustNotError(t, r, err)

	r, err = tool.Handle(ctx, makeReq(map[string]interface{}{"id": float64(recs[0].ID), "status": "pending"}))
	mustBeToolError(t, r, err, "must be one of")

	r, err = tool.Handle(ctx, makeReq(map[string]interface{}{"id": float64(99999), "status": "dismissed"}))
	mustBeToolError(t, r, err, "not found")

	accepted, err := eng.ListRecommendations(ctx, projectID, storage.RecommendationAccepted)
	if err != nil {
		t.Fatal(err)
	}
	if len(accepted) != 1 {
		t.Errorf("expected 1 accepted recommendation, got %d", len(accepted))
	}
}
