// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations
// and injects them into the tools/prompts/resources that depend on them.
// No business logic lives here, only wiring.
package server

import (
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/markomanninen/srrd-builder-sub000/internal/config"
	"github.com/markomanninen/srrd-builder-sub000/internal/prompts"
	"github.com/markomanninen/srrd-builder-sub000/internal/resources"
	"github.com/markomanninen/srrd-builder-sub000/internal/storage"
	"github.com/markomanninen/srrd-builder-sub000/internal/taxonomy"
	"github.com/markomanninen/srrd-builder-sub000/internal/tools"
	"github.com/markomanninen/srrd-builder-sub000/internal/workflow"
)

// Version is set at build time via ldflags.
var Version = "dev"

// OpenEngine loads the taxonomy, opens the workflow store and builds the
// engine. The returned cleanup closes the store; it is always non-nil.
func OpenEngine(cfg *config.Config, logger *zap.Logger) (*workflow.Engine, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	reg, err := loadTaxonomy(cfg.TaxonomyFile)
	if err != nil {
		return nil, noop, err
	}

	store, err := storage.New(cfg.Store())
	if err != nil {
		return nil, noop, fmt.Errorf("opening workflow store: %w", err)
	}
	cleanup := func() { closeStore(store, logger) }

	engine := workflow.New(reg, store,
		workflow.WithLogger(logger.Named("workflow")),
		workflow.WithRecentWindow(cfg.RecentWindow),
	)
	logger.Debug("workflow engine ready",
		zap.String("data_dir", cfg.DataDir),
		zap.Int("acts", len(reg.ActIDs())),
		zap.Int("tools", reg.TotalTools()),
	)
	return engine, cleanup, nil
}

func closeStore(c io.Closer, logger *zap.Logger) {
	if err := c.Close(); err != nil {
		logger.Warn("workflow store close", zap.Error(err))
	}
}

func loadTaxonomy(path string) (*taxonomy.Registry, error) {
	if path == "" {
		reg, err := taxonomy.Default()
		if err != nil {
			return nil, fmt.Errorf("loading default taxonomy: %w", err)
		}
		return reg, nil
	}
	reg, err := taxonomy.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading taxonomy %s: %w", path, err)
	}
	return reg, nil
}

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function closes the workflow store and must be
// called on shutdown (typically via defer).
func New(cfg *config.Config, logger *zap.Logger) (*server.MCPServer, func(), error) {
	// --- Create shared dependencies ---

	engine, cleanup, err := OpenEngine(cfg, logger)
	if err != nil {
		return nil, noop, err
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"srrd",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register project & session tools ---

	projectTool := tools.NewProjectCreateTool(engine)
	s.AddTool(projectTool.Definition(), projectTool.Handle)

	sessionStartTool := tools.NewSessionStartTool(engine)
	s.AddTool(sessionStartTool.Definition(), sessionStartTool.Handle)

	sessionUpdateTool := tools.NewSessionUpdateTool(engine)
	s.AddTool(sessionUpdateTool.Definition(), sessionUpdateTool.Handle)

	sessionSummaryTool := tools.NewSessionSummaryTool(engine)
	s.AddTool(sessionSummaryTool.Definition(), sessionSummaryTool.Handle)

	// --- Register usage tools ---

	logTool := tools.NewLogToolTool(engine)
	s.AddTool(logTool.Definition(), logTool.Handle)

	contextTool := tools.NewToolContextTool(engine)
	s.AddTool(contextTool.Definition(), contextTool.Handle)

	// --- Register analysis tools ---

	progressTool := tools.NewProgressTool(engine)
	s.AddTool(progressTool.Definition(), progressTool.Handle)

	velocityTool := tools.NewVelocityTool(engine)
	s.AddTool(velocityTool.Definition(), velocityTool.Handle)

	healthTool := tools.NewHealthTool(engine)
	s.AddTool(healthTool.Definition(), healthTool.Handle)

	milestonesTool := tools.NewMilestonesTool(engine)
	s.AddTool(milestonesTool.Definition(), milestonesTool.Handle)

	// --- Register recommendation tools ---

	recsTool := tools.NewRecommendationsTool(engine)
	s.AddTool(recsTool.Definition(), recsTool.Handle)

	contextualTool := tools.NewContextualRecommendationsTool(engine)
	s.AddTool(contextualTool.Definition(), contextualTool.Handle)

	recUpdateTool := tools.NewRecommendationUpdateTool(engine)
	s.AddTool(recUpdateTool.Definition(), recUpdateTool.Handle)

	// --- Register prompts ---

	startPrompt := prompts.NewStartPrompt()
	s.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(engine)
	s.AddResource(resourceHandler.TaxonomyResource(), resourceHandler.HandleTaxonomy)
	s.AddResource(resourceHandler.ProjectsResource(), resourceHandler.HandleProjects)

	return s, cleanup, nil
}

// noop is a no-op cleanup function returned when initialization fails.
func noop() {}

func serverInstructions() string {
	return `You have access to srrd, a research workflow tracking MCP server.

## WHAT IT TRACKS

Research work is organised into six acts, in order:
conceptualization, design_planning, knowledge_acquisition, analysis_synthesis,
validation_refinement, communication. Each act has categories, each category
has research tools. Read the srrd://taxonomy resource for the full map.

## HOW TO USE IT

1. Register the project once with research_project_create and keep the project ID.
2. Open a session with research_session_start at the start of each working session.
3. After EVERY research tool call, log it with research_log_tool
   (session_id, tool_name, success, execution_time_ms).
   Unknown tool names are rejected; use research_tool_context to check a name.
4. Set the act you are working in with research_session_update (current_act).
   Close the session with end=true when the user is done.

## WHEN THE USER ASKS WHAT TO DO NEXT

- research_contextual_recommendations looks at the most recent calls, detects
  repetitive or exploratory patterns and returns scored suggestions.
- research_recommendations returns plain next-tool suggestions and saves them.
  Mark them with research_recommendation_update when acted on.

## WHEN THE USER ASKS HOW THE RESEARCH IS GOING

- research_progress: completion per act, usage, velocity, health, gaps.
- research_velocity: pace and week-over-week trend.
- research_health: score from workflow gaps and balance across acts.
- research_milestones: detects and lists achievements. Safe to call repeatedly.
- research_session_summary: what happened in one session.

Never invent progress numbers. Always report what the tools return.`
}
