// Package resources implements MCP resource handlers for the research workflow.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (srrd://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markomanninen/srrd-builder-sub000/internal/workflow"
)

const (
	// TaxonomyURI addresses the research taxonomy resource.
	TaxonomyURI = "srrd://taxonomy"
	// ProjectsURI addresses the project list resource.
	ProjectsURI = "srrd://projects"
)

// Handler manages research resource endpoints.
type Handler struct {
	engine *workflow.Engine
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(engine *workflow.Engine) *Handler {
	return &Handler{engine: engine}
}

// TaxonomyResource returns the MCP resource definition for the taxonomy.
func (h *Handler) TaxonomyResource() mcp.Resource {
	return mcp.NewResource(
		TaxonomyURI,
		"Research Taxonomy",
		mcp.WithResourceDescription("Research acts in progression order with their categories and tools"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleTaxonomy returns the taxonomy as JSON.
func (h *Handler) HandleTaxonomy(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(req.Params.URI, h.engine.Registry().Acts())
}

// ProjectsResource returns the MCP resource definition for the project list.
func (h *Handler) ProjectsResource() mcp.Resource {
	return mcp.NewResource(
		ProjectsURI,
		"Research Projects",
		mcp.WithResourceDescription("All tracked research projects, newest first"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleProjects returns the tracked projects as JSON.
func (h *Handler) HandleProjects(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	projects, err := h.engine.ListProjects(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return jsonResource(req.Params.URI, projects)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
