// Package tools provides MCP tool handlers for research workflow tracking.
//
// Each tool follows the same pattern:
// - A struct with its dependencies (the workflow engine) injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a markdown result
//
// Domain failures are returned as tool errors, never as Go errors.
package tools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markomanninen/srrd-builder-sub000/internal/workflow"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// optionalString returns a pointer to the argument when the key is present.
func optionalString(req mcp.CallToolRequest, key string) *string {
	v, ok := req.GetArguments()[key].(string)
	if !ok {
		return nil
	}
	return &v
}

// splitList splits a comma-separated argument, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// engineError converts an engine failure into a tool error.
func engineError(action string, err error) *mcp.CallToolResult {
	if errors.Is(err, workflow.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", action, err))
	}
	return mcp.NewToolResultError(fmt.Sprintf("failed to %s: %v", action, err))
}

func progressBar(pct int) string {
	filled := pct / 10
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", 10-filled) + "]"
}
