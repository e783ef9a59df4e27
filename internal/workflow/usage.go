package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/markomanninen/srrd-builder-sub000/internal/storage"
)

// ToolCall is one tool invocation to record.
type ToolCall struct {
	SessionID     string
	ToolName      string
	Success       bool
	ExecutionTime time.Duration
	ErrorMessage  string
	ResultSummary string
	// Timestamp defaults to the current time when zero.
	Timestamp time.Time
}

// RecordToolUsage classifies call through the taxonomy and appends it to the
// usage log of the session's project.
func (e *Engine) RecordToolUsage(ctx context.Context, call ToolCall) (*storage.ToolUsage, error) {
	const op = "record tool usage"
	tc, ok := e.reg.ToolContext(call.ToolName)
	if !ok {
		return nil, notFound(op, "tool %q is not part of the research taxonomy", call.ToolName)
	}
	sess, err := e.store.GetSession(ctx, call.SessionID)
	if err != nil {
		return nil, wrap(op, err)
	}

	ts := call.Timestamp
	if ts.IsZero() {
		ts = timeNow()
	}
	u := &storage.ToolUsage{
		SessionID:     sess.ID,
		ProjectID:     sess.ProjectID,
		ToolName:      tc.Tool,
		Act:           tc.Act,
		Category:      tc.Category,
		Timestamp:     ts,
		Success:       call.Success,
		ExecutionTime: call.ExecutionTime,
		ErrorMessage:  call.ErrorMessage,
		ResultSummary: call.ResultSummary,
	}
	if _, err := e.store.LogToolUsage(ctx, u); err != nil {
		return nil, wrap(op, err)
	}
	e.log.Debug(op, zap.String("session", sess.ID), zap.String("tool", tc.Tool), zap.Bool("success", call.Success))
	return u, nil
}

// ListUsedTools returns the distinct known tools used in a project, the most
// recently used last.
func (e *Engine) ListUsedTools(ctx context.Context, projectID string) ([]string, error) {
	const op = "list used tools"
	if _, err := e.requireProject(ctx, op, projectID); err != nil {
		return nil, err
	}
	used, err := e.store.ListUsedTools(ctx, projectID)
	if err != nil {
		return nil, wrap(op, err)
	}
	return e.knownTools(op, used), nil
}
