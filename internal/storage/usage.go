package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LogToolUsage appends a tool usage record. When ProjectID is empty it is
// taken from the session. A zero Timestamp is set to the current time.
func (s *Store) LogToolUsage(ctx context.Context, u *ToolUsage) (int64, error) {
	if u.ProjectID == "" && u.SessionID != "" {
		sess, err := s.GetSession(ctx, u.SessionID)
		if err != nil {
			return 0, err
		}
		u.ProjectID = sess.ProjectID
	}
	if u.Timestamp.IsZero() {
		u.Timestamp = timeNow()
	}
	if err := validateRecord("tool usage", u); err != nil {
		return 0, err
	}

	res, err := s.execHook(ctx,
		`INSERT INTO tool_usage (session_id, project_id, tool_name, research_act, research_category,
		                         timestamp, success, execution_time_ms, error_message, result_summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.SessionID, u.ProjectID, u.ToolName, u.Act, u.Category,
		formatTime(u.Timestamp), boolToInt(u.Success), u.ExecutionTime.Milliseconds(),
		nullableString(u.ErrorMessage), nullableString(u.ResultSummary),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: log tool usage: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: log tool usage: %w", err)
	}
	u.ID = id
	return id, nil
}

// ListUsedTools returns the distinct tools used in a project ordered by
// their most recent use, so the last entry is the most recently used tool.
func (s *Store) ListUsedTools(ctx context.Context, projectID string) ([]string, error) {
	rows, err := s.queryHook(ctx,
		`SELECT tool_name FROM tool_usage
		 WHERE project_id = ?
		 GROUP BY tool_name
		 ORDER BY MAX(timestamp), MAX(id)`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list used tools: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tools []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tools = append(tools, name)
	}
	return tools, rows.Err()
}

// ListUsageHistory returns usage records oldest-first. With f.Limit > 0 only
// the newest Limit records are returned, still oldest-first.
func (s *Store) ListUsageHistory(ctx context.Context, f HistoryFilter) ([]ToolUsage, error) {
	var (
		where string
		arg   string
	)
	switch {
	case f.SessionID != "":
		where, arg = "session_id = ?", f.SessionID
	case f.ProjectID != "":
		where, arg = "project_id = ?", f.ProjectID
	default:
		return nil, fmt.Errorf("storage: list usage history: project or session id required")
	}

	const cols = `id, session_id, project_id, tool_name, research_act, research_category,
	              timestamp, success, execution_time_ms, error_message, result_summary`

	query := `SELECT ` + cols + ` FROM tool_usage WHERE ` + where + ` ORDER BY timestamp ASC, id ASC`
	args := []any{arg}
	if f.Limit > 0 {
		query = `SELECT ` + cols + ` FROM (
			SELECT ` + cols + ` FROM tool_usage WHERE ` + where + `
			ORDER BY timestamp DESC, id DESC LIMIT ?
		) ORDER BY timestamp ASC, id ASC`
		args = append(args, f.Limit)
	}

	rows, err := s.queryHook(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list usage history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ToolUsage
	for rows.Next() {
		var (
			rec             ToolUsage
			errMsg, summary sql.NullString
			ts              string
			success         int
			execMillis      int64
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.ProjectID, &rec.ToolName,
			&rec.Act, &rec.Category, &ts, &success, &execMillis, &errMsg, &summary); err != nil {
			return nil, err
		}
		if rec.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		rec.Success = success != 0
		rec.ExecutionTime = time.Duration(execMillis) * time.Millisecond
		rec.ErrorMessage = errMsg.String
		rec.ResultSummary = summary.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PerActUsageCounts returns the number of logged events per research act.
func (s *Store) PerActUsageCounts(ctx context.Context, projectID string) (map[string]int, error) {
	rows, err := s.queryHook(ctx,
		`SELECT research_act, COUNT(*) FROM tool_usage WHERE project_id = ? GROUP BY research_act`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: per-act usage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			act string
			n   int
		)
		if err := rows.Scan(&act, &n); err != nil {
			return nil, err
		}
		counts[act] = n
	}
	return counts, rows.Err()
}
