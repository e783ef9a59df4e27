package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// CreateMilestone records an achievement. It reports false without error
// when a milestone with the same name already exists for the project.
func (s *Store) CreateMilestone(ctx context.Context, m *Milestone) (bool, error) {
	if m.AchievedAt.IsZero() {
		m.AchievedAt = timeNow()
	}
	if err := validateRecord("milestone", m); err != nil {
		return false, err
	}

	criteria, err := encodeJSON(m.Criteria)
	if err != nil {
		return false, fmt.Errorf("storage: encode criteria: %w", err)
	}
	tools, err := encodeJSON(m.ToolsInvolved)
	if err != nil {
		return false, fmt.Errorf("storage: encode tools: %w", err)
	}

	res, err := s.execHook(ctx,
		`INSERT INTO milestones (project_id, milestone_type, name, description, research_act,
		                         research_category, criteria, tools_involved, impact_score, achieved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(project_id, name) DO NOTHING`,
		m.ProjectID, m.Type, m.Name, nullableString(m.Description), nullableString(m.Act),
		nullableString(m.Category), criteria, tools, m.Impact, formatTime(m.AchievedAt),
	)
	if err != nil {
		return false, fmt.Errorf("storage: create milestone: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage: create milestone: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return false, fmt.Errorf("storage: create milestone: %w", err)
	}
	return true, nil
}

// ListMilestones returns a project's milestones, most recent first.
// limit <= 0 returns all of them.
func (s *Store) ListMilestones(ctx context.Context, projectID string, limit int) ([]Milestone, error) {
	query := `SELECT id, project_id, milestone_type, name, description, research_act, research_category,
	                 criteria, tools_involved, impact_score, achieved_at
	          FROM milestones WHERE project_id = ?
	          ORDER BY achieved_at DESC, id DESC`
	args := []any{projectID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.queryHook(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list milestones: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Milestone
	for rows.Next() {
		var (
			m                          Milestone
			description, act, category sql.NullString
			criteria, tools            sql.NullString
			achieved                   string
		)
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Type, &m.Name, &description, &act, &category,
			&criteria, &tools, &m.Impact, &achieved); err != nil {
			return nil, err
		}
		m.Description = description.String
		m.Act = act.String
		m.Category = category.String
		if err := decodeJSON(criteria, &m.Criteria); err != nil {
			return nil, fmt.Errorf("storage: milestone %d criteria: %w", m.ID, err)
		}
		if err := decodeJSON(tools, &m.ToolsInvolved); err != nil {
			return nil, fmt.Errorf("storage: milestone %d tools: %w", m.ID, err)
		}
		if m.AchievedAt, err = parseTime(achieved); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ─── Recommendations ─────────────────────────────────────────────────────────

// CreateRecommendation persists a recommendation. An empty Status defaults
// to pending.
func (s *Store) CreateRecommendation(ctx context.Context, r *Recommendation) (int64, error) {
	if r.Status == "" {
		r.Status = RecommendationPending
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = timeNow()
	}
	if err := validateRecord("recommendation", r); err != nil {
		return 0, err
	}

	tools, err := json.Marshal(r.Tools)
	if err != nil {
		return 0, fmt.Errorf("storage: encode tools: %w", err)
	}

	res, err := s.execHook(ctx,
		`INSERT INTO recommendations (project_id, session_id, current_act, recommended_act, tools,
		                              reasoning, priority, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ProjectID, nullableString(r.SessionID), nullableString(r.CurrentAct), nullableString(r.RecommendedAct),
		string(tools), r.Reasoning, r.Priority, r.Status, formatTime(r.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: create recommendation: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return 0, fmt.Errorf("storage: create recommendation: %w", err)
	}
	return r.ID, nil
}

// ListRecommendations returns a project's recommendations with the given
// status, highest priority first. An empty status matches all.
func (s *Store) ListRecommendations(ctx context.Context, projectID, status string) ([]Recommendation, error) {
	query := `SELECT id, project_id, session_id, current_act, recommended_act, tools, reasoning,
	                 priority, status, created_at
	          FROM recommendations WHERE project_id = ?`
	args := []any{projectID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY priority ASC, created_at DESC, id ASC"

	rows, err := s.queryHook(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list recommendations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Recommendation
	for rows.Next() {
		var (
			r                             Recommendation
			session, current, recommended sql.NullString
			reasoning                     sql.NullString
			tools, created                string
		)
		if err := rows.Scan(&r.ID, &r.ProjectID, &session, &current, &recommended, &tools, &reasoning,
			&r.Priority, &r.Status, &created); err != nil {
			return nil, err
		}
		r.SessionID = session.String
		r.CurrentAct = current.String
		r.RecommendedAct = recommended.String
		r.Reasoning = reasoning.String
		if err := json.Unmarshal([]byte(tools), &r.Tools); err != nil {
			return nil, fmt.Errorf("storage: recommendation %d tools: %w", r.ID, err)
		}
		if r.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateRecommendationStatus changes the status of a recommendation.
func (s *Store) UpdateRecommendationStatus(ctx context.Context, id int64, status string) error {
	if err := validate.Var(status, "oneof=pending accepted dismissed completed"); err != nil {
		return fmt.Errorf("storage: recommendation status %q: %w", status, ErrInvalidRecord)
	}
	res, err := s.execHook(ctx, `UPDATE recommendations SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("storage: update recommendation: %w", err)
	}
	return requireAffected(res, "recommendation", fmt.Sprint(id))
}
