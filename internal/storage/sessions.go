package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ─── Projects ────────────────────────────────────────────────────────────────

// CreateProject registers a new project and returns its generated id.
func (s *Store) CreateProject(ctx context.Context, p Project) (string, error) {
	if err := validateRecord("project", p); err != nil {
		return "", err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.execHook(ctx,
		`INSERT INTO projects (id, name, description, domain, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, nullableString(p.Description), nullableString(p.Domain), formatTime(timeNow()),
	)
	if err != nil {
		return "", fmt.Errorf("storage: create project: %w", err)
	}
	return p.ID, nil
}

// GetProject retrieves a project by id.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, domain, created_at FROM projects WHERE id = ?`, id,
	)
	var (
		p                   Project
		description, domain sql.NullString
		created             string
	)
	if err := row.Scan(&p.ID, &p.Name, &description, &domain, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("storage: project %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("storage: get project: %w", err)
	}
	p.Description = description.String
	p.Domain = domain.String
	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = t
	return &p, nil
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.queryHook(ctx,
		`SELECT id, name, description, domain, created_at FROM projects ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Project
	for rows.Next() {
		var (
			p                   Project
			description, domain sql.NullString
			created             string
		)
		if err := rows.Scan(&p.ID, &p.Name, &description, &domain, &created); err != nil {
			return nil, err
		}
		p.Description = description.String
		p.Domain = domain.String
		if p.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ─── Sessions ────────────────────────────────────────────────────────────────

// CreateSession starts a new session in a project and returns its id.
// The project must exist.
func (s *Store) CreateSession(ctx context.Context, projectID, sessionType, userID string) (string, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return "", err
	}
	if sessionType == "" {
		sessionType = "research"
	}

	id := uuid.NewString()
	_, err := s.execHook(ctx,
		`INSERT INTO sessions (id, project_id, session_type, user_id, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, projectID, sessionType, nullableString(userID), formatTime(timeNow()),
	)
	if err != nil {
		return "", fmt.Errorf("storage: create session: %w", err)
	}
	return id, nil
}

// GetSession retrieves a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, session_type, user_id, started_at, ended_at, current_act, focus, goals
		 FROM sessions WHERE id = ?`, id,
	)
	var (
		sess                                 Session
		userID, ended, act, focus, goalsJSON sql.NullString
		started                              string
	)
	if err := row.Scan(&sess.ID, &sess.ProjectID, &sess.SessionType, &userID, &started, &ended, &act, &focus, &goalsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("storage: session %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("storage: get session: %w", err)
	}

	var err error
	if sess.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if ended.Valid {
		t, err := parseTime(ended.String)
		if err != nil {
			return nil, err
		}
		sess.EndedAt = &t
	}
	sess.UserID = userID.String
	sess.CurrentAct = act.String
	sess.Focus = focus.String
	if err := decodeJSON(goalsJSON, &sess.Goals); err != nil {
		return nil, fmt.Errorf("storage: session %q goals: %w", id, err)
	}
	return &sess, nil
}

// UpdateSessionContext applies a partial update to a session's context.
func (s *Store) UpdateSessionContext(ctx context.Context, id string, u SessionContextUpdate) error {
	var (
		sets []string
		args []any
	)
	if u.CurrentAct != nil {
		sets = append(sets, "current_act = ?")
		args = append(args, nullableString(*u.CurrentAct))
	}
	if u.Focus != nil {
		sets = append(sets, "focus = ?")
		args = append(args, nullableString(*u.Focus))
	}
	if u.Goals != nil {
		data, err := json.Marshal(u.Goals)
		if err != nil {
			return fmt.Errorf("storage: encode goals: %w", err)
		}
		sets = append(sets, "goals = ?")
		args = append(args, string(data))
	}
	if len(sets) == 0 {
		_, err := s.GetSession(ctx, id)
		return err
	}

	args = append(args, id)
	res, err := s.execHook(ctx, `UPDATE sessions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("storage: update session: %w", err)
	}
	return requireAffected(res, "session", id)
}

// EndSession marks a session as finished.
func (s *Store) EndSession(ctx context.Context, id string) error {
	res, err := s.execHook(ctx,
		`UPDATE sessions SET ended_at = ? WHERE id = ?`, formatTime(timeNow()), id,
	)
	if err != nil {
		return fmt.Errorf("storage: end session: %w", err)
	}
	return requireAffected(res, "session", id)
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("storage: %s %q: %w", kind, id, ErrNotFound)
	}
	return nil
}
