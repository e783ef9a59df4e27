package storage

import "time"

// Project groups sessions and their tool usage.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description,omitempty"`
	Domain      string    `json:"domain,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Session is one working session inside a project.
type Session struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	SessionType string     `json:"session_type"`
	UserID      string     `json:"user_id,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	CurrentAct  string     `json:"current_act,omitempty"`
	Focus       string     `json:"focus,omitempty"`
	Goals       []string   `json:"goals,omitempty"`
}

// SessionContextUpdate holds partial session context fields. Nil fields are
// left unchanged.
type SessionContextUpdate struct {
	CurrentAct *string  `json:"current_act,omitempty"`
	Focus      *string  `json:"focus,omitempty"`
	Goals      []string `json:"goals,omitempty"`
}

// ToolUsage is one logged tool invocation. Records are append-only.
type ToolUsage struct {
	ID            int64         `json:"id"`
	SessionID     string        `json:"session_id" validate:"required"`
	ProjectID     string        `json:"project_id" validate:"required"`
	ToolName      string        `json:"tool_name" validate:"required"`
	Act           string        `json:"research_act" validate:"required"`
	Category      string        `json:"research_category" validate:"required"`
	Timestamp     time.Time     `json:"timestamp"`
	Success       bool          `json:"success"`
	ExecutionTime time.Duration `json:"execution_time" validate:"gte=0"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	ResultSummary string        `json:"result_summary,omitempty"`
}

// HistoryFilter selects tool usage records by project or session.
// Exactly one of ProjectID and SessionID should be set. Limit > 0 keeps only
// the newest Limit records.
type HistoryFilter struct {
	ProjectID string
	SessionID string
	Limit     int
}

// Milestone is a recorded achievement.
type Milestone struct {
	ID            int64          `json:"id"`
	ProjectID     string         `json:"project_id" validate:"required"`
	Type          string         `json:"type" validate:"required"`
	Name          string         `json:"name" validate:"required"`
	Description   string         `json:"description"`
	Act           string         `json:"research_act,omitempty"`
	Category      string         `json:"research_category,omitempty"`
	Criteria      map[string]any `json:"criteria,omitempty"`
	ToolsInvolved []string       `json:"tools_involved,omitempty"`
	Impact        int            `json:"impact_score" validate:"min=1,max=5"`
	AchievedAt    time.Time      `json:"achieved_at"`
}

// Recommendation statuses.
const (
	RecommendationPending   = "pending"
	RecommendationAccepted  = "accepted"
	RecommendationDismissed = "dismissed"
	RecommendationCompleted = "completed"
)

// Recommendation is a persisted next-step suggestion.
type Recommendation struct {
	ID             int64     `json:"id"`
	ProjectID      string    `json:"project_id" validate:"required"`
	SessionID      string    `json:"session_id,omitempty"`
	CurrentAct     string    `json:"current_act,omitempty"`
	RecommendedAct string    `json:"recommended_act,omitempty"`
	Tools          []string  `json:"tools" validate:"min=1,dive,required"`
	Reasoning      string    `json:"reasoning"`
	Priority       int       `json:"priority" validate:"min=1,max=3"`
	Status         string    `json:"status" validate:"oneof=pending accepted dismissed completed"`
	CreatedAt      time.Time `json:"created_at"`
}
