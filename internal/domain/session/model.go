package session

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Session lifecycle states.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusAbandoned = "abandoned"
)

// IntakeSession is the persisted record of one questionnaire run. The
// per-turn response log is the source of truth for engine state; this row
// carries the denormalized summary used by listings and dashboards.
type IntakeSession struct {
	ID            uuid.UUID  `json:"id"`
	PatientRef    string     `json:"patient_ref"`
	Status        string     `json:"status"`
	CurrentDomain string     `json:"current_domain"`
	Progress      float64    `json:"progress"`
	RiskLevel     *string    `json:"risk_level,omitempty"`
	RiskScore     *float64   `json:"risk_score,omitempty"`
	FraudScore    float64    `json:"fraud_score"`
	Results       []byte     `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// IntakeResponse is one accepted answer turn. Corrections append a new row
// for the same question id, so the log replays to identical engine state.
type IntakeResponse struct {
	ID          uuid.UUID       `json:"id"`
	SessionID   uuid.UUID       `json:"session_id"`
	Seq         int             `json:"seq"`
	QuestionID  string          `json:"question_id"`
	Value       json.RawMessage `json:"value"`
	PresentedAt time.Time       `json:"presented_at"`
	RespondedAt time.Time       `json:"responded_at"`
}
