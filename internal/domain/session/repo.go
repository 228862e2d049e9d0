package session

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/intake/intake/internal/flow"
)

// ErrNotFound is returned when a session id does not exist.
var ErrNotFound = errors.New("session not found")

type SessionRepository interface {
	Create(ctx context.Context, s *IntakeSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*IntakeSession, error)
	Update(ctx context.Context, s *IntakeSession) error
	List(ctx context.Context, limit, offset int) ([]*IntakeSession, int, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*IntakeSession, int, error)
	ListByPatient(ctx context.Context, patientRef string, limit, offset int) ([]*IntakeSession, int, error)
}

type ResponseRepository interface {
	Append(ctx context.Context, r *IntakeResponse) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*IntakeResponse, error)
}

// SnapshotCache is the fast rehydration path for active sessions. A nil or
// missing entry falls back to replaying the response log.
type SnapshotCache interface {
	Put(ctx context.Context, sessionID string, snap *flow.Snapshot) error
	Get(ctx context.Context, sessionID string) (*flow.Snapshot, error)
	Delete(ctx context.Context, sessionID string) error
}
