package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/intake/intake/internal/flow"
)

// Service errors surfaced to the transport layer.
var (
	ErrSessionNotActive = errors.New("session is not active")
	ErrNotCompleted     = errors.New("session has not completed")
)

// Service orchestrates intake sessions: it owns persistence of the response
// log and the summary row, and rehydrates the flow engine per request. The
// engine itself is stateless between requests; the snapshot cache is an
// optimization and the response log remains the source of truth.
type Service struct {
	sessions  SessionRepository
	responses ResponseRepository
	cache     SnapshotCache
	bank      *flow.Bank
	cfg       flow.Config
	logger    zerolog.Logger
	flowOpts  []flow.SessionOption
}

// NewService wires the session service. cache may be nil, in which case every
// request rehydrates from the response log.
func NewService(sessions SessionRepository, responses ResponseRepository, cache SnapshotCache,
	bank *flow.Bank, cfg flow.Config, logger zerolog.Logger, opts ...flow.SessionOption) *Service {
	return &Service{
		sessions:  sessions,
		responses: responses,
		cache:     cache,
		bank:      bank,
		cfg:       cfg,
		logger:    logger.With().Str("component", "session-service").Logger(),
		flowOpts:  opts,
	}
}

// Start creates a session record and runs the engine's init turn, returning
// the record together with the first question.
func (s *Service) Start(ctx context.Context, patientRef string) (*IntakeSession, *flow.Result, error) {
	fs := flow.NewSession(s.bank, s.cfg, s.flowOpts...)
	res, err := fs.ProcessResponse(flow.InitSentinel, true)
	if err != nil {
		return nil, nil, err
	}

	rec := &IntakeSession{
		PatientRef:    patientRef,
		Status:        StatusActive,
		CurrentDomain: res.CurrentDomain,
		Progress:      res.Progress,
	}
	if err := s.sessions.Create(ctx, rec); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	s.cacheSnapshot(ctx, rec.ID, fs)

	s.logger.Info().Str("session_id", rec.ID.String()).Str("patient_ref", patientRef).
		Msg("intake session started")
	return rec, res, nil
}

// Submit processes one turn: an answer to a question, or the _continue
// acknowledgment of a domain transition. Accepted answers are appended to the
// response log; validation failures come back inside the Result and persist
// nothing.
func (s *Service) Submit(ctx context.Context, id uuid.UUID, questionID string, value interface{}) (*flow.Result, error) {
	rec, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusActive {
		return nil, ErrSessionNotActive
	}

	fs, err := s.rehydrate(ctx, rec)
	if err != nil {
		return nil, err
	}

	res, err := fs.ProcessResponse(questionID, value)
	if err != nil {
		return nil, err
	}

	answered := res.ValidationError == "" &&
		questionID != flow.InitSentinel && questionID != flow.ContinueSentinel
	if answered {
		if err := s.appendResponse(ctx, rec.ID, fs, questionID, value); err != nil {
			return nil, err
		}
	}

	if err := s.persistState(ctx, rec, fs, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Current re-presents the session's position without advancing it, used when
// a client reconnects. Completed sessions get their stored completion back.
func (s *Service) Current(ctx context.Context, id uuid.UUID) (*flow.Result, error) {
	rec, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch rec.Status {
	case StatusCompleted:
		comp, err := s.completionOf(rec)
		if err != nil {
			return nil, err
		}
		return &flow.Result{Type: flow.ResultComplete, Progress: 100, Results: comp}, nil
	case StatusAbandoned:
		return nil, ErrSessionNotActive
	}

	fs, err := s.rehydrate(ctx, rec)
	if err != nil {
		return nil, err
	}
	return fs.Current()
}

// Get returns the session summary record.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*IntakeSession, error) {
	return s.sessions.GetByID(ctx, id)
}

// Result returns the completion payload of a finished session.
func (s *Service) Result(ctx context.Context, id uuid.UUID) (*flow.Completion, error) {
	rec, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusCompleted {
		return nil, ErrNotCompleted
	}
	return s.completionOf(rec)
}

// Abandon marks an active session abandoned and drops its cached snapshot.
// The response log is kept for audit.
func (s *Service) Abandon(ctx context.Context, id uuid.UUID) (*IntakeSession, error) {
	rec, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusActive {
		return nil, ErrSessionNotActive
	}
	rec.Status = StatusAbandoned
	if err := s.sessions.Update(ctx, rec); err != nil {
		return nil, err
	}
	s.dropSnapshot(ctx, rec.ID)
	s.logger.Info().Str("session_id", rec.ID.String()).Msg("intake session abandoned")
	return rec, nil
}

// List returns session summaries, optionally filtered by patient or status.
// The patient filter takes precedence when both are given.
func (s *Service) List(ctx context.Context, patientRef, status string, limit, offset int) ([]*IntakeSession, int, error) {
	switch {
	case patientRef != "":
		return s.sessions.ListByPatient(ctx, patientRef, limit, offset)
	case status != "":
		return s.sessions.ListByStatus(ctx, status, limit, offset)
	default:
		return s.sessions.List(ctx, limit, offset)
	}
}

// rehydrate rebuilds the engine for a session, preferring the cached snapshot
// and falling back to replaying the response log.
func (s *Service) rehydrate(ctx context.Context, rec *IntakeSession) (*flow.Session, error) {
	if s.cache != nil {
		snap, err := s.cache.Get(ctx, rec.ID.String())
		if err != nil {
			s.logger.Warn().Err(err).Str("session_id", rec.ID.String()).
				Msg("snapshot cache read failed, replaying log")
		} else if snap != nil {
			fs, err := flow.RestoreSession(s.bank, s.cfg, snap, s.flowOpts...)
			if err == nil {
				return fs, nil
			}
			s.logger.Warn().Err(err).Str("session_id", rec.ID.String()).
				Msg("cached snapshot unusable, replaying log")
		}
	}

	rows, err := s.responses.ListBySession(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("load response log: %w", err)
	}
	entries := make([]flow.ReplayEntry, 0, len(rows))
	for _, row := range rows {
		var v interface{}
		if err := json.Unmarshal(row.Value, &v); err != nil {
			return nil, fmt.Errorf("decode response %d: %w", row.Seq, err)
		}
		entries = append(entries, flow.ReplayEntry{
			QuestionID:  row.QuestionID,
			Value:       v,
			PresentedAt: row.PresentedAt,
			RespondedAt: row.RespondedAt,
		})
	}
	fs, _, err := flow.Replay(s.bank, s.cfg, entries, s.flowOpts...)
	if err != nil {
		return nil, fmt.Errorf("replay session %s: %w", rec.ID, err)
	}
	return fs, nil
}

// appendResponse writes the accepted turn to the log with the engine's
// recorded timing for that question.
func (s *Service) appendResponse(ctx context.Context, sessionID uuid.UUID, fs *flow.Session, questionID string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode answer: %w", err)
	}
	var presented, responded time.Time
	for _, r := range fs.Snapshot().Responses {
		if r.QuestionID == questionID {
			presented, responded = r.PresentedAt, r.RespondedAt
			break
		}
	}
	return s.responses.Append(ctx, &IntakeResponse{
		SessionID:   sessionID,
		QuestionID:  questionID,
		Value:       raw,
		PresentedAt: presented,
		RespondedAt: responded,
	})
}

// persistState syncs the summary row and the snapshot cache with the engine
// after a turn.
func (s *Service) persistState(ctx context.Context, rec *IntakeSession, fs *flow.Session, res *flow.Result) error {
	rec.Progress = res.Progress
	rec.FraudScore = fs.FraudScore()
	if res.CurrentDomain != "" {
		rec.CurrentDomain = res.CurrentDomain
	}

	if res.Type == flow.ResultComplete {
		now := time.Now()
		rec.Status = StatusCompleted
		rec.CompletedAt = &now
		level := res.Results.RiskLevel
		total := res.Results.TotalRiskScore
		rec.RiskLevel = &level
		rec.RiskScore = &total
		results, err := json.Marshal(res.Results)
		if err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
		rec.Results = results
		s.dropSnapshot(ctx, rec.ID)
		s.logger.Info().Str("session_id", rec.ID.String()).Str("risk_level", level).
			Float64("fraud_score", rec.FraudScore).Msg("intake session completed")
	} else {
		s.cacheSnapshot(ctx, rec.ID, fs)
	}

	if err := s.sessions.Update(ctx, rec); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func (s *Service) completionOf(rec *IntakeSession) (*flow.Completion, error) {
	if len(rec.Results) == 0 {
		return nil, fmt.Errorf("session %s marked completed but has no results", rec.ID)
	}
	var comp flow.Completion
	if err := json.Unmarshal(rec.Results, &comp); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return &comp, nil
}

// Cache failures are logged and tolerated; the response log can always
// rebuild the session.
func (s *Service) cacheSnapshot(ctx context.Context, id uuid.UUID, fs *flow.Session) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, id.String(), fs.Snapshot()); err != nil {
		s.logger.Warn().Err(err).Str("session_id", id.String()).Msg("snapshot cache write failed")
	}
}

func (s *Service) dropSnapshot(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, id.String()); err != nil {
		s.logger.Warn().Err(err).Str("session_id", id.String()).Msg("snapshot cache delete failed")
	}
}
