package flow

import (
	"fmt"
	"time"
)

// SnapshotResponse is one recorded answer with its timing, in submission
// order.
type SnapshotResponse struct {
	QuestionID  string      `json:"question_id"`
	Value       interface{} `json:"value"`
	PresentedAt time.Time   `json:"presented_at"`
	RespondedAt time.Time   `json:"responded_at"`
}

// Snapshot is the serializable form of a session. Persisting it and
// restoring it, or replaying the same response sequence from scratch,
// reproduces identical engine state.
type Snapshot struct {
	Started           bool               `json:"started"`
	Complete          bool               `json:"complete"`
	CurrentDomain     string             `json:"current_domain"`
	CurrentQuestion   string             `json:"current_question"`
	PendingTransition bool               `json:"pending_transition"`
	EmergencyEntered  bool               `json:"emergency_entered"`
	Responses         []SnapshotResponse `json:"responses"`
	CompletedDomains  []string           `json:"completed_domains"`
	Unlocked          []string           `json:"unlocked"`
	FraudScore        float64            `json:"fraud_score"`
}

// Snapshot captures the session state for persistence.
func (s *Session) Snapshot() *Snapshot {
	snap := &Snapshot{
		Started:           s.started,
		Complete:          s.complete,
		CurrentDomain:     s.currentDomain,
		CurrentQuestion:   s.currentQuestion,
		PendingTransition: s.pendingTransition,
		EmergencyEntered:  s.emergencyEntered,
		CompletedDomains:  append([]string(nil), s.completedDomains...),
		FraudScore:        s.fraudHighWater,
	}
	for _, id := range s.order {
		t := s.timing[id]
		snap.Responses = append(snap.Responses, SnapshotResponse{
			QuestionID:  id,
			Value:       s.responses[id],
			PresentedAt: t.PresentedAt,
			RespondedAt: t.RespondedAt,
		})
	}
	for _, d := range s.bank.Domains() {
		if s.unlocked[d.ID] {
			snap.Unlocked = append(snap.Unlocked, d.ID)
		}
	}
	return snap
}

// RestoreSession rebuilds a session from a snapshot against the same bank
// and configuration it was created with. Answer values are re-normalized so
// a snapshot that went through JSON round-trips restores cleanly.
func RestoreSession(bank *Bank, cfg Config, snap *Snapshot, opts ...SessionOption) (*Session, error) {
	s := NewSession(bank, cfg, opts...)
	s.started = snap.Started
	s.complete = snap.Complete
	s.currentDomain = snap.CurrentDomain
	s.currentQuestion = snap.CurrentQuestion
	s.pendingTransition = snap.PendingTransition
	s.emergencyEntered = snap.EmergencyEntered
	s.completedDomains = append([]string(nil), snap.CompletedDomains...)
	s.fraudHighWater = snap.FraudScore

	for _, d := range snap.Unlocked {
		if bank.DomainByID(d) == nil {
			return nil, fmt.Errorf("snapshot references unknown domain %q", d)
		}
		s.unlocked[d] = true
	}
	for _, r := range snap.Responses {
		q := bank.Question(r.QuestionID)
		if q == nil {
			return nil, fmt.Errorf("snapshot references unknown question %q", r.QuestionID)
		}
		normalized, msg := normalizeAnswer(q, r.Value)
		if msg != "" {
			return nil, fmt.Errorf("snapshot answer for %q is invalid: %s", r.QuestionID, msg)
		}
		s.responses[r.QuestionID] = normalized
		s.order = append(s.order, r.QuestionID)
		s.timing[r.QuestionID] = ResponseTiming{PresentedAt: r.PresentedAt, RespondedAt: r.RespondedAt}
	}

	if snap.Complete {
		score := ScoreRisk(bank, cfg, s.responses)
		s.final = &Completion{
			TotalRiskScore:   score.Total,
			RiskLevel:        score.Level,
			DomainScores:     score.ByDomain,
			Recommendations:  BuildRecommendations(cfg, score),
			NextSteps:        BuildNextSteps(score, s.emergencyEntered),
			CompletedDomains: append([]string(nil), s.completedDomains...),
			FraudScore:       s.fraudHighWater,
		}
	}
	return s, nil
}

// ReplayEntry is one persisted turn of the response log.
type ReplayEntry struct {
	QuestionID  string
	Value       interface{}
	PresentedAt time.Time
	RespondedAt time.Time
}

// Replay reconstructs a session by feeding the persisted response log
// through the engine in original order, acknowledging domain transitions as
// it goes. The engine clock is driven from the recorded timestamps so the
// speed heuristic sees the original intervals, not replay speed. The final
// result of the replayed flow is returned alongside the session.
func Replay(bank *Bank, cfg Config, entries []ReplayEntry, opts ...SessionOption) (*Session, *Result, error) {
	cursor := time.Now()
	if len(entries) > 0 && !entries[0].PresentedAt.IsZero() {
		cursor = entries[0].PresentedAt
	}
	opts = append(opts, WithClock(func() time.Time { return cursor }))

	s := NewSession(bank, cfg, opts...)
	res, err := s.ProcessResponse(InitSentinel, true)
	if err != nil {
		return nil, nil, fmt.Errorf("replay init: %w", err)
	}

	for _, e := range entries {
		if res.Type == ResultDomainTransition {
			if res, err = s.ProcessResponse(ContinueSentinel, true); err != nil {
				return nil, nil, fmt.Errorf("replay continue: %w", err)
			}
		}
		if !e.RespondedAt.IsZero() {
			cursor = e.RespondedAt
		}
		res, err = s.ProcessResponse(e.QuestionID, e.Value)
		if err != nil {
			return nil, nil, fmt.Errorf("replay %q: %w", e.QuestionID, err)
		}
		if res.ValidationError != "" {
			return nil, nil, fmt.Errorf("replay %q diverged: %s", e.QuestionID, res.ValidationError)
		}
	}

	// Transition acknowledgments are not part of the log; a trailing one is
	// acknowledged here so the replay lands on the next question.
	if res.Type == ResultDomainTransition {
		if res, err = s.ProcessResponse(ContinueSentinel, true); err != nil {
			return nil, nil, fmt.Errorf("replay continue: %w", err)
		}
	}

	// The log carries the authoritative timestamps; the replay clock does
	// not. Restore them and recompute the fraud score over the real timing.
	for _, e := range entries {
		s.timing[e.QuestionID] = ResponseTiming{PresentedAt: e.PresentedAt, RespondedAt: e.RespondedAt}
	}
	if f := EvaluateFraud(bank, cfg, s.responses, s.timing); f > s.fraudHighWater {
		s.fraudHighWater = f
	}
	if s.final != nil {
		s.final.FraudScore = s.fraudHighWater
	}
	return s, res, nil
}
