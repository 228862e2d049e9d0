package flow

import (
	"encoding/json"
	"reflect"
	"testing"
)

// finish drives an in-progress session to completion with scripted answers.
func finish(t *testing.T, s *Session, res *Result, answers map[string]interface{}) *Result {
	t.Helper()
	var err error
	for i := 0; i < 200; i++ {
		switch res.Type {
		case ResultComplete:
			return res
		case ResultDomainTransition:
			res, err = s.ProcessResponse(ContinueSentinel, true)
		case ResultQuestion:
			v, ok := answers[res.Question.ID]
			if !ok {
				t.Fatalf("no scripted answer for %q", res.Question.ID)
			}
			res, err = s.ProcessResponse(res.Question.ID, v)
		}
		if err != nil {
			t.Fatalf("turn failed: %v", err)
		}
	}
	t.Fatal("flow did not complete")
	return nil
}

// entriesOf extracts the replay log from a session's recorded state.
func entriesOf(s *Session) []ReplayEntry {
	var out []ReplayEntry
	for _, id := range s.order {
		tm := s.timing[id]
		out = append(out, ReplayEntry{
			QuestionID:  id,
			Value:       s.responses[id],
			PresentedAt: tm.PresentedAt,
			RespondedAt: tm.RespondedAt,
		})
	}
	return out
}

func TestSnapshotRestoreMidFlow(t *testing.T) {
	answers := highRiskAnswers()
	original := newTestSession()
	stopped := driveUntil(t, original, answers, func(r *Result) bool {
		return r.Type == ResultQuestion && r.Question.ID == "current_medications"
	})

	// Round-trip the snapshot through JSON as a persistence layer would.
	raw, err := json.Marshal(original.Snapshot())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}

	restored, err := RestoreSession(DefaultBank(), DefaultConfig(), &snap, WithClock(testClock()))
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !reflect.DeepEqual(restored.Responses(), original.Responses()) {
		t.Error("restored responses differ from the original")
	}

	// Both sessions finish with the same remaining answers and must agree on
	// everything in the completion payload.
	a := finish(t, original, stopped, answers)
	b := finish(t, restored, stopped, answers)
	if !reflect.DeepEqual(a.Results, b.Results) {
		t.Errorf("original and restored completions diverged:\n%+v\n%+v", a.Results, b.Results)
	}
}

func TestRestoreCompletedSessionRebuildsCompletion(t *testing.T) {
	original := newTestSession()
	want := drive(t, original, highRiskAnswers()).Results

	restored, err := RestoreSession(DefaultBank(), DefaultConfig(), original.Snapshot())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !restored.Completed() {
		t.Fatal("expected restored session to be complete")
	}
	if !reflect.DeepEqual(restored.Completion(), want) {
		t.Errorf("rebuilt completion differs:\n%+v\n%+v", restored.Completion(), want)
	}
}

func TestRestoreRejectsUnknownQuestion(t *testing.T) {
	snap := &Snapshot{
		Started:   true,
		Responses: []SnapshotResponse{{QuestionID: "retired_question", Value: float64(1)}},
	}
	if _, err := RestoreSession(DefaultBank(), DefaultConfig(), snap); err == nil {
		t.Error("expected restore to fail on an unknown question id")
	}
}

func TestReplayReproducesCompletion(t *testing.T) {
	original := newTestSession()
	want := drive(t, original, highRiskAnswers()).Results

	replayed, res, err := Replay(DefaultBank(), DefaultConfig(), entriesOf(original))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.Type != ResultComplete {
		t.Fatalf("expected replay to reach completion, got %s", res.Type)
	}
	if !reflect.DeepEqual(res.Results, want) {
		t.Errorf("replayed completion diverged:\n%+v\n%+v", res.Results, want)
	}
	if replayed.FraudScore() != original.FraudScore() {
		t.Errorf("replayed fraud %g differs from original %g", replayed.FraudScore(), original.FraudScore())
	}
}

func TestReplayDoesNotPenalizeReplaySpeed(t *testing.T) {
	// The original session answered at a human pace; replay happens
	// instantly. The speed heuristic must see the recorded intervals.
	original := newTestSession()
	drive(t, original, healthyAnswers())
	if original.FraudScore() != 0 {
		t.Fatalf("expected clean original session, got fraud %g", original.FraudScore())
	}

	replayed, _, err := Replay(DefaultBank(), DefaultConfig(), entriesOf(original))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replayed.FraudScore() != 0 {
		t.Errorf("replay inflated the fraud score to %g", replayed.FraudScore())
	}
}

func TestReplayMidFlowResumesAtSameQuestion(t *testing.T) {
	original := newTestSession()
	stopped := driveUntil(t, original, highRiskAnswers(), func(r *Result) bool {
		return r.Type == ResultQuestion && r.Question.ID == "mood_down"
	})

	_, res, err := Replay(DefaultBank(), DefaultConfig(), entriesOf(original))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.Type != ResultQuestion || res.Question.ID != stopped.Question.ID {
		t.Errorf("replay resumed at %+v, original was at %q", res.Question, stopped.Question.ID)
	}
}

func TestReplayFailsOnDivergentLog(t *testing.T) {
	entries := []ReplayEntry{{QuestionID: "age", Value: float64(999)}}
	if _, _, err := Replay(DefaultBank(), DefaultConfig(), entries); err == nil {
		t.Error("expected replay to fail on a value the bank rejects")
	}
}
