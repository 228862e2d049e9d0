package flow

import "errors"

var (
	// ErrUnknownQuestion is returned when a caller submits an answer for a
	// question id that is not in the bank. This is an integration bug in the
	// caller, not a user input problem, and must not be retried blindly.
	ErrUnknownQuestion = errors.New("unknown question id")

	// ErrNotPresented is returned when the submitted question was never
	// presented in this session and is not a correction of a prior answer.
	ErrNotPresented = errors.New("question was not presented")

	// ErrNotStarted is returned for any submission before the init turn.
	ErrNotStarted = errors.New("session not started")

	// ErrAlreadyStarted is returned for a second init turn.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrSessionComplete is returned for submissions after completion.
	ErrSessionComplete = errors.New("session already complete")

	// ErrFlowStuck signals a branching defect: no next question and no next
	// domain even though applicable domains remain unvisited. It is never
	// mapped to a completion result.
	ErrFlowStuck = errors.New("flow produced no next step with domains remaining")
)
