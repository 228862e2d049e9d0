package flow

import "time"

// ResponseTiming records when a question was shown and when its answer
// arrived, used by the response-speed heuristic.
type ResponseTiming struct {
	PresentedAt time.Time `json:"presented_at"`
	RespondedAt time.Time `json:"responded_at"`
}

// EvaluateFraud computes the consistency score as a pure function of the
// accumulated responses and their timing. Penalties only ever add, so the
// value grows monotonically as a session accumulates responses; the session
// additionally keeps a high-water mark so corrections cannot lower it.
func EvaluateFraud(b *Bank, cfg Config, r Responses, timing map[string]ResponseTiming) float64 {
	score := 0.0

	// Logically dependent answer pairs.
	for _, p := range b.Pairs() {
		a, okA := r[p.QuestionA]
		bv, okB := r[p.QuestionB]
		if okA && okB && answersEqual(a, p.ValueA) && answersEqual(bv, p.ValueB) {
			score += cfg.PairPenalty
		}
	}

	// Demographic implausibility: a young respondent reporting a pile of
	// chronic diagnoses.
	if age, ok := r.number("age"); ok && age <= cfg.YoungAgeMax {
		if countFlaggedConditions(b, r) >= cfg.ImplausibleConditionCount {
			score += cfg.DemographicPenalty
		}
	}

	// Implausibly fast answers.
	for id := range r {
		t, ok := timing[id]
		if !ok || t.PresentedAt.IsZero() || t.RespondedAt.IsZero() {
			continue
		}
		if d := t.RespondedAt.Sub(t.PresentedAt); d >= 0 && d < cfg.MinResponseTime {
			score += cfg.SpeedPenalty
		}
	}

	return score
}

// countFlaggedConditions counts risk-flagged selections across the chronic
// disease domain's multiselect questions.
func countFlaggedConditions(b *Bank, r Responses) int {
	count := 0
	for _, q := range b.QuestionsIn(DomainChronicDisease) {
		if q.Type != TypeMultiSelect {
			continue
		}
		sel, ok := r.selections(q.ID)
		if !ok {
			continue
		}
		flagged := make(map[string]bool)
		for _, o := range q.Options {
			if o.RiskFlag {
				flagged[o.Value] = true
			}
		}
		for _, v := range sel {
			if flagged[v] {
				count++
			}
		}
	}
	return count
}
