package flow

import "math"

// Estimate is the caller-facing progress indication for one turn.
type Estimate struct {
	Progress         float64 `json:"progress"`
	SecondsRemaining int     `json:"seconds_remaining"`
}

// EstimateProgress derives progress from answered questions over the total
// expected for the currently applicable domains. The denominator is
// recomputed every turn: unlocking a domain mid-flow grows it, which can
// make both progress and the time estimate step backwards. That is expected,
// not a defect.
func EstimateProgress(b *Bank, cfg Config, r Responses, applicable []string, complete bool) Estimate {
	if complete {
		return Estimate{Progress: 100}
	}

	expected := 0
	answered := 0
	for _, domainID := range applicable {
		for _, q := range b.QuestionsIn(domainID) {
			if !conditionMet(q.DependsOn, r) {
				continue
			}
			expected++
			if _, ok := r[q.ID]; ok {
				answered++
			}
		}
	}
	if expected == 0 {
		return Estimate{}
	}

	progress := float64(answered) / float64(expected) * 100
	progress = math.Max(0, math.Min(100, progress))

	remaining := expected - answered
	if remaining < 0 {
		remaining = 0
	}
	return Estimate{
		Progress:         progress,
		SecondsRemaining: int(float64(remaining) * cfg.AvgSecondsPerQuestion),
	}
}
