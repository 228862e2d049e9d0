package flow

import "time"

// Config collects every tunable threshold of the flow engine. The numbers
// are calibration constants, not medical invariants; callers can override
// any of them before constructing a session.
type Config struct {
	// Risk bucketing over the total score.
	RiskModerateMin float64 // total >= RiskModerateMin -> at least moderate
	RiskHighMin     float64 // total > RiskHighMin -> high

	// DomainConcernThreshold is the per-domain subtotal above which a
	// recommendation is emitted. DomainSevereThreshold selects the stronger
	// recommendation wording.
	DomainConcernThreshold float64
	DomainSevereThreshold  float64

	// Branching thresholds.
	PainThreshold       float64 // pain_severity above this unlocks pain management
	MoodThreshold       float64 // mood_interest above this unlocks mental health
	FamilyHistoryMinAge float64 // family history applies at or above this age

	// Fraud heuristics.
	PairPenalty               float64       // per inconsistent validation pair
	DemographicPenalty        float64       // young age with many chronic conditions
	SpeedPenalty              float64       // per implausibly fast answer
	MinResponseTime           time.Duration // answers faster than this are suspect
	YoungAgeMax               float64       // "low age" bound for the demographic rule
	ImplausibleConditionCount int           // chronic condition count triggering it

	// Progress estimation.
	AvgSecondsPerQuestion float64
}

// DefaultConfig returns the calibration used by the default question bank.
func DefaultConfig() Config {
	return Config{
		RiskModerateMin:           10,
		RiskHighMin:               15,
		DomainConcernThreshold:    3,
		DomainSevereThreshold:     8,
		PainThreshold:             7,
		MoodThreshold:             2,
		FamilyHistoryMinAge:       40,
		PairPenalty:               25,
		DemographicPenalty:        15,
		SpeedPenalty:              2,
		MinResponseTime:           800 * time.Millisecond,
		YoungAgeMax:               30,
		ImplausibleConditionCount: 3,
		AvgSecondsPerQuestion:     30,
	}
}
