package flow

// Responses is the accumulated answer set, keyed by question id. Values are
// normalized by validation: bool, float64, string, or []string.
type Responses map[string]interface{}

func (r Responses) number(id string) (float64, bool) {
	v, ok := r[id].(float64)
	return v, ok
}

func (r Responses) boolean(id string) (bool, bool) {
	v, ok := r[id].(bool)
	return v, ok
}

func (r Responses) text(id string) (string, bool) {
	v, ok := r[id].(string)
	return v, ok
}

func (r Responses) selections(id string) ([]string, bool) {
	v, ok := r[id].([]string)
	return v, ok
}

// Effect is what a matched rule does: unlock a domain for later ordering, or
// route the flow to a domain immediately, out of order.
type Effect struct {
	Unlock  string
	RouteTo string
}

// Rule is one entry of the ordered branching table. Rules are evaluated top
// to bottom every turn; all matching effects apply, and the first RouteTo
// wins for the turn.
type Rule struct {
	Name string
	When func(r Responses, cfg Config) bool
	Effect
}

// defaultRules is the branching table of the default bank. Order is part of
// the contract: the emergency override precedes every unlock rule.
func defaultRules() []Rule {
	return []Rule{
		{
			Name: "emergency-override",
			When: func(r Responses, _ Config) bool {
				sel, ok := r.selections("emergency_check")
				if !ok {
					return false
				}
				for _, v := range sel {
					if v != "none" {
						return true
					}
				}
				return false
			},
			Effect: Effect{Unlock: DomainEmergency, RouteTo: DomainEmergency},
		},
		{
			Name: "high-pain-unlock",
			When: func(r Responses, cfg Config) bool {
				v, ok := r.number("pain_severity")
				return ok && v > cfg.PainThreshold
			},
			Effect: Effect{Unlock: DomainPainManagement},
		},
		{
			Name: "depression-indicator-unlock",
			When: func(r Responses, cfg Config) bool {
				v, ok := r.number("mood_interest")
				return ok && v > cfg.MoodThreshold
			},
			Effect: Effect{Unlock: DomainMentalHealth},
		},
		{
			Name: "chronic-conditions-unlock",
			When: func(r Responses, _ Config) bool {
				v, ok := r.boolean("chronic_conditions_flag")
				return ok && v
			},
			Effect: Effect{Unlock: DomainChronicDisease},
		},
	}
}

// conditionMet evaluates a question's gating predicate against the answers.
func conditionMet(c *Condition, r Responses) bool {
	if c == nil {
		return true
	}
	v, ok := r[c.QuestionID]
	if !ok {
		return false
	}
	return answersEqual(v, c.Equals)
}

// answersEqual compares a normalized answer with an expected literal.
func answersEqual(answer, expected interface{}) bool {
	switch e := expected.(type) {
	case bool:
		a, ok := answer.(bool)
		return ok && a == e
	case string:
		a, ok := answer.(string)
		return ok && a == e
	case float64:
		a, ok := answer.(float64)
		return ok && a == e
	case int:
		a, ok := answer.(float64)
		return ok && a == float64(e)
	default:
		return false
	}
}
