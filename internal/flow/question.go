package flow

// QuestionType enumerates the supported answer shapes.
type QuestionType string

const (
	TypeBoolean     QuestionType = "boolean"
	TypeScale       QuestionType = "scale"
	TypeNumber      QuestionType = "number"
	TypeSelect      QuestionType = "select"
	TypeMultiSelect QuestionType = "multiselect"
	TypeText        QuestionType = "text"
)

// Option is one selectable choice of a select/multiselect question.
// RiskFlag marks options that contribute to the risk score when chosen.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	RiskFlag bool   `json:"risk_flag,omitempty"`
}

// Condition gates a question on a previously recorded answer. The question
// is presented only when the referenced answer equals the expected value.
type Condition struct {
	QuestionID string      `json:"question_id"`
	Equals     interface{} `json:"equals"`
}

// Question is an immutable question definition. Instances are created once
// when the bank is built and never mutated afterwards.
type Question struct {
	ID         string       `json:"id"`
	Text       string       `json:"text"`
	Type       QuestionType `json:"type"`
	Domain     string       `json:"domain"`
	RiskWeight float64      `json:"risk_weight"`
	Min        *float64     `json:"min,omitempty"`
	Max        *float64     `json:"max,omitempty"`
	Options    []Option     `json:"options,omitempty"`
	Required   bool         `json:"required"`
	DependsOn  *Condition   `json:"depends_on,omitempty"`
}

// Domain is a named, ordered grouping of questions. Domains marked
// AlwaysApplicable are visited in every session; the rest are unlocked by
// branching rules (pain, mood, chronic flags) or entered via the emergency
// override.
type Domain struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Order            int    `json:"order"`
	AlwaysApplicable bool   `json:"always_applicable"`
}

// ValidationPair declares two answers that are logically inconsistent when
// they occur together, e.g. a never-smoker accepting cessation counseling.
type ValidationPair struct {
	QuestionA string      `json:"question_a"`
	ValueA    interface{} `json:"value_a"`
	QuestionB string      `json:"question_b"`
	ValueB    interface{} `json:"value_b"`
	Reason    string      `json:"reason"`
}

// hasBounds reports whether the question type carries numeric bounds.
func (q *Question) hasBounds() bool {
	return q.Type == TypeScale || q.Type == TypeNumber
}

// optionValues returns the set of valid option values for select types.
func (q *Question) optionValues() map[string]bool {
	vals := make(map[string]bool, len(q.Options))
	for _, o := range q.Options {
		vals[o.Value] = true
	}
	return vals
}
