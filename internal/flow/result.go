package flow

// ResultType tags the variant of a flow turn result.
type ResultType string

const (
	ResultQuestion         ResultType = "question"
	ResultDomainTransition ResultType = "domain_transition"
	ResultComplete         ResultType = "complete"
)

// DomainInfo identifies the domain announced by a transition result.
type DomainInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Completion is the payload of the final result of a session.
type Completion struct {
	TotalRiskScore   float64            `json:"total_risk_score"`
	RiskLevel        string             `json:"risk_level"`
	DomainScores     map[string]float64 `json:"domain_scores"`
	Recommendations  []string           `json:"recommendations"`
	NextSteps        []string           `json:"next_steps"`
	CompletedDomains []string           `json:"completed_domains"`
	FraudScore       float64            `json:"fraud_detection_score"`
}

// Result is the sole contract between the engine and its caller: one tagged
// variant per turn. Question results may carry a ValidationError, in which
// case the same question is re-presented and no state was mutated.
type Result struct {
	Type                      ResultType  `json:"type"`
	Question                  *Question   `json:"question,omitempty"`
	ValidationError           string      `json:"validation_error,omitempty"`
	Domain                    *DomainInfo `json:"domain,omitempty"`
	Message                   string      `json:"message,omitempty"`
	CurrentDomain             string      `json:"current_domain,omitempty"`
	Progress                  float64     `json:"progress"`
	EstimatedSecondsRemaining int         `json:"estimated_seconds_remaining"`
	Results                   *Completion `json:"results,omitempty"`
}
