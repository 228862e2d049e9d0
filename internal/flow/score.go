package flow

import "sort"

// Risk levels derived from the total score.
const (
	LevelLow      = "low"
	LevelModerate = "moderate"
	LevelHigh     = "high"
)

// RiskScore is the output of one full scoring pass.
type RiskScore struct {
	Total    float64            `json:"total"`
	ByDomain map[string]float64 `json:"by_domain"`
	Level    string             `json:"level"`
}

// ScoreRisk computes the risk score as a pure function of the full response
// set. It is recomputed from scratch on every turn rather than incremented,
// so a corrected answer can never leave a stale contribution behind.
func ScoreRisk(b *Bank, cfg Config, r Responses) RiskScore {
	score := RiskScore{ByDomain: make(map[string]float64)}

	for id, value := range r {
		q := b.Question(id)
		if q == nil || q.RiskWeight == 0 {
			continue
		}
		sev := answerSeverity(q, value)
		if sev == 0 {
			continue
		}
		score.ByDomain[q.Domain] += q.RiskWeight * sev
	}
	for _, sub := range score.ByDomain {
		score.Total += sub
	}

	switch {
	case score.Total > cfg.RiskHighMin:
		score.Level = LevelHigh
	case score.Total >= cfg.RiskModerateMin:
		score.Level = LevelModerate
	default:
		score.Level = LevelLow
	}
	return score
}

// answerSeverity normalizes an answer to a severity factor. Booleans map to
// 0/1, scales and numbers to their position within the declared bounds, and
// multiselects to the count of risk-flagged options chosen.
func answerSeverity(q *Question, value interface{}) float64 {
	switch q.Type {
	case TypeBoolean:
		if v, ok := value.(bool); ok && v {
			return 1
		}
	case TypeScale, TypeNumber:
		v, ok := value.(float64)
		if !ok || q.Min == nil || q.Max == nil || *q.Max <= *q.Min {
			return 0
		}
		sev := (v - *q.Min) / (*q.Max - *q.Min)
		if sev < 0 {
			return 0
		}
		if sev > 1 {
			return 1
		}
		return sev
	case TypeSelect:
		v, ok := value.(string)
		if !ok {
			return 0
		}
		for _, o := range q.Options {
			if o.Value == v && o.RiskFlag {
				return 1
			}
		}
	case TypeMultiSelect:
		sel, ok := value.([]string)
		if !ok {
			return 0
		}
		flagged := make(map[string]bool)
		for _, o := range q.Options {
			if o.RiskFlag {
				flagged[o.Value] = true
			}
		}
		count := 0.0
		for _, v := range sel {
			if flagged[v] {
				count++
			}
		}
		return count
	}
	return 0
}

// recommendationTexts maps domain id to (moderate, severe) advice wording.
var recommendationTexts = map[string][2]string{
	DomainTriage: {
		"Schedule a general consultation to review your initial assessment.",
		"Your initial assessment indicates elevated risk; book a consultation this week.",
	},
	DomainEmergency: {
		"Your symptoms warrant prompt medical evaluation.",
		"Seek emergency care immediately for the symptoms you reported.",
	},
	DomainPainManagement: {
		"Discuss a pain management plan with your physician.",
		"Your pain level suggests you need a pain specialist referral.",
	},
	DomainMentalHealth: {
		"Consider a conversation with a mental health professional.",
		"Your screening suggests you would benefit from mental health support soon.",
	},
	DomainChronicDisease: {
		"Keep your chronic condition follow-ups up to date.",
		"Your chronic condition profile needs an updated care plan.",
	},
	DomainLifestyle: {
		"Small lifestyle adjustments could lower your health risk.",
		"Your lifestyle answers indicate significant modifiable risk; ask about a prevention program.",
	},
	DomainFamilyHistory: {
		"Mention your family history at your next appointment.",
		"Your family history justifies earlier preventive screening.",
	},
}

// BuildRecommendations emits one fixed string per domain whose subtotal
// exceeds the concern threshold. A fully healthy profile yields none.
func BuildRecommendations(cfg Config, score RiskScore) []string {
	recs := []string{}
	for _, d := range domainOrder(score) {
		sub := score.ByDomain[d]
		if sub <= cfg.DomainConcernThreshold {
			continue
		}
		texts, ok := recommendationTexts[d]
		if !ok {
			continue
		}
		if sub > cfg.DomainSevereThreshold {
			recs = append(recs, texts[1])
		} else {
			recs = append(recs, texts[0])
		}
	}
	return recs
}

// BuildNextSteps derives the post-completion action list. At least one entry
// is flagged urgent when the session requires immediate attention.
func BuildNextSteps(score RiskScore, emergencyEntered bool) []string {
	if emergencyEntered {
		return []string{
			"URGENT: contact emergency services or visit the nearest emergency department.",
			"Share your assessment results with the attending clinician.",
		}
	}
	switch score.Level {
	case LevelHigh:
		return []string{
			"URGENT: schedule a physician appointment within the next few days.",
			"Prepare a list of your current symptoms and medications for the visit.",
		}
	case LevelModerate:
		return []string{
			"Schedule a consultation within the next two weeks.",
			"Review the recommendations above before your appointment.",
		}
	default:
		return []string{"Maintain your current healthy habits and complete your annual checkup."}
	}
}

// domainOrder returns the scored domains in stable canonical order so that
// recommendation output is deterministic.
func domainOrder(score RiskScore) []string {
	canonical := []string{
		DomainTriage, DomainEmergency, DomainPainManagement, DomainMentalHealth,
		DomainChronicDisease, DomainLifestyle, DomainFamilyHistory,
	}
	out := make([]string, 0, len(score.ByDomain))
	seen := make(map[string]bool)
	for _, d := range canonical {
		if _, ok := score.ByDomain[d]; ok {
			out = append(out, d)
			seen[d] = true
		}
	}
	var extra []string
	for d := range score.ByDomain {
		if !seen[d] {
			extra = append(extra, d)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
