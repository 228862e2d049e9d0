package flow

import (
	"fmt"
	"sort"
)

// Bank holds the static question definitions for one questionnaire. It is
// built once at startup and shared read-only by every session.
type Bank struct {
	domains   []Domain
	questions map[string]*Question
	byDomain  map[string][]*Question
	pairs     []ValidationPair
}

// NewBank validates and indexes a set of definitions. Questions keep their
// declared order within each domain.
func NewBank(domains []Domain, questions []Question, pairs []ValidationPair) (*Bank, error) {
	b := &Bank{
		questions: make(map[string]*Question, len(questions)),
		byDomain:  make(map[string][]*Question),
		pairs:     pairs,
	}

	domainIDs := make(map[string]bool, len(domains))
	for _, d := range domains {
		if domainIDs[d.ID] {
			return nil, fmt.Errorf("duplicate domain id %q", d.ID)
		}
		domainIDs[d.ID] = true
		b.domains = append(b.domains, d)
	}
	sort.SliceStable(b.domains, func(i, j int) bool { return b.domains[i].Order < b.domains[j].Order })

	for i := range questions {
		q := questions[i]
		if _, dup := b.questions[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		if !domainIDs[q.Domain] {
			return nil, fmt.Errorf("question %q references unknown domain %q", q.ID, q.Domain)
		}
		if q.hasBounds() && (q.Min == nil || q.Max == nil) {
			return nil, fmt.Errorf("question %q of type %s needs min and max bounds", q.ID, q.Type)
		}
		if (q.Type == TypeSelect || q.Type == TypeMultiSelect) && len(q.Options) == 0 {
			return nil, fmt.Errorf("question %q of type %s needs options", q.ID, q.Type)
		}
		b.questions[q.ID] = &q
		b.byDomain[q.Domain] = append(b.byDomain[q.Domain], &q)
	}

	for _, q := range b.questions {
		if q.DependsOn != nil {
			if _, ok := b.questions[q.DependsOn.QuestionID]; !ok {
				return nil, fmt.Errorf("question %q depends on unknown question %q", q.ID, q.DependsOn.QuestionID)
			}
		}
	}
	for _, p := range pairs {
		if _, ok := b.questions[p.QuestionA]; !ok {
			return nil, fmt.Errorf("validation pair references unknown question %q", p.QuestionA)
		}
		if _, ok := b.questions[p.QuestionB]; !ok {
			return nil, fmt.Errorf("validation pair references unknown question %q", p.QuestionB)
		}
	}

	return b, nil
}

// Question returns the definition for id, or nil.
func (b *Bank) Question(id string) *Question { return b.questions[id] }

// Domains returns the domains in declared order.
func (b *Bank) Domains() []Domain { return b.domains }

// DomainByID returns the domain definition, or nil.
func (b *Bank) DomainByID(id string) *Domain {
	for i := range b.domains {
		if b.domains[i].ID == id {
			return &b.domains[i]
		}
	}
	return nil
}

// QuestionsIn returns the questions of a domain in declared order.
func (b *Bank) QuestionsIn(domainID string) []*Question { return b.byDomain[domainID] }

// Pairs returns the consistency pairs used by the fraud checker.
func (b *Bank) Pairs() []ValidationPair { return b.pairs }

func f(v float64) *float64 { return &v }

// Domain ids of the default bank.
const (
	DomainTriage         = "triage"
	DomainEmergency      = "emergency"
	DomainPainManagement = "pain_management"
	DomainMentalHealth   = "mental_health"
	DomainChronicDisease = "chronic_disease"
	DomainLifestyle      = "lifestyle"
	DomainFamilyHistory  = "family_history"
)

// DefaultBank builds the onboarding questionnaire: a triage domain that every
// session starts with, conditional clinical domains unlocked by triage
// answers, and lifestyle plus age-gated family history.
func DefaultBank() *Bank {
	domains := []Domain{
		{ID: DomainTriage, Name: "Initial Assessment", Order: 0, AlwaysApplicable: true},
		{ID: DomainEmergency, Name: "Emergency Evaluation", Order: 1},
		{ID: DomainPainManagement, Name: "Pain Management", Order: 2},
		{ID: DomainMentalHealth, Name: "Mental Health", Order: 3},
		{ID: DomainChronicDisease, Name: "Chronic Disease", Order: 4},
		{ID: DomainLifestyle, Name: "Lifestyle", Order: 5, AlwaysApplicable: true},
		{ID: DomainFamilyHistory, Name: "Family History", Order: 6},
	}

	questions := []Question{
		// Triage
		{ID: "age", Text: "What is your age?", Type: TypeNumber, Domain: DomainTriage,
			RiskWeight: 4, Min: f(0), Max: f(120), Required: true},
		{ID: "biological_sex", Text: "What is your biological sex?", Type: TypeSelect, Domain: DomainTriage,
			Required: true, Options: []Option{
				{Value: "male", Label: "Male"},
				{Value: "female", Label: "Female"},
				{Value: "other", Label: "Other"},
				{Value: "prefer_not_to_say", Label: "Prefer not to say"},
			}},
		{ID: "emergency_check", Text: "Are you currently experiencing any of the following?", Type: TypeMultiSelect,
			Domain: DomainTriage, RiskWeight: 10, Required: true, Options: []Option{
				{Value: "chest_pain", Label: "Chest pain", RiskFlag: true},
				{Value: "difficulty_breathing", Label: "Difficulty breathing", RiskFlag: true},
				{Value: "severe_bleeding", Label: "Severe bleeding", RiskFlag: true},
				{Value: "loss_of_consciousness", Label: "Loss of consciousness", RiskFlag: true},
				{Value: "none", Label: "None of these"},
			}},
		{ID: "pain_severity", Text: "How would you rate your pain right now?", Type: TypeScale,
			Domain: DomainTriage, RiskWeight: 5, Min: f(0), Max: f(10), Required: true},
		{ID: "mood_interest", Text: "Over the last two weeks, how often have you had little interest or pleasure in doing things?",
			Type: TypeScale, Domain: DomainTriage, RiskWeight: 6, Min: f(0), Max: f(3), Required: true},
		{ID: "chronic_conditions_flag", Text: "Have you been diagnosed with any chronic condition?",
			Type: TypeBoolean, Domain: DomainTriage, RiskWeight: 4, Required: true},

		// Emergency
		{ID: "emergency_onset", Text: "When did these symptoms start?", Type: TypeSelect,
			Domain: DomainEmergency, RiskWeight: 5, Required: true, Options: []Option{
				{Value: "minutes", Label: "Within the last hour", RiskFlag: true},
				{Value: "hours", Label: "Earlier today", RiskFlag: true},
				{Value: "days", Label: "More than a day ago"},
			}},
		{ID: "emergency_worsening", Text: "Are the symptoms getting worse?", Type: TypeBoolean,
			Domain: DomainEmergency, RiskWeight: 5, Required: true},

		// Pain management
		{ID: "pain_location", Text: "Where is your pain located?", Type: TypeMultiSelect,
			Domain: DomainPainManagement, RiskWeight: 2, Required: true, Options: []Option{
				{Value: "head", Label: "Head"},
				{Value: "chest", Label: "Chest", RiskFlag: true},
				{Value: "abdomen", Label: "Abdomen", RiskFlag: true},
				{Value: "back", Label: "Back"},
				{Value: "joints", Label: "Joints"},
			}},
		{ID: "pain_duration", Text: "How long have you had this pain?", Type: TypeSelect,
			Domain: DomainPainManagement, RiskWeight: 2, Required: true, Options: []Option{
				{Value: "days", Label: "A few days"},
				{Value: "weeks", Label: "A few weeks"},
				{Value: "months", Label: "Several months", RiskFlag: true},
				{Value: "years", Label: "Years", RiskFlag: true},
			}},
		{ID: "pain_interferes", Text: "Does the pain interfere with your daily activities?",
			Type: TypeBoolean, Domain: DomainPainManagement, RiskWeight: 3, Required: true},

		// Mental health
		{ID: "mood_down", Text: "Over the last two weeks, how often have you felt down, depressed, or hopeless?",
			Type: TypeScale, Domain: DomainMentalHealth, RiskWeight: 4, Min: f(0), Max: f(3), Required: true},
		{ID: "sleep_trouble", Text: "How often do you have trouble falling or staying asleep?",
			Type: TypeScale, Domain: DomainMentalHealth, RiskWeight: 2, Min: f(0), Max: f(3), Required: true},
		{ID: "mh_support", Text: "Are you currently receiving mental health support?",
			Type: TypeBoolean, Domain: DomainMentalHealth, Required: true},

		// Chronic disease
		{ID: "conditions_list", Text: "Which conditions have you been diagnosed with?", Type: TypeMultiSelect,
			Domain: DomainChronicDisease, RiskWeight: 2, Required: true, Options: []Option{
				{Value: "diabetes", Label: "Diabetes", RiskFlag: true},
				{Value: "hypertension", Label: "Hypertension", RiskFlag: true},
				{Value: "asthma", Label: "Asthma", RiskFlag: true},
				{Value: "heart_disease", Label: "Heart disease", RiskFlag: true},
				{Value: "arthritis", Label: "Arthritis", RiskFlag: true},
			}},
		{ID: "current_medications", Text: "Are you currently taking any prescription medication?",
			Type: TypeBoolean, Domain: DomainChronicDisease, RiskWeight: 1, Required: true},
		{ID: "medication_list", Text: "Please list your current medications.", Type: TypeText,
			Domain: DomainChronicDisease, Required: true,
			DependsOn: &Condition{QuestionID: "current_medications", Equals: true}},
		{ID: "hospitalizations", Text: "How many times were you hospitalized in the last five years?",
			Type: TypeNumber, Domain: DomainChronicDisease, RiskWeight: 2, Min: f(0), Max: f(50), Required: true},

		// Lifestyle
		{ID: "smoking_status", Text: "Do you smoke?", Type: TypeSelect, Domain: DomainLifestyle,
			RiskWeight: 3, Required: true, Options: []Option{
				{Value: "never", Label: "Never smoked"},
				{Value: "former", Label: "Former smoker", RiskFlag: true},
				{Value: "current", Label: "Current smoker", RiskFlag: true},
			}},
		{ID: "smoking_cessation_accepted", Text: "In the past year, did you accept smoking cessation counseling from a clinician?",
			Type: TypeBoolean, Domain: DomainLifestyle, Required: true},
		{ID: "alcohol_frequency", Text: "On how many days per week do you drink alcohol?",
			Type: TypeScale, Domain: DomainLifestyle, RiskWeight: 2, Min: f(0), Max: f(7), Required: true},
		{ID: "exercise_days", Text: "On how many days per week do you exercise for 30 minutes or more?",
			Type: TypeScale, Domain: DomainLifestyle, Min: f(0), Max: f(7), Required: true},
		{ID: "sleep_hours", Text: "How many hours do you usually sleep per night?",
			Type: TypeNumber, Domain: DomainLifestyle, Min: f(0), Max: f(24), Required: true},

		// Family history
		{ID: "family_heart_disease", Text: "Has a close relative been diagnosed with heart disease?",
			Type: TypeBoolean, Domain: DomainFamilyHistory, RiskWeight: 3, Required: true},
		{ID: "family_cancer", Text: "Has a close relative been diagnosed with cancer?",
			Type: TypeBoolean, Domain: DomainFamilyHistory, RiskWeight: 3, Required: true},
		{ID: "family_diabetes", Text: "Has a close relative been diagnosed with diabetes?",
			Type: TypeBoolean, Domain: DomainFamilyHistory, RiskWeight: 2, Required: true},
	}

	pairs := []ValidationPair{
		{QuestionA: "smoking_status", ValueA: "never",
			QuestionB: "smoking_cessation_accepted", ValueB: true,
			Reason: "never-smoker accepted cessation counseling"},
		{QuestionA: "pain_severity", ValueA: float64(0),
			QuestionB: "pain_interferes", ValueB: true,
			Reason: "no pain reported but pain interferes with daily life"},
	}

	b, err := NewBank(domains, questions, pairs)
	if err != nil {
		// The default bank is static data; a failure here is a programming error.
		panic(err)
	}
	return b
}
