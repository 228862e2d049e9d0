package flow

import (
	"fmt"
	"time"
)

// Sentinel "question ids" understood by ProcessResponse.
const (
	InitSentinel     = "_init"
	ContinueSentinel = "_continue"
)

// Session is one adaptive questionnaire run. It is single-caller state: the
// engine has no internal concurrency and must not be shared across
// goroutines without external serialization of turns.
type Session struct {
	bank  *Bank
	cfg   Config
	rules []Rule
	now   func() time.Time

	started           bool
	complete          bool
	currentDomain     string
	currentQuestion   string
	pendingTransition bool
	emergencyEntered  bool

	responses        Responses
	order            []string
	timing           map[string]ResponseTiming
	completedDomains []string
	unlocked         map[string]bool

	fraudHighWater float64
	final          *Completion
}

// SessionOption customizes a session at construction time.
type SessionOption func(*Session)

// WithClock injects the time source, used by replay and by tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithRules replaces the default branching table.
func WithRules(rules []Rule) SessionOption {
	return func(s *Session) { s.rules = rules }
}

// NewSession creates a fresh session over the given bank and configuration.
// The bank and config are explicit dependencies; the engine reads no global
// state.
func NewSession(bank *Bank, cfg Config, opts ...SessionOption) *Session {
	s := &Session{
		bank:      bank,
		cfg:       cfg,
		rules:     defaultRules(),
		now:       time.Now,
		responses: make(Responses),
		timing:    make(map[string]ResponseTiming),
		unlocked:  make(map[string]bool),
	}
	// Age-based unlocking lives in the rule table like every other unlock so
	// the whole branching order stays auditable in one place.
	s.rules = append(s.rules, Rule{
		Name: "family-history-age-unlock",
		When: func(r Responses, cfg Config) bool {
			age, ok := r.number("age")
			return ok && age >= cfg.FamilyHistoryMinAge
		},
		Effect: Effect{Unlock: DomainFamilyHistory},
	})
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessResponse advances the flow by one turn. The id is either a sentinel
// (_init to start, _continue to acknowledge a domain transition) or a
// question id with its answer value. Validation failures re-present the same
// question without mutating state; unknown ids and out-of-order submissions
// are returned as errors.
func (s *Session) ProcessResponse(id string, value interface{}) (*Result, error) {
	if s.complete {
		return nil, ErrSessionComplete
	}

	switch id {
	case InitSentinel:
		if s.started {
			return nil, ErrAlreadyStarted
		}
		s.started = true
		s.currentDomain = s.firstDomain()
		return s.presentNext()

	case ContinueSentinel:
		if !s.started {
			return nil, ErrNotStarted
		}
		s.pendingTransition = false
		return s.presentNext()
	}

	if !s.started {
		return nil, ErrNotStarted
	}

	q := s.bank.Question(id)
	if q == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownQuestion, id)
	}
	_, answered := s.responses[id]
	if id != s.currentQuestion && !answered {
		return nil, fmt.Errorf("%w: %q", ErrNotPresented, id)
	}

	normalized, msg := normalizeAnswer(q, value)
	if msg != "" {
		return s.rejectTurn(msg)
	}

	now := s.now()
	s.responses[id] = normalized
	if !answered {
		s.order = append(s.order, id)
	}
	t := s.timing[id]
	t.RespondedAt = now
	s.timing[id] = t

	// Fraud is recomputed from the full state each turn; the high-water mark
	// keeps the session-level score monotonic across corrections.
	if f := EvaluateFraud(s.bank, s.cfg, s.responses, s.timing); f > s.fraudHighWater {
		s.fraudHighWater = f
	}

	if id == s.currentQuestion {
		s.currentQuestion = ""
	}
	return s.presentNext()
}

// Current re-presents the session's position without advancing state, used
// when a client reconnects mid-flow.
func (s *Session) Current() (*Result, error) {
	if !s.started {
		return nil, ErrNotStarted
	}
	if s.complete {
		return &Result{Type: ResultComplete, Progress: 100, Results: s.final}, nil
	}
	if s.pendingTransition {
		return s.transitionResult(), nil
	}
	cur := s.bank.Question(s.currentQuestion)
	if cur == nil {
		return nil, fmt.Errorf("%w: no current question", ErrFlowStuck)
	}
	return s.questionResult(cur), nil
}

// rejectTurn re-presents the current position with a validation message.
func (s *Session) rejectTurn(msg string) (*Result, error) {
	if s.pendingTransition {
		res := s.transitionResult()
		res.ValidationError = msg
		return res, nil
	}
	cur := s.bank.Question(s.currentQuestion)
	if cur == nil {
		return nil, fmt.Errorf("%w: no current question to re-present", ErrFlowStuck)
	}
	res := s.questionResult(cur)
	res.ValidationError = msg
	return res, nil
}

// presentNext applies the branching table and returns the next unit of work:
// a question, a domain transition, or completion.
func (s *Session) presentNext() (*Result, error) {
	s.applyRules()

	if s.pendingTransition {
		return s.transitionResult(), nil
	}

	if q := s.nextQuestionIn(s.currentDomain); q != nil {
		s.currentQuestion = q.ID
		t := s.timing[q.ID]
		if t.PresentedAt.IsZero() {
			t.PresentedAt = s.now()
			s.timing[q.ID] = t
		}
		return s.questionResult(q), nil
	}

	s.markCompleted(s.currentDomain)

	next := s.nextApplicableDomain()
	if next == "" {
		return s.finalize()
	}
	s.currentDomain = next
	s.pendingTransition = true
	return s.transitionResult(), nil
}

// applyRules evaluates the ordered rule table against the current responses.
// All matching unlocks apply; the first matching route override wins.
func (s *Session) applyRules() {
	routeTo := ""
	for _, r := range s.rules {
		if !r.When(s.responses, s.cfg) {
			continue
		}
		if r.Unlock != "" {
			s.unlocked[r.Unlock] = true
		}
		if routeTo == "" && r.RouteTo != "" {
			routeTo = r.RouteTo
		}
	}
	if routeTo == "" || routeTo == s.currentDomain || s.isCompleted(routeTo) {
		return
	}
	if s.bank.DomainByID(routeTo) == nil {
		return
	}
	// Override routing goes straight to the target domain's first question,
	// skipping the transition acknowledgment.
	s.currentDomain = routeTo
	s.currentQuestion = ""
	s.pendingTransition = false
	if routeTo == DomainEmergency {
		s.emergencyEntered = true
	}
}

// nextQuestionIn returns the first unanswered question of the domain whose
// gating condition holds, in declared order.
func (s *Session) nextQuestionIn(domainID string) *Question {
	for _, q := range s.bank.QuestionsIn(domainID) {
		if _, answered := s.responses[q.ID]; answered {
			continue
		}
		if !conditionMet(q.DependsOn, s.responses) {
			continue
		}
		return q
	}
	return nil
}

// nextApplicableDomain scans the declared domain order for the first
// applicable domain not yet completed.
func (s *Session) nextApplicableDomain() string {
	for _, d := range s.bank.Domains() {
		if s.isCompleted(d.ID) {
			continue
		}
		if d.AlwaysApplicable || s.unlocked[d.ID] {
			return d.ID
		}
	}
	return ""
}

func (s *Session) applicableDomains() []string {
	var out []string
	for _, d := range s.bank.Domains() {
		if d.AlwaysApplicable || s.unlocked[d.ID] {
			out = append(out, d.ID)
		}
	}
	return out
}

func (s *Session) isCompleted(domainID string) bool {
	for _, d := range s.completedDomains {
		if d == domainID {
			return true
		}
	}
	return false
}

func (s *Session) markCompleted(domainID string) {
	if domainID == "" || s.isCompleted(domainID) {
		return
	}
	s.completedDomains = append(s.completedDomains, domainID)
}

func (s *Session) firstDomain() string {
	for _, d := range s.bank.Domains() {
		if d.AlwaysApplicable {
			return d.ID
		}
	}
	if doms := s.bank.Domains(); len(doms) > 0 {
		return doms[0].ID
	}
	return ""
}

// finalize freezes the session and builds the completion payload. Before
// declaring completion it re-checks that every applicable domain was
// actually visited; a gap here is a branching defect, not a finished flow.
func (s *Session) finalize() (*Result, error) {
	for _, d := range s.applicableDomains() {
		if !s.isCompleted(d) {
			return nil, fmt.Errorf("%w: domain %q applicable but not visited", ErrFlowStuck, d)
		}
	}

	s.complete = true
	score := ScoreRisk(s.bank, s.cfg, s.responses)
	s.final = &Completion{
		TotalRiskScore:   score.Total,
		RiskLevel:        score.Level,
		DomainScores:     score.ByDomain,
		Recommendations:  BuildRecommendations(s.cfg, score),
		NextSteps:        BuildNextSteps(score, s.emergencyEntered),
		CompletedDomains: append([]string(nil), s.completedDomains...),
		FraudScore:       s.fraudHighWater,
	}

	return &Result{
		Type:     ResultComplete,
		Progress: 100,
		Results:  s.final,
	}, nil
}

func (s *Session) questionResult(q *Question) *Result {
	est := s.estimate()
	return &Result{
		Type:                      ResultQuestion,
		Question:                  q,
		CurrentDomain:             s.currentDomain,
		Progress:                  est.Progress,
		EstimatedSecondsRemaining: est.SecondsRemaining,
	}
}

func (s *Session) transitionResult() *Result {
	d := s.bank.DomainByID(s.currentDomain)
	est := s.estimate()
	return &Result{
		Type:                      ResultDomainTransition,
		Domain:                    &DomainInfo{ID: d.ID, Name: d.Name},
		Message:                   fmt.Sprintf("Entering %s", d.Name),
		CurrentDomain:             s.currentDomain,
		Progress:                  est.Progress,
		EstimatedSecondsRemaining: est.SecondsRemaining,
	}
}

func (s *Session) estimate() Estimate {
	return EstimateProgress(s.bank, s.cfg, s.responses, s.applicableDomains(), s.complete)
}

// Responses returns a copy of the recorded answers.
func (s *Session) Responses() Responses {
	out := make(Responses, len(s.responses))
	for k, v := range s.responses {
		out[k] = v
	}
	return out
}

// Completed reports whether the session reached the complete result.
func (s *Session) Completed() bool { return s.complete }

// Completion returns the final payload, or nil before completion.
func (s *Session) Completion() *Completion { return s.final }

// FraudScore returns the session's monotonic fraud score.
func (s *Session) FraudScore() float64 { return s.fraudHighWater }

// RiskScore recomputes the current risk score from the recorded answers.
func (s *Session) RiskScore() RiskScore { return ScoreRisk(s.bank, s.cfg, s.responses) }

// normalizeAnswer validates a raw value against the question definition and
// returns the normalized representation, or a user-facing message on
// failure. Nothing is mutated on failure.
func normalizeAnswer(q *Question, value interface{}) (interface{}, string) {
	switch q.Type {
	case TypeBoolean:
		v, ok := value.(bool)
		if !ok {
			return nil, "answer must be true or false"
		}
		return v, ""

	case TypeScale, TypeNumber:
		v, ok := toFloat(value)
		if !ok {
			return nil, "answer must be a number"
		}
		if q.Min != nil && v < *q.Min || q.Max != nil && v > *q.Max {
			return nil, fmt.Sprintf("answer must be between %g and %g", *q.Min, *q.Max)
		}
		return v, ""

	case TypeSelect:
		v, ok := value.(string)
		if !ok {
			return nil, "answer must be one of the listed options"
		}
		if !q.optionValues()[v] {
			return nil, fmt.Sprintf("%q is not a valid option", v)
		}
		return v, ""

	case TypeMultiSelect:
		sel, ok := toStringSlice(value)
		if !ok {
			return nil, "answer must be a list of options"
		}
		if q.Required && len(sel) == 0 {
			return nil, "select at least one option"
		}
		valid := q.optionValues()
		for _, v := range sel {
			if !valid[v] {
				return nil, fmt.Sprintf("%q is not a valid option", v)
			}
		}
		return sel, ""

	case TypeText:
		v, ok := value.(string)
		if !ok {
			return nil, "answer must be text"
		}
		if q.Required && v == "" {
			return nil, "an answer is required"
		}
		return v, ""
	}
	return nil, fmt.Sprintf("unsupported question type %q", q.Type)
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func toStringSlice(value interface{}) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
