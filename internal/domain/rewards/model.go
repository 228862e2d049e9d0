package rewards

// Badge is a named recognition earned by completing parts of the intake.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Award is the gamification payload computed for a completed session.
type Award struct {
	Points       int      `json:"points"`
	Badges       []Badge  `json:"badges"`
	Achievements []string `json:"achievements"`
}

// Table is the data-driven rule set for award computation. Everything here is
// static configuration; the service never mutates it.
type Table struct {
	// Points granted per completed domain, by domain id. Domains not listed
	// fall back to DefaultDomainPoints.
	DomainPoints        map[string]int
	DefaultDomainPoints int

	// Bonus granted by final risk level.
	LevelBonus map[string]int

	// Badges by id, referenced from the computation rules.
	Badges map[string]Badge

	// Minimum completed domains for the thorough-profile badge.
	ThoroughDomainCount int
}

// DefaultTable returns the standard award rules.
func DefaultTable() *Table {
	return &Table{
		DomainPoints: map[string]int{
			"triage":    15,
			"emergency": 20,
		},
		DefaultDomainPoints: 10,
		LevelBonus: map[string]int{
			"low":      50,
			"moderate": 30,
			"high":     20,
		},
		Badges: map[string]Badge{
			"intake-complete": {
				ID:          "intake-complete",
				Name:        "Intake Complete",
				Description: "Finished the full health questionnaire.",
			},
			"thorough-profile": {
				ID:          "thorough-profile",
				Name:        "Thorough Profile",
				Description: "Completed an in-depth assessment across many health areas.",
			},
			"straight-answers": {
				ID:          "straight-answers",
				Name:        "Straight Answers",
				Description: "Answered consistently across the whole questionnaire.",
			},
		},
		ThoroughDomainCount: 5,
	}
}
