package rewards

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/intake/intake/internal/flow"
)

// ResultSource provides completed session results. The session service
// satisfies it.
type ResultSource interface {
	Result(ctx context.Context, id uuid.UUID) (*flow.Completion, error)
}

type Service struct {
	table   *Table
	results ResultSource
	logger  zerolog.Logger
}

func NewService(table *Table, results ResultSource, logger zerolog.Logger) *Service {
	return &Service{
		table:   table,
		results: results,
		logger:  logger.With().Str("component", "rewards-service").Logger(),
	}
}

// ForSession computes the award for a completed session. Errors from the
// result source pass through unchanged so the transport layer keeps its
// status mapping.
func (s *Service) ForSession(ctx context.Context, id uuid.UUID) (*Award, error) {
	comp, err := s.results.Result(ctx, id)
	if err != nil {
		return nil, err
	}
	award := s.Compute(comp)
	s.logger.Debug().Str("session_id", id.String()).Int("points", award.Points).
		Msg("award computed")
	return award, nil
}

// Compute applies the award table to a completion. It is a pure lookup: the
// same completion always yields the same award.
func (s *Service) Compute(comp *flow.Completion) *Award {
	award := &Award{}

	for _, d := range comp.CompletedDomains {
		pts, ok := s.table.DomainPoints[d]
		if !ok {
			pts = s.table.DefaultDomainPoints
		}
		award.Points += pts
	}
	award.Points += s.table.LevelBonus[comp.RiskLevel]

	award.Badges = append(award.Badges, s.table.Badges["intake-complete"])
	award.Achievements = append(award.Achievements, "completed_intake")

	if len(comp.CompletedDomains) >= s.table.ThoroughDomainCount {
		award.Badges = append(award.Badges, s.table.Badges["thorough-profile"])
		award.Achievements = append(award.Achievements, "all_domains_assessed")
	}
	if comp.FraudScore == 0 {
		award.Badges = append(award.Badges, s.table.Badges["straight-answers"])
		award.Achievements = append(award.Achievements, "consistent_responses")
	}
	return award
}
