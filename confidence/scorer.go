package confidence

import (
	"github.com/fieldline/go-autopilot/core"
	"github.com/fieldline/go-autopilot/features"
)

const (
	baseScore          = 0.5
	titleIncrement     = 0.1
	clientIncrement    = 0.1
	creatorIncrement   = 0.1
	perMatchBonus      = 0.05
	matchBonusCap      = 0.15
	completenessWeight = 0.7
	historyWeight      = 0.3
	// optimisticPrior is the historical component used when no comparable
	// history exists, so a cold start does not bias against acting.
	optimisticPrior = 0.75
)

// History is the slice of core.DecisionHistory the scorer consults.
type History interface {
	SuccessRatio(jobStatus string, weekend bool, ruleNames []string) (float64, bool)
}

type Scorer struct {
	history History
}

func NewScorer(history History) *Scorer {
	return &Scorer{history: history}
}

// Score computes the execution-gate confidence for one processing attempt.
// The result is always in [0, 1].
func (s *Scorer) Score(data core.EnrichedData, set core.FeatureSet, decisions []core.Decision) float64 {
	completeness := baseScore
	if set.Text(features.KeyTitle) != "" {
		completeness += titleIncrement
	}
	if set.Text(features.KeyClientName) != "" {
		completeness += clientIncrement
	}
	if data.CreatorResolved {
		completeness += creatorIncrement
	}

	matchBonus := perMatchBonus * float64(len(decisions))
	if matchBonus > matchBonusCap {
		matchBonus = matchBonusCap
	}
	completeness += matchBonus

	historical := optimisticPrior
	if s != nil && s.history != nil {
		ruleNames := make([]string, 0, len(decisions))
		for _, decision := range decisions {
			ruleNames = append(ruleNames, decision.Rule)
		}
		if ratio, ok := s.history.SuccessRatio(
			set.Text(features.KeyJobStatus),
			set.Bool(features.KeyIsWeekend),
			ruleNames,
		); ok {
			historical = ratio
		}
	}

	score := completenessWeight*completeness + historyWeight*historical
	return clamp01(score)
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
