package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/fieldline/go-autopilot/core"
)

// Condition is one predicate over a feature set. The set of implementations
// is closed: keyword intersection, numeric threshold, day-of-week membership,
// and boolean flag.
type Condition interface {
	Satisfied(set core.FeatureSet) bool
	Describe() string
}

// KeywordCondition matches when any keyword appears as a case-insensitive
// substring of the named text feature.
type KeywordCondition struct {
	Feature  string
	Keywords []string
}

func (c KeywordCondition) Satisfied(set core.FeatureSet) bool {
	text := strings.ToLower(set.Text(c.Feature))
	if text == "" {
		return false
	}
	for _, keyword := range c.Keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func (c KeywordCondition) Describe() string {
	return fmt.Sprintf("%s contains one of %s", c.Feature, strings.Join(c.Keywords, "|"))
}

// ThresholdCondition matches when the named numeric feature meets or exceeds
// Min.
type ThresholdCondition struct {
	Feature string
	Min     float64
}

func (c ThresholdCondition) Satisfied(set core.FeatureSet) bool {
	return set.Number(c.Feature) >= c.Min
}

func (c ThresholdCondition) Describe() string {
	return fmt.Sprintf("%s >= %g", c.Feature, c.Min)
}

// DayOfWeekCondition matches when the evaluation day is in Days.
type DayOfWeekCondition struct {
	Feature string
	Days    []time.Weekday
}

func (c DayOfWeekCondition) Satisfied(set core.FeatureSet) bool {
	day := strings.TrimSpace(set.Text(c.Feature))
	if day == "" {
		return false
	}
	for _, candidate := range c.Days {
		if strings.EqualFold(candidate.String(), day) {
			return true
		}
	}
	return false
}

func (c DayOfWeekCondition) Describe() string {
	names := make([]string, 0, len(c.Days))
	for _, day := range c.Days {
		names = append(names, day.String())
	}
	return fmt.Sprintf("%s in %s", c.Feature, strings.Join(names, "|"))
}

// FlagCondition matches when the named boolean feature is true.
type FlagCondition struct {
	Feature string
}

func (c FlagCondition) Satisfied(set core.FeatureSet) bool {
	return set.Bool(c.Feature)
}

func (c FlagCondition) Describe() string {
	return c.Feature + " is set"
}
