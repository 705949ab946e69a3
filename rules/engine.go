package rules

import (
	"sort"
	"strings"

	"github.com/fieldline/go-autopilot/core"
)

// Rule is one row of the static table. Any satisfied condition makes the
// rule match.
type Rule struct {
	Name       string
	Priority   int
	Conditions []Condition
	Actions    []string
}

// Engine evaluates every table rule independently against a feature set. The
// table is fixed at construction and never mutated afterwards.
type Engine struct {
	table []Rule
}

func NewEngine(table []Rule) *Engine {
	return &Engine{table: append([]Rule(nil), table...)}
}

// Rules returns the table in declaration order.
func (e *Engine) Rules() []Rule {
	if e == nil {
		return nil
	}
	return append([]Rule(nil), e.table...)
}

// Evaluate returns all matched decisions sorted by descending priority. Equal
// priorities keep table declaration order.
func (e *Engine) Evaluate(set core.FeatureSet) []core.Decision {
	if e == nil {
		return nil
	}

	decisions := make([]core.Decision, 0, len(e.table))
	for _, rule := range e.table {
		satisfied := make([]string, 0, len(rule.Conditions))
		for _, condition := range rule.Conditions {
			if condition.Satisfied(set) {
				satisfied = append(satisfied, condition.Describe())
			}
		}
		if len(satisfied) == 0 {
			continue
		}
		decisions = append(decisions, core.Decision{
			Rule:      rule.Name,
			Priority:  rule.Priority,
			Actions:   append([]string(nil), rule.Actions...),
			Reasoning: strings.Join(satisfied, "; "),
		})
	}

	sort.SliceStable(decisions, func(i, j int) bool {
		return decisions[i].Priority > decisions[j].Priority
	})
	return decisions
}
