package core

import (
	"fmt"
	"testing"
	"time"
)

func historyRecord(id string, status string, weekend bool, rule string, outcome Outcome) DecisionRecord {
	return DecisionRecord{
		ID:        id,
		Timestamp: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Decisions: []Decision{{Rule: rule, Priority: 10}},
		Features: FeatureSet{
			"job_status": status,
			"is_weekend": weekend,
		},
		Outcome: outcome,
	}
}

func TestDecisionHistory_EvictsOldestOnOverflow(t *testing.T) {
	history := NewDecisionHistory(3)
	for i := 0; i < 5; i++ {
		history.Append(historyRecord(fmt.Sprintf("rec-%d", i), "active", false, "emergency_response", OutcomePending))
	}
	if history.Len() != 3 {
		t.Fatalf("expected history capped at 3, got %d", history.Len())
	}
	if err := history.ReportOutcome("rec-0", OutcomeSuccess); err == nil {
		t.Fatalf("expected evicted record to be unknown")
	}
	if err := history.ReportOutcome("rec-4", OutcomeSuccess); err != nil {
		t.Fatalf("report outcome for retained record: %v", err)
	}
}

func TestDecisionHistory_SuccessRatioMatchesComparableRecords(t *testing.T) {
	history := NewDecisionHistory(10)
	history.Append(historyRecord("a", "active", false, "emergency_response", OutcomeSuccess))
	history.Append(historyRecord("b", "active", false, "emergency_response", OutcomeFailure))
	history.Append(historyRecord("c", "active", true, "emergency_response", OutcomeSuccess))
	history.Append(historyRecord("d", "closed", false, "emergency_response", OutcomeSuccess))
	history.Append(historyRecord("e", "active", false, "quote_followup", OutcomeSuccess))
	history.Append(historyRecord("f", "active", false, "emergency_response", OutcomePending))

	ratio, ok := history.SuccessRatio("active", false, []string{"emergency_response"})
	if !ok {
		t.Fatalf("expected comparable history")
	}
	if ratio != 0.5 {
		t.Fatalf("expected ratio 0.5 over records a and b, got %v", ratio)
	}
}

func TestDecisionHistory_SuccessRatioReportsNoComparableHistory(t *testing.T) {
	history := NewDecisionHistory(10)
	history.Append(historyRecord("a", "active", false, "quote_followup", OutcomeSuccess))

	if _, ok := history.SuccessRatio("active", false, []string{"emergency_response"}); ok {
		t.Fatalf("expected no comparable history for unrelated rule")
	}
	if _, ok := history.SuccessRatio("active", false, nil); ok {
		t.Fatalf("expected no comparable history without rule names")
	}
}

func TestDecisionHistory_AggregateCountsOutcomes(t *testing.T) {
	history := NewDecisionHistory(10)
	history.Append(historyRecord("a", "active", false, "emergency_response", OutcomeSuccess))
	history.Append(historyRecord("b", "active", false, "emergency_response", OutcomeFailure))
	history.Append(historyRecord("c", "active", false, "emergency_response", OutcomePending))

	metrics := history.Aggregate()
	if metrics.Decisions != 3 {
		t.Fatalf("expected 3 decisions, got %d", metrics.Decisions)
	}
	if metrics.SuccessfulActions != 1 || metrics.FailedActions != 1 || metrics.PendingOutcomes != 1 {
		t.Fatalf("unexpected outcome counts: %+v", metrics)
	}
	if metrics.SuccessRate != 0.5 {
		t.Fatalf("expected success rate 0.5 over resolved outcomes, got %v", metrics.SuccessRate)
	}
}
