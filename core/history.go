package core

import (
	"strings"
	"sync"
)

const DefaultHistoryMaxEntries = 1000

// DecisionHistory is the bounded ring of past decision records. Eviction is
// FIFO on insertion order: recency of insertion, not access, determines
// relevance for the historical-success heuristic.
type DecisionHistory struct {
	mu         sync.Mutex
	maxEntries int
	records    []DecisionRecord
}

func NewDecisionHistory(maxEntries int) *DecisionHistory {
	if maxEntries <= 0 {
		maxEntries = DefaultHistoryMaxEntries
	}
	return &DecisionHistory{maxEntries: maxEntries}
}

func (h *DecisionHistory) Append(record DecisionRecord) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if record.Outcome == "" {
		record.Outcome = OutcomePending
	}
	h.records = append(h.records, record)
	if overflow := len(h.records) - h.maxEntries; overflow > 0 {
		h.records = append(h.records[:0:0], h.records[overflow:]...)
	}
}

// ReportOutcome resolves a pending record. Unknown ids return
// ErrRecordNotFound; callers treat that as stale out-of-band feedback.
func (h *DecisionHistory) ReportOutcome(recordID string, outcome Outcome) error {
	if h == nil {
		return ErrRecordNotFound
	}
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return ErrRecordNotFound
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.records {
		if h.records[i].ID == recordID {
			h.records[i].Outcome = outcome
			return nil
		}
	}
	return ErrRecordNotFound
}

// SuccessRatio scans for comparable prior records: same job status, same
// weekend flag, and at least one overlapping matched rule name. The linear
// scan is acceptable because the ring is capped; index by a composite key
// before raising the cap significantly.
func (h *DecisionHistory) SuccessRatio(jobStatus string, weekend bool, ruleNames []string) (float64, bool) {
	if h == nil || len(ruleNames) == 0 {
		return 0, false
	}
	wanted := make(map[string]struct{}, len(ruleNames))
	for _, name := range ruleNames {
		wanted[name] = struct{}{}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	comparable := 0
	successes := 0
	for _, record := range h.records {
		if record.Outcome == OutcomePending {
			continue
		}
		if record.Features.Text("job_status") != jobStatus {
			continue
		}
		if record.Features.Bool("is_weekend") != weekend {
			continue
		}
		if !rulesOverlap(record, wanted) {
			continue
		}
		comparable++
		if record.Outcome == OutcomeSuccess {
			successes++
		}
	}
	if comparable == 0 {
		return 0, false
	}
	return float64(successes) / float64(comparable), true
}

func rulesOverlap(record DecisionRecord, wanted map[string]struct{}) bool {
	for _, decision := range record.Decisions {
		if _, ok := wanted[decision.Rule]; ok {
			return true
		}
	}
	return false
}

// Recent returns up to limit records, newest first.
func (h *DecisionHistory) Recent(limit int) []DecisionRecord {
	if h == nil || limit <= 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if limit > len(h.records) {
		limit = len(h.records)
	}
	out := make([]DecisionRecord, 0, limit)
	for i := len(h.records) - 1; i >= len(h.records)-limit; i-- {
		out = append(out, h.records[i])
	}
	return out
}

func (h *DecisionHistory) Len() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// Aggregate computes the decision-outcome metrics exposed through the
// performance surface.
func (h *DecisionHistory) Aggregate() PerformanceMetrics {
	if h == nil {
		return PerformanceMetrics{}
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	metrics := PerformanceMetrics{Decisions: len(h.records)}
	var confidenceSum float64
	resolved := 0
	for _, record := range h.records {
		confidenceSum += record.Confidence
		switch record.Outcome {
		case OutcomeSuccess:
			metrics.SuccessfulActions++
			resolved++
		case OutcomeFailure:
			metrics.FailedActions++
			resolved++
		default:
			metrics.PendingOutcomes++
		}
	}
	if resolved > 0 {
		metrics.SuccessRate = float64(metrics.SuccessfulActions) / float64(resolved)
	}
	if len(h.records) > 0 {
		metrics.AverageConfidence = confidenceSum / float64(len(h.records))
	}
	return metrics
}
