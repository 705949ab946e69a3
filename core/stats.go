package core

import "sync"

// StatsSnapshot is the read-side view of the process counters.
type StatsSnapshot struct {
	Received    int64
	Processed   int64
	Failed      int64
	ByUser      map[string]int64
	ByTopic     map[string]int64
	UniqueUsers int
}

// PerformanceMetrics joins the counter snapshot with decision-outcome
// aggregates derived from history.
type PerformanceMetrics struct {
	Stats             StatsSnapshot
	Decisions         int
	PendingOutcomes   int
	SuccessfulActions int
	FailedActions     int
	SuccessRate       float64
	AverageConfidence float64
}

// StatsTracker owns the monotonically non-decreasing process counters. The
// intake path increments Received concurrently with a running drain, so
// access is guarded even though the drain loop is the sole reader-mutator of
// the per-user and per-topic maps.
type StatsTracker struct {
	mu       sync.Mutex
	received int64
	// processed counts entries that completed the pipeline; failed counts
	// terminal failures, including entries that exhausted their retry budget.
	processed int64
	failed    int64
	byUser    map[string]int64
	byTopic   map[string]int64
}

func NewStatsTracker() *StatsTracker {
	return &StatsTracker{
		byUser:  map[string]int64{},
		byTopic: map[string]int64{},
	}
}

func (t *StatsTracker) RecordReceived(event Event) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.received++
}

func (t *StatsTracker) RecordProcessed(event Event) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed++
	userKey := event.UserID
	if userKey == "" {
		userKey = "unknown"
	}
	t.byUser[userKey]++
	t.byTopic[string(event.Topic)]++
}

func (t *StatsTracker) RecordFailed(event Event) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed++
}

// Snapshot copies the counters so readers never observe partial mutation.
func (t *StatsTracker) Snapshot() StatsSnapshot {
	if t == nil {
		return StatsSnapshot{ByUser: map[string]int64{}, ByTopic: map[string]int64{}}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	byUser := make(map[string]int64, len(t.byUser))
	for key, value := range t.byUser {
		byUser[key] = value
	}
	byTopic := make(map[string]int64, len(t.byTopic))
	for key, value := range t.byTopic {
		byTopic[key] = value
	}
	return StatsSnapshot{
		Received:    t.received,
		Processed:   t.processed,
		Failed:      t.failed,
		ByUser:      byUser,
		ByTopic:     byTopic,
		UniqueUsers: len(byUser),
	}
}
