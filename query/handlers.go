package query

import (
	"context"

	"github.com/fieldline/go-autopilot/core"
)

// StatsReader exposes the intake counters snapshot.
type StatsReader interface {
	Snapshot() core.StatsSnapshot
}

// PerformanceReader aggregates decision-outcome metrics from history.
type PerformanceReader interface {
	Aggregate() core.PerformanceMetrics
}

// HistoryReader lists the newest in-memory decision records.
type HistoryReader interface {
	Recent(limit int) []core.DecisionRecord
}

// ArchiveReader pages through the persisted decision archive.
type ArchiveReader interface {
	List(ctx context.Context, filter core.ArchiveFilter) ([]core.DecisionRecord, error)
}

type LoadStatsQuery struct {
	reader StatsReader
}

func NewLoadStatsQuery(reader StatsReader) *LoadStatsQuery {
	return &LoadStatsQuery{reader: reader}
}

func (q *LoadStatsQuery) Query(_ context.Context, _ LoadStatsMessage) (core.StatsSnapshot, error) {
	if q == nil || q.reader == nil {
		return core.StatsSnapshot{}, queryDependencyError("query: stats reader is required")
	}
	return q.reader.Snapshot(), nil
}

type LoadPerformanceQuery struct {
	reader PerformanceReader
}

func NewLoadPerformanceQuery(reader PerformanceReader) *LoadPerformanceQuery {
	return &LoadPerformanceQuery{reader: reader}
}

func (q *LoadPerformanceQuery) Query(_ context.Context, _ LoadPerformanceMessage) (core.PerformanceMetrics, error) {
	if q == nil || q.reader == nil {
		return core.PerformanceMetrics{}, queryDependencyError("query: performance reader is required")
	}
	return q.reader.Aggregate(), nil
}

type ListRecentDecisionsQuery struct {
	reader HistoryReader
}

func NewListRecentDecisionsQuery(reader HistoryReader) *ListRecentDecisionsQuery {
	return &ListRecentDecisionsQuery{reader: reader}
}

func (q *ListRecentDecisionsQuery) Query(
	_ context.Context,
	msg ListRecentDecisionsMessage,
) ([]core.DecisionRecord, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: history reader is required")
	}
	return q.reader.Recent(msg.Limit), nil
}

type ListArchiveQuery struct {
	reader ArchiveReader
}

func NewListArchiveQuery(reader ArchiveReader) *ListArchiveQuery {
	return &ListArchiveQuery{reader: reader}
}

func (q *ListArchiveQuery) Query(ctx context.Context, msg ListArchiveMessage) ([]core.DecisionRecord, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: archive reader is required")
	}
	return q.reader.List(ctx, msg.Filter)
}
