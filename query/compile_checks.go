package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/fieldline/go-autopilot/core"
)

var (
	_ gocmd.Querier[LoadStatsMessage, core.StatsSnapshot]              = (*LoadStatsQuery)(nil)
	_ gocmd.Querier[LoadPerformanceMessage, core.PerformanceMetrics]   = (*LoadPerformanceQuery)(nil)
	_ gocmd.Querier[ListRecentDecisionsMessage, []core.DecisionRecord] = (*ListRecentDecisionsQuery)(nil)
	_ gocmd.Querier[ListArchiveMessage, []core.DecisionRecord]         = (*ListArchiveQuery)(nil)
)
