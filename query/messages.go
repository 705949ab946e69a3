package query

import (
	"github.com/fieldline/go-autopilot/core"
)

const (
	TypeLoadStats           = "autopilot.query.stats.load"
	TypeLoadPerformance     = "autopilot.query.performance.load"
	TypeListRecentDecisions = "autopilot.query.decisions.recent"
	TypeListArchive         = "autopilot.query.archive.list"
)

type LoadStatsMessage struct{}

func (LoadStatsMessage) Type() string { return TypeLoadStats }

type LoadPerformanceMessage struct{}

func (LoadPerformanceMessage) Type() string { return TypeLoadPerformance }

type ListRecentDecisionsMessage struct {
	Limit int
}

func (ListRecentDecisionsMessage) Type() string { return TypeListRecentDecisions }

func (m ListRecentDecisionsMessage) Validate() error {
	if m.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	return nil
}

type ListArchiveMessage struct {
	Filter core.ArchiveFilter
}

func (ListArchiveMessage) Type() string { return TypeListArchive }

func (m ListArchiveMessage) Validate() error {
	if m.Filter.Page < 0 {
		return queryValidationError("page", "page must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return queryValidationError("per_page", "per_page must be >= 0")
	}
	return nil
}
