package command

import (
	"strings"

	"github.com/fieldline/go-autopilot/core"
)

const (
	TypeProcessEvent  = "autopilot.command.event.process"
	TypeReportOutcome = "autopilot.command.outcome.report"
	TypeFlushArchive  = "autopilot.command.archive.flush"
	TypePruneArchive  = "autopilot.command.archive.prune"
)

type ProcessEventMessage struct {
	Event   core.Event
	Context core.PipelineContext
}

func (ProcessEventMessage) Type() string { return TypeProcessEvent }

func (m ProcessEventMessage) Validate() error {
	if strings.TrimSpace(string(m.Event.Topic)) == "" {
		return commandValidationError("topic", "topic is required")
	}
	if strings.TrimSpace(m.Event.ItemID) == "" {
		return commandValidationError("item_id", "item id is required")
	}
	return nil
}

type ReportOutcomeMessage struct {
	RecordID string
	Outcome  core.Outcome
}

func (ReportOutcomeMessage) Type() string { return TypeReportOutcome }

func (m ReportOutcomeMessage) Validate() error {
	if strings.TrimSpace(m.RecordID) == "" {
		return commandValidationError("record_id", "record id is required")
	}
	switch m.Outcome {
	case core.OutcomeSuccess, core.OutcomeFailure:
		return nil
	default:
		return commandValidationError("outcome", "outcome must be success or failure")
	}
}

type FlushArchiveMessage struct {
	Limit int
}

func (FlushArchiveMessage) Type() string { return TypeFlushArchive }

func (m FlushArchiveMessage) Validate() error {
	if m.Limit < 0 {
		return commandValidationError("limit", "limit must be >= 0")
	}
	return nil
}

type PruneArchiveMessage struct {
	RetentionDays int
}

func (PruneArchiveMessage) Type() string { return TypePruneArchive }

func (m PruneArchiveMessage) Validate() error {
	if m.RetentionDays <= 0 {
		return commandValidationError("retention_days", "retention days must be > 0")
	}
	return nil
}
