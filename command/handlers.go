package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/fieldline/go-autopilot/core"
)

// EventProcessor runs the full analysis pipeline for one event.
type EventProcessor interface {
	Process(ctx context.Context, event core.Event, pctx core.PipelineContext) (core.AnalysisResult, error)
}

// OutcomeReporter resolves a pending decision record with out-of-band
// feedback.
type OutcomeReporter interface {
	ReportOutcome(ctx context.Context, recordID string, outcome core.Outcome) error
}

// ArchiveMaintainer owns the write-behind archive upkeep jobs.
type ArchiveMaintainer interface {
	FlushArchive(ctx context.Context, limit int) (int, error)
	PruneArchive(ctx context.Context, retentionDays int) (int, error)
}

type ProcessEventCommand struct {
	processor EventProcessor
}

func NewProcessEventCommand(processor EventProcessor) *ProcessEventCommand {
	return &ProcessEventCommand{processor: processor}
}

func (c *ProcessEventCommand) Execute(ctx context.Context, msg ProcessEventMessage) error {
	if c == nil || c.processor == nil {
		return commandDependencyError("command: event processor is required")
	}
	out, err := c.processor.Process(ctx, msg.Event, msg.Context)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ReportOutcomeCommand struct {
	reporter OutcomeReporter
}

func NewReportOutcomeCommand(reporter OutcomeReporter) *ReportOutcomeCommand {
	return &ReportOutcomeCommand{reporter: reporter}
}

func (c *ReportOutcomeCommand) Execute(ctx context.Context, msg ReportOutcomeMessage) error {
	if c == nil || c.reporter == nil {
		return commandDependencyError("command: outcome reporter is required")
	}
	return c.reporter.ReportOutcome(ctx, msg.RecordID, msg.Outcome)
}

type FlushArchiveCommand struct {
	maintainer ArchiveMaintainer
}

func NewFlushArchiveCommand(maintainer ArchiveMaintainer) *FlushArchiveCommand {
	return &FlushArchiveCommand{maintainer: maintainer}
}

func (c *FlushArchiveCommand) Execute(ctx context.Context, msg FlushArchiveMessage) error {
	if c == nil || c.maintainer == nil {
		return commandDependencyError("command: archive maintainer is required")
	}
	out, err := c.maintainer.FlushArchive(ctx, msg.Limit)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type PruneArchiveCommand struct {
	maintainer ArchiveMaintainer
}

func NewPruneArchiveCommand(maintainer ArchiveMaintainer) *PruneArchiveCommand {
	return &PruneArchiveCommand{maintainer: maintainer}
}

func (c *PruneArchiveCommand) Execute(ctx context.Context, msg PruneArchiveMessage) error {
	if c == nil || c.maintainer == nil {
		return commandDependencyError("command: archive maintainer is required")
	}
	out, err := c.maintainer.PruneArchive(ctx, msg.RetentionDays)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
