package command

import (
	"context"
	"fmt"
	"testing"

	gocmd "github.com/goliatone/go-command"

	"github.com/fieldline/go-autopilot/core"
)

type stubProcessor struct {
	processFn func(ctx context.Context, event core.Event, pctx core.PipelineContext) (core.AnalysisResult, error)
}

func (s stubProcessor) Process(ctx context.Context, event core.Event, pctx core.PipelineContext) (core.AnalysisResult, error) {
	if s.processFn == nil {
		return core.AnalysisResult{}, fmt.Errorf("unexpected process call")
	}
	return s.processFn(ctx, event, pctx)
}

type stubReporter struct {
	reportFn func(ctx context.Context, recordID string, outcome core.Outcome) error
}

func (s stubReporter) ReportOutcome(ctx context.Context, recordID string, outcome core.Outcome) error {
	if s.reportFn == nil {
		return fmt.Errorf("unexpected report call")
	}
	return s.reportFn(ctx, recordID, outcome)
}

type stubMaintainer struct {
	flushFn func(ctx context.Context, limit int) (int, error)
	pruneFn func(ctx context.Context, retentionDays int) (int, error)
}

func (s stubMaintainer) FlushArchive(ctx context.Context, limit int) (int, error) {
	if s.flushFn == nil {
		return 0, fmt.Errorf("unexpected flush call")
	}
	return s.flushFn(ctx, limit)
}

func (s stubMaintainer) PruneArchive(ctx context.Context, retentionDays int) (int, error) {
	if s.pruneFn == nil {
		return 0, fmt.Errorf("unexpected prune call")
	}
	return s.pruneFn(ctx, retentionDays)
}

func TestProcessEventCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	expected := core.AnalysisResult{RecordID: "d1", Confidence: 0.9, Executed: true}
	called := false

	processor := stubProcessor{
		processFn: func(_ context.Context, event core.Event, pctx core.PipelineContext) (core.AnalysisResult, error) {
			called = true
			if event.Topic != core.TopicJobCreate || event.ItemID != "j1" {
				t.Fatalf("unexpected event payload: %#v", event)
			}
			if pctx.CurrentCapacity != 3 {
				t.Fatalf("expected pipeline context to pass through, got %#v", pctx)
			}
			return expected, nil
		},
	}

	cmd := NewProcessEventCommand(processor)
	collector := gocmd.NewResult[core.AnalysisResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, ProcessEventMessage{
		Event:   core.Event{Topic: core.TopicJobCreate, ItemID: "j1"},
		Context: core.PipelineContext{CurrentCapacity: 3},
	})
	if err != nil {
		t.Fatalf("execute process event: %v", err)
	}
	if !called {
		t.Fatalf("expected processor invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.RecordID != expected.RecordID || !result.Executed {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestReportOutcomeCommand_ExecuteDelegates(t *testing.T) {
	called := false
	reporter := stubReporter{
		reportFn: func(_ context.Context, recordID string, outcome core.Outcome) error {
			called = true
			if recordID != "d1" || outcome != core.OutcomeSuccess {
				t.Fatalf("unexpected report payload: %q %q", recordID, outcome)
			}
			return nil
		},
	}

	cmd := NewReportOutcomeCommand(reporter)
	if err := cmd.Execute(context.Background(), ReportOutcomeMessage{
		RecordID: "d1",
		Outcome:  core.OutcomeSuccess,
	}); err != nil {
		t.Fatalf("execute report outcome: %v", err)
	}
	if !called {
		t.Fatalf("expected reporter invocation")
	}
}

func TestArchiveCommands_DelegateAndStoreCounts(t *testing.T) {
	t.Run("flush", func(t *testing.T) {
		maintainer := stubMaintainer{
			flushFn: func(_ context.Context, limit int) (int, error) {
				if limit != 50 {
					t.Fatalf("expected limit 50, got %d", limit)
				}
				return 7, nil
			},
		}
		cmd := NewFlushArchiveCommand(maintainer)
		collector := gocmd.NewResult[int]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		if err := cmd.Execute(ctx, FlushArchiveMessage{Limit: 50}); err != nil {
			t.Fatalf("execute flush: %v", err)
		}
		count, ok := collector.Load()
		if !ok || count != 7 {
			t.Fatalf("expected stored flush count 7, got %d (%v)", count, ok)
		}
	})

	t.Run("prune", func(t *testing.T) {
		maintainer := stubMaintainer{
			pruneFn: func(_ context.Context, retentionDays int) (int, error) {
				if retentionDays != 30 {
					t.Fatalf("expected retention 30, got %d", retentionDays)
				}
				return 2, nil
			},
		}
		cmd := NewPruneArchiveCommand(maintainer)
		collector := gocmd.NewResult[int]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		if err := cmd.Execute(ctx, PruneArchiveMessage{RetentionDays: 30}); err != nil {
			t.Fatalf("execute prune: %v", err)
		}
		count, ok := collector.Load()
		if !ok || count != 2 {
			t.Fatalf("expected stored prune count 2, got %d (%v)", count, ok)
		}
	})
}

func TestProcessEventCommand_PropagatesProcessorError(t *testing.T) {
	processor := stubProcessor{
		processFn: func(context.Context, core.Event, core.PipelineContext) (core.AnalysisResult, error) {
			return core.AnalysisResult{}, fmt.Errorf("enrichment down")
		},
	}
	cmd := NewProcessEventCommand(processor)
	err := cmd.Execute(context.Background(), ProcessEventMessage{
		Event: core.Event{Topic: core.TopicJobCreate, ItemID: "j1"},
	})
	if err == nil || err.Error() != "enrichment down" {
		t.Fatalf("expected processor error to propagate, got %v", err)
	}
}
