package pipeline

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/fieldline/go-autopilot/actions"
	"github.com/fieldline/go-autopilot/core"
	"github.com/fieldline/go-autopilot/features"
)

type Enricher interface {
	Enrich(ctx context.Context, event core.Event) (core.EnrichedData, error)
}

type RuleEvaluator interface {
	Evaluate(set core.FeatureSet) []core.Decision
}

type Scorer interface {
	Score(data core.EnrichedData, set core.FeatureSet, decisions []core.Decision) float64
}

type ActionDispatcher interface {
	Dispatch(ctx context.Context, decisions []core.Decision, input actions.Input) []core.ActionResult
}

type Options struct {
	Enricher   Enricher
	Engine     RuleEvaluator
	Scorer     Scorer
	Dispatcher ActionDispatcher
	History    *core.DecisionHistory
	Stats      *core.StatsTracker
	// Archive is an optional write-behind sink; archive failures are logged
	// and never affect the processing outcome.
	Archive   core.DecisionArchive
	Observer  *core.Observer
	Threshold float64
	Now       func() time.Time
	NewID     func() string
}

// Processor runs the enrich-evaluate-score-dispatch sequence for one queue
// entry at a time. It is driven exclusively by the queue's single drain loop,
// so stats and history see one writer.
type Processor struct {
	enricher   Enricher
	engine     RuleEvaluator
	scorer     Scorer
	dispatcher ActionDispatcher
	history    *core.DecisionHistory
	stats      *core.StatsTracker
	archive    core.DecisionArchive
	observer   *core.Observer
	threshold  float64
	now        func() time.Time
	newID      func() string
}

func NewProcessor(opts Options) *Processor {
	observer := opts.Observer
	if observer == nil {
		observer = core.NopObserver()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = core.DefaultConfig().Confidence.Threshold
	}
	return &Processor{
		enricher:   opts.Enricher,
		engine:     opts.Engine,
		scorer:     opts.Scorer,
		dispatcher: opts.Dispatcher,
		history:    opts.History,
		stats:      opts.Stats,
		archive:    opts.Archive,
		observer:   observer,
		threshold:  threshold,
		now:        now,
		newID:      newID,
	}
}

// Handle adapts the processor to the queue's drain loop.
func (p *Processor) Handle(ctx context.Context, entry core.QueueEntry) error {
	_, err := p.Process(ctx, entry.Event, entry.Context)
	return err
}

// Process runs one full attempt. The returned error is non-nil only for
// retryable enrichment failures; analysis failures are absorbed into a
// zero-confidence record.
func (p *Processor) Process(ctx context.Context, event core.Event, pctx core.PipelineContext) (core.AnalysisResult, error) {
	if p == nil {
		return core.AnalysisResult{}, goerrors.New("pipeline: processor is required", goerrors.CategoryInternal)
	}
	startedAt := p.now()

	data, err := p.enrich(ctx, event)
	if err != nil {
		p.observer.ObserveOperation(ctx, startedAt, "pipeline.process", err, map[string]any{
			"topic":   string(event.Topic),
			"user_id": event.UserID,
			"stage":   "enrich",
		})
		return core.AnalysisResult{}, err
	}

	set, decisions, confidence, analysisErr := p.analyze(data, pctx)
	if analysisErr != nil {
		// Zero-confidence, no dispatch, but the attempt is still recorded
		// so the history keeps a trace of it.
		p.observer.LogError(ctx, "analysis failed", map[string]any{
			"topic":   string(event.Topic),
			"user_id": event.UserID,
			"error":   analysisErr.Error(),
		})
		confidence = 0
	}

	executed := analysisErr == nil && len(decisions) > 0 && confidence >= p.threshold
	var results []core.ActionResult
	if executed && p.dispatcher != nil {
		results = p.dispatcher.Dispatch(ctx, decisions, actions.Input{
			Event:    event,
			Data:     data,
			Features: set,
			Context:  pctx,
		})
	}

	record := core.DecisionRecord{
		ID:         p.newID(),
		Timestamp:  p.now(),
		Event:      event,
		Decisions:  decisions,
		Confidence: confidence,
		Features:   set,
		Outcome:    core.OutcomePending,
	}
	if p.history != nil {
		p.history.Append(record)
	}
	if p.stats != nil {
		p.stats.RecordProcessed(event)
	}
	if p.archive != nil {
		if archiveErr := p.archive.Save(ctx, record); archiveErr != nil {
			p.observer.LogError(ctx, "decision archive save failed", map[string]any{
				"record_id": record.ID,
				"error":     archiveErr.Error(),
			})
		}
	}

	p.observer.ObserveOperation(ctx, startedAt, "pipeline.process", nil, map[string]any{
		"topic":      string(event.Topic),
		"user_id":    event.UserID,
		"decisions":  len(decisions),
		"confidence": confidence,
		"executed":   executed,
	})

	return core.AnalysisResult{
		RecordID:      record.ID,
		Decisions:     decisions,
		Confidence:    confidence,
		Executed:      executed,
		ActionResults: results,
	}, nil
}

func (p *Processor) enrich(ctx context.Context, event core.Event) (core.EnrichedData, error) {
	if p.enricher == nil {
		return core.EnrichedData{Event: event}, nil
	}
	return p.enricher.Enrich(ctx, event)
}

// analyze runs extraction, evaluation, and scoring under a recover so an
// unexpected failure in any of them degrades to a recorded zero-confidence
// attempt instead of killing the drain loop.
func (p *Processor) analyze(
	data core.EnrichedData,
	pctx core.PipelineContext,
) (set core.FeatureSet, decisions []core.Decision, confidence float64, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			if set == nil {
				set = core.FeatureSet{}
			}
			err = goerrors.New(
				fmt.Sprintf("pipeline: analysis panicked: %v", recovered),
				goerrors.CategoryOperation,
			).WithTextCode(core.PipelineErrorAnalysisFailed)
		}
	}()

	set = features.Extract(data, pctx, p.now())
	if p.engine != nil {
		decisions = p.engine.Evaluate(set)
	}
	if p.scorer != nil {
		confidence = p.scorer.Score(data, set, decisions)
	}
	return set, decisions, confidence, nil
}
