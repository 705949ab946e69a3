package autopilot

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	jobqueue "github.com/goliatone/go-job/queue"

	"github.com/fieldline/go-autopilot/adapters/gojob"
	"github.com/fieldline/go-autopilot/adapters/gologger"
	"github.com/fieldline/go-autopilot/core"
)

// MaintenanceOptions wires a go-job queue into the archive upkeep jobs.
type MaintenanceOptions struct {
	Service        CommandQueryService
	Dequeuer       jobqueue.Dequeuer
	Retry          gojob.RetryPolicy
	Logger         core.Logger
	LoggerProvider core.LoggerProvider
	Hook           core.JobWorkerHook
	Now            func() time.Time
}

// MaintenanceWorker drains archive upkeep jobs from a go-job queue and runs
// them against the pipeline service. It understands archive flush, archive
// prune, and outcome sweep jobs; anything else is dead-lettered.
type MaintenanceWorker struct {
	service  CommandQueryService
	dequeuer core.JobDequeuer
	logger   core.Logger
	hook     core.JobWorkerHook
	now      func() time.Time

	mu       sync.Mutex
	attempts map[string]int
}

func NewMaintenanceWorker(opts MaintenanceOptions) (*MaintenanceWorker, error) {
	if opts.Service == nil {
		return nil, core.MapError(newRuntimeError("maintenance worker requires the pipeline service"))
	}
	if opts.Dequeuer == nil {
		return nil, core.MapError(newRuntimeError("maintenance worker requires a job dequeuer"))
	}
	bridge := gologger.Resolve("autopilot.maintenance", opts.LoggerProvider, opts.Logger)
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &MaintenanceWorker{
		service:  opts.Service,
		dequeuer: gojob.NewDequeuerAdapter(opts.Dequeuer, opts.Retry),
		logger:   bridge.Logger,
		hook:     opts.Hook,
		now:      now,
		attempts: map[string]int{},
	}, nil
}

// Run drains deliveries until the context is done or the queue fails.
func (w *MaintenanceWorker) Run(ctx context.Context) error {
	if w == nil {
		return core.MapError(errAutopilotNotConfigured)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.RunOnce(ctx); err != nil {
			return err
		}
	}
}

// RunOnce processes one delivery. Handler failures resolve through ack or
// nack; only queue-level failures surface as errors.
func (w *MaintenanceWorker) RunOnce(ctx context.Context) error {
	if w == nil {
		return core.MapError(errAutopilotNotConfigured)
	}
	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return core.MapError(err)
	}
	return w.handle(ctx, delivery)
}

func (w *MaintenanceWorker) handle(ctx context.Context, delivery core.JobDelivery) error {
	if delivery == nil {
		return nil
	}
	msg := delivery.Message()
	if msg == nil {
		return delivery.Nack(ctx, core.JobNackOptions{
			DeadLetter: true,
			Reason:     "maintenance delivery without a message",
		})
	}

	startedAt := w.now()
	attempt := w.bumpAttempt(msg)
	if w.hook != nil {
		w.hook.OnStart(ctx, core.JobWorkerEvent{Message: msg, Attempt: attempt, StartedAt: startedAt})
	}

	err := w.execute(ctx, msg)
	event := core.JobWorkerEvent{
		Message:   msg,
		Attempt:   attempt,
		Err:       err,
		StartedAt: startedAt,
		Duration:  w.now().Sub(startedAt),
	}
	if err == nil {
		w.clearAttempt(msg)
		if w.hook != nil {
			w.hook.OnSuccess(ctx, event)
		}
		return delivery.Ack(ctx)
	}

	if !core.IsRetryable(err) {
		w.clearAttempt(msg)
		if w.hook != nil {
			w.hook.OnFailure(ctx, event)
		}
		w.logger.Error("maintenance job failed", "job_id", msg.JobID, "error", err.Error())
		return w.nack(ctx, delivery, core.JobNackOptions{
			DeadLetter: true,
			Reason:     err.Error(),
		}, attempt)
	}

	if w.hook != nil {
		w.hook.OnRetry(ctx, event)
	}
	w.logger.Warn("maintenance job will retry", "job_id", msg.JobID, "attempt", attempt, "error", err.Error())
	return w.nack(ctx, delivery, core.JobNackOptions{
		Requeue: true,
		Reason:  err.Error(),
	}, attempt)
}

func (w *MaintenanceWorker) execute(ctx context.Context, msg *core.JobExecutionMessage) error {
	switch strings.TrimSpace(msg.JobID) {
	case gojob.JobIDArchiveFlush:
		limit, _ := intParameter(msg.Parameters, "limit")
		flushed, err := w.service.FlushArchive(ctx, limit)
		if err != nil {
			return err
		}
		w.logger.Info("archive flush completed", "flushed", flushed)
		return nil

	case gojob.JobIDArchivePrune:
		days, ok := intParameter(msg.Parameters, "retention_days")
		if !ok || days <= 0 {
			return maintenanceInvalid("maintenance: archive prune requires a positive retention_days parameter")
		}
		pruned, err := w.service.PruneArchive(ctx, days)
		if err != nil {
			return err
		}
		w.logger.Info("archive prune completed", "pruned", pruned, "retention_days", days)
		return nil

	case gojob.JobIDOutcomeSweep:
		recordID, _ := msg.Parameters["record_id"].(string)
		outcome, _ := msg.Parameters["outcome"].(string)
		if strings.TrimSpace(recordID) == "" || strings.TrimSpace(outcome) == "" {
			return maintenanceInvalid("maintenance: outcome sweep requires record_id and outcome parameters")
		}
		return w.service.ReportOutcome(ctx, recordID, core.Outcome(outcome))

	default:
		return maintenanceInvalid("maintenance: unknown job id " + msg.JobID)
	}
}

// nack prefers the attempt-aware path so the retry policy caps requeues.
func (w *MaintenanceWorker) nack(ctx context.Context, delivery core.JobDelivery, opts core.JobNackOptions, attempt int) error {
	type attemptNacker interface {
		NackForAttempt(ctx context.Context, opts core.JobNackOptions, attempt int) error
	}
	if nacker, ok := delivery.(attemptNacker); ok {
		return nacker.NackForAttempt(ctx, opts, attempt)
	}
	return delivery.Nack(ctx, opts)
}

func (w *MaintenanceWorker) bumpAttempt(msg *core.JobExecutionMessage) int {
	key := attemptKey(msg)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts[key]++
	return w.attempts[key]
}

func (w *MaintenanceWorker) clearAttempt(msg *core.JobExecutionMessage) {
	key := attemptKey(msg)
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.attempts, key)
}

func attemptKey(msg *core.JobExecutionMessage) string {
	if key := strings.TrimSpace(msg.IdempotencyKey); key != "" {
		return key
	}
	return strings.TrimSpace(msg.JobID)
}

func maintenanceInvalid(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.PipelineErrorBadInput)
}

func intParameter(params map[string]any, key string) (int, bool) {
	switch value := params[key].(type) {
	case int:
		return value, true
	case int64:
		return int(value), true
	case float64:
		return int(value), true
	default:
		return 0, false
	}
}
