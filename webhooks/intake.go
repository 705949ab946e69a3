package webhooks

import (
	"context"
	"errors"
	"time"

	"github.com/fieldline/go-autopilot/core"
)

// Enqueuer hands an accepted event to the processing queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, event core.Event, pctx core.PipelineContext) error
}

type IntakeOptions struct {
	Verifier Verifier
	Burst    BurstController
	Queue    Enqueuer
	Stats    *core.StatsTracker
	Observer *core.Observer
	Now      func() time.Time
}

// Intake is the webhook front door. It authenticates the delivery, parses the
// event, coalesces bursts, and enqueues the event. Acceptance only means the
// event reached the queue; processing outcomes surface through stats.
type Intake struct {
	verifier Verifier
	burst    BurstController
	queue    Enqueuer
	stats    *core.StatsTracker
	observer *core.Observer
	now      func() time.Time
}

func NewIntake(opts IntakeOptions) *Intake {
	observer := opts.Observer
	if observer == nil {
		observer = core.NopObserver()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Intake{
		verifier: opts.Verifier,
		burst:    opts.Burst,
		queue:    opts.Queue,
		stats:    opts.Stats,
		observer: observer,
		now:      now,
	}
}

func (i *Intake) Receive(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
	if i == nil {
		return core.InboundResult{}, core.MapError(errors.New("webhooks: intake is required"))
	}
	startedAt := i.now()

	if i.verifier != nil {
		if err := i.verifier.Verify(ctx, req); err != nil {
			mapped := core.MapError(err)
			i.observer.ObserveOperation(ctx, startedAt, "webhook.receive", mapped, map[string]any{
				"stage": "verify",
			})
			return rejected(mapped.Code), mapped
		}
	}

	event, err := ParseEvent(req.Body)
	if err != nil {
		mapped := core.MapError(err)
		i.observer.ObserveOperation(ctx, startedAt, "webhook.receive", mapped, map[string]any{
			"stage": "parse",
		})
		return rejected(mapped.Code), mapped
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = i.now()
	}

	// Every verified delivery counts as received, including the ones the
	// burst controller coalesces away.
	if i.stats != nil {
		i.stats.RecordReceived(event)
	}

	if i.burst != nil {
		decision, burstErr := i.burst.Allow(ctx, event)
		if burstErr != nil {
			mapped := core.MapError(burstErr)
			i.observer.ObserveOperation(ctx, startedAt, "webhook.receive", mapped, map[string]any{
				"stage": "burst",
				"topic": string(event.Topic),
			})
			return rejected(mapped.Code), mapped
		}
		if !decision.Allow {
			i.observer.ObserveOperation(ctx, startedAt, "webhook.coalesce", nil, map[string]any{
				"topic":   string(event.Topic),
				"item_id": event.ItemID,
				"user_id": event.UserID,
			})
			return core.InboundResult{
				Accepted:   true,
				StatusCode: 200,
				Metadata:   decision.Metadata,
			}, nil
		}
	}

	pctx := pipelineContextFromMetadata(req.Metadata)
	if i.queue != nil {
		if err := i.queue.Enqueue(ctx, event, pctx); err != nil {
			mapped := core.MapError(err)
			i.observer.ObserveOperation(ctx, startedAt, "webhook.receive", mapped, map[string]any{
				"stage":   "enqueue",
				"topic":   string(event.Topic),
				"user_id": event.UserID,
			})
			return rejected(mapped.Code), mapped
		}
	}

	i.observer.ObserveOperation(ctx, startedAt, "webhook.receive", nil, map[string]any{
		"topic":   string(event.Topic),
		"item_id": event.ItemID,
		"user_id": event.UserID,
	})
	return core.InboundResult{
		Accepted:   true,
		StatusCode: 202,
		Metadata: map[string]any{
			"topic":   string(event.Topic),
			"item_id": event.ItemID,
		},
	}, nil
}

func rejected(statusCode int) core.InboundResult {
	if statusCode <= 0 {
		statusCode = 500
	}
	return core.InboundResult{Accepted: false, StatusCode: statusCode}
}

func pipelineContextFromMetadata(metadata map[string]any) core.PipelineContext {
	pctx := core.PipelineContext{}
	if metadata == nil {
		return pctx
	}
	if raw, ok := metadata["current_capacity"]; ok {
		if value, ok := toInt(raw); ok {
			pctx.CurrentCapacity = value
		}
	}
	if raw, ok := metadata["available_technicians"]; ok {
		if names, ok := raw.([]string); ok {
			pctx.AvailableTechnicians = append([]string(nil), names...)
		}
	}
	return pctx
}

func toInt(raw any) (int, bool) {
	switch value := raw.(type) {
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
