package actions

import (
	"context"
	"time"

	"github.com/fieldline/go-autopilot/core"
)

// Dispatcher runs the action lists of matched decisions. Decisions arrive
// already sorted by priority; actions run in listed order within each
// decision. Failures are recorded per action and never abort the batch.
type Dispatcher struct {
	registry *Registry
	observer *core.Observer
	now      func() time.Time
}

func NewDispatcher(registry *Registry, observer *core.Observer) *Dispatcher {
	if observer == nil {
		observer = core.NopObserver()
	}
	return &Dispatcher{
		registry: registry,
		observer: observer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, decisions []core.Decision, input Input) []core.ActionResult {
	if d == nil {
		return nil
	}

	results := make([]core.ActionResult, 0, len(decisions))
	for _, decision := range decisions {
		for _, name := range decision.Actions {
			input.Decision = decision
			results = append(results, d.execute(ctx, name, input))
		}
	}
	return results
}

func (d *Dispatcher) execute(ctx context.Context, name string, input Input) core.ActionResult {
	startedAt := d.now()
	fields := map[string]any{
		"action": name,
		"rule":   input.Decision.Rule,
		"topic":  string(input.Event.Topic),
	}

	action, err := d.registry.Lookup(name)
	if err != nil {
		d.observer.ObserveOperation(ctx, startedAt, "action.execute", err, fields)
		return core.ActionResult{Action: name, Success: false, Error: err.Error()}
	}

	result, err := action.Execute(ctx, input)
	if err != nil {
		d.observer.ObserveOperation(ctx, startedAt, "action.execute", err, fields)
		return core.ActionResult{Action: name, Success: false, Error: err.Error()}
	}

	d.observer.ObserveOperation(ctx, startedAt, "action.execute", nil, fields)
	return core.ActionResult{Action: name, Success: true, Result: result}
}
