package actions

import (
	"context"
	"sort"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"

	"github.com/fieldline/go-autopilot/core"
)

// Input carries everything an action implementation may act on for one
// decision.
type Input struct {
	Event    core.Event
	Data     core.EnrichedData
	Features core.FeatureSet
	Context  core.PipelineContext
	Decision core.Decision
}

// Action is one named, independently executed unit of work.
type Action interface {
	Name() string
	Execute(ctx context.Context, input Input) (map[string]any, error)
}

type ActionFunc struct {
	ActionName string
	Fn         func(ctx context.Context, input Input) (map[string]any, error)
}

func (a ActionFunc) Name() string {
	return a.ActionName
}

func (a ActionFunc) Execute(ctx context.Context, input Input) (map[string]any, error) {
	if a.Fn == nil {
		return nil, goerrors.New("actions: action has no implementation", goerrors.CategoryInternal).
			WithTextCode(core.PipelineErrorInternal)
	}
	return a.Fn(ctx, input)
}

// Registry maps action identifiers to implementations. Registration happens
// during composition; lookups at dispatch time are read-only.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
}

func NewRegistry(actions ...Action) *Registry {
	registry := &Registry{actions: map[string]Action{}}
	for _, action := range actions {
		registry.Register(action)
	}
	return registry
}

func (r *Registry) Register(action Action) {
	if r == nil || action == nil {
		return
	}
	name := strings.TrimSpace(action.Name())
	if name == "" {
		return
	}
	r.mu.Lock()
	r.actions[name] = action
	r.mu.Unlock()
}

func (r *Registry) Lookup(name string) (Action, error) {
	if r == nil {
		return nil, unknownAction(name)
	}
	r.mu.RLock()
	action, ok := r.actions[strings.TrimSpace(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, unknownAction(name)
	}
	return action, nil
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func unknownAction(name string) error {
	return goerrors.Wrap(core.ErrUnknownAction, goerrors.CategoryNotFound, "actions: unknown action").
		WithCode(404).
		WithTextCode(core.PipelineErrorUnknownAction).
		WithMetadata(map[string]any{"action": strings.TrimSpace(name)})
}
