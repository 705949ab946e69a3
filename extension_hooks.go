package autopilot

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fieldline/go-autopilot/actions"
	"github.com/fieldline/go-autopilot/rules"
)

// RulePack is a named group of evaluation rules that downstream deployments
// layer on top of the built-in table.
type RulePack struct {
	Name  string
	Rules []rules.Rule
}

// ActionPack is a named group of dispatchable actions registered alongside
// the built-ins.
type ActionPack struct {
	Name    string
	Actions []actions.Action
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

// ExtensionHooks collects rule packs, action packs, and command/query bundle
// factories contributed by embedding applications before the runtime is
// assembled.
type ExtensionHooks struct {
	mu sync.RWMutex

	rulePacks   map[string]RulePack
	actionPacks map[string]ActionPack
	bundles     map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		rulePacks:   map[string]RulePack{},
		actionPacks: map[string]ActionPack{},
		bundles:     map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterRulePack(pack RulePack) error {
	if h == nil {
		return fmt.Errorf("autopilot: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("autopilot: rule pack name is required")
	}
	if len(pack.Rules) == 0 {
		return fmt.Errorf("autopilot: rule pack %q has no rules", name)
	}
	for _, rule := range pack.Rules {
		if strings.TrimSpace(rule.Name) == "" {
			return fmt.Errorf("autopilot: rule pack %q contains an unnamed rule", name)
		}
	}

	normalized := RulePack{
		Name:  name,
		Rules: append([]rules.Rule(nil), pack.Rules...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.rulePacks[name]; exists {
		return fmt.Errorf("autopilot: rule pack %q already registered", name)
	}
	h.rulePacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterActionPack(pack ActionPack) error {
	if h == nil {
		return fmt.Errorf("autopilot: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("autopilot: action pack name is required")
	}
	if len(pack.Actions) == 0 {
		return fmt.Errorf("autopilot: action pack %q has no actions", name)
	}

	normalized := ActionPack{
		Name:    name,
		Actions: append([]actions.Action(nil), pack.Actions...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.actionPacks[name]; exists {
		return fmt.Errorf("autopilot: action pack %q already registered", name)
	}
	h.actionPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("autopilot: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("autopilot: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("autopilot: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("autopilot: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// RuleTable appends every registered rule pack, in pack name order, to the
// base table. The base rules keep precedence on equal priority.
func (h *ExtensionHooks) RuleTable(base []rules.Rule) []rules.Rule {
	out := append([]rules.Rule(nil), base...)
	if h == nil {
		return out
	}
	for _, pack := range h.RulePacks() {
		out = append(out, pack.Rules...)
	}
	return out
}

// ApplyActionPacks registers every pack action on the registry. Actions with
// duplicate names overwrite earlier registrations, so pack name order is the
// tie-break.
func (h *ExtensionHooks) ApplyActionPacks(registry *actions.Registry) error {
	if h == nil {
		return nil
	}
	if registry == nil {
		return fmt.Errorf("autopilot: action registry is required")
	}

	for _, pack := range h.ActionPacks() {
		for _, action := range pack.Actions {
			if action == nil {
				return fmt.Errorf("autopilot: action pack %q contains nil action", pack.Name)
			}
			registry.Register(action)
		}
	}
	return nil
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("autopilot: command/query service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) RulePacks() []RulePack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.rulePacks))
	for name := range h.rulePacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]RulePack, 0, len(names))
	for _, name := range names {
		pack := h.rulePacks[name]
		out = append(out, RulePack{
			Name:  pack.Name,
			Rules: append([]rules.Rule(nil), pack.Rules...),
		})
	}
	return out
}

func (h *ExtensionHooks) ActionPacks() []ActionPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.actionPacks))
	for name := range h.actionPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ActionPack, 0, len(names))
	for _, name := range names {
		pack := h.actionPacks[name]
		out = append(out, ActionPack{
			Name:    pack.Name,
			Actions: append([]actions.Action(nil), pack.Actions...),
		})
	}
	return out
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
