package autopilot_test

import (
	"context"
	"sync"
	"testing"
	"time"

	autopilot "github.com/fieldline/go-autopilot"
	"github.com/fieldline/go-autopilot/actions"
	"github.com/fieldline/go-autopilot/core"
	"github.com/fieldline/go-autopilot/rules"
)

// A downstream deployment extends the pipeline purely through the public
// surface: rule packs, action packs, and command/query bundles. It never
// reaches into queue, enrichment, or dispatch internals.
func TestDownstreamComposition_ExtendsPipelineWithoutOwningRuntimeInternals(t *testing.T) {
	clock := func() time.Time {
		return time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)
	}

	pager := &downstreamPager{}
	hooks := autopilot.NewExtensionHooks()
	if err := hooks.RegisterRulePack(autopilot.RulePack{
		Name: "vip-clients",
		Rules: []rules.Rule{
			{
				Name:     "vip_client_page",
				Priority: 90,
				Conditions: []rules.Condition{
					rules.KeywordCondition{Feature: "client_name", Keywords: []string{"acme"}},
				},
				Actions: []string{"page_account_manager"},
			},
		},
	}); err != nil {
		t.Fatalf("register rule pack: %v", err)
	}
	if err := hooks.RegisterActionPack(autopilot.ActionPack{
		Name: "vip-clients",
		Actions: []actions.Action{
			actions.ActionFunc{
				ActionName: "page_account_manager",
				Fn: func(_ context.Context, input actions.Input) (map[string]any, error) {
					pager.record(input.Event.ItemID)
					return map[string]any{"paged": true}, nil
				},
			},
		},
	}); err != nil {
		t.Fatalf("register action pack: %v", err)
	}
	if err := hooks.RegisterCommandQueryBundle("vip-reporting", func(service autopilot.CommandQueryService) (any, error) {
		return vipReportingBundle{service: service}, nil
	}); err != nil {
		t.Fatalf("register bundle: %v", err)
	}

	service, err := autopilot.New(context.Background(), autopilot.Options{
		Enricher: vipEnricher{},
		Notifier: silentNotifier{},
		Hooks:    hooks,
		Now:      clock,
	})
	if err != nil {
		t.Fatalf("new autopilot: %v", err)
	}

	result, err := service.Process(context.Background(), core.Event{
		Topic:      core.TopicClientCreate,
		ItemID:     "c1",
		UserID:     "u-angelo",
		OccurredAt: clock(),
	}, core.PipelineContext{CurrentCapacity: 1})
	if err != nil {
		t.Fatalf("process vip event: %v", err)
	}
	if !result.Executed {
		t.Fatalf("expected pack rule to dispatch, got %#v", result)
	}
	matched := false
	for _, decision := range result.Decisions {
		if decision.Rule == "vip_client_page" {
			matched = true
		}
	}
	if !matched {
		t.Fatalf("expected vip_client_page decision, got %#v", result.Decisions)
	}
	if pager.count() != 1 {
		t.Fatalf("expected pack action execution, got %d", pager.count())
	}

	bundles, err := hooks.BuildCommandQueryBundles(service)
	if err != nil {
		t.Fatalf("build bundles: %v", err)
	}
	bundle, ok := bundles["vip-reporting"].(vipReportingBundle)
	if !ok {
		t.Fatalf("expected vip reporting bundle, got %#v", bundles)
	}
	if processed := bundle.ProcessedCount(); processed != 1 {
		t.Fatalf("expected one processed event through bundle, got %d", processed)
	}
}

type vipEnricher struct{}

func (vipEnricher) Enrich(_ context.Context, event core.Event) (core.EnrichedData, error) {
	return core.EnrichedData{
		Event: event,
		Entity: core.EntitySnapshot{
			Kind:       core.EntityKindClient,
			Title:      "New client onboarding",
			ClientName: "Acme Industrial",
		},
		Enriched:        true,
		Creator:         "Angelo",
		CreatorResolved: true,
	}, nil
}

type silentNotifier struct{}

func (silentNotifier) Send(context.Context, string, string) error { return nil }

type downstreamPager struct {
	mu    sync.Mutex
	items []string
}

func (p *downstreamPager) record(itemID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, itemID)
}

func (p *downstreamPager) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

type vipReportingBundle struct {
	service autopilot.CommandQueryService
}

func (b vipReportingBundle) ProcessedCount() int64 {
	return b.service.Snapshot().Processed
}
