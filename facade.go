package autopilot

import (
	"context"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/fieldline/go-autopilot/actions"
	"github.com/fieldline/go-autopilot/adapters/gocommand"
	"github.com/fieldline/go-autopilot/auth"
	autopilotcommand "github.com/fieldline/go-autopilot/command"
	"github.com/fieldline/go-autopilot/confidence"
	"github.com/fieldline/go-autopilot/core"
	"github.com/fieldline/go-autopilot/enrichment"
	"github.com/fieldline/go-autopilot/pipeline"
	autopilotquery "github.com/fieldline/go-autopilot/query"
	"github.com/fieldline/go-autopilot/queue"
	"github.com/fieldline/go-autopilot/rules"
	"github.com/fieldline/go-autopilot/security"
	"github.com/fieldline/go-autopilot/transport"
	"github.com/fieldline/go-autopilot/webhooks"
)

var (
	errAutopilotNotConfigured = newRuntimeError("autopilot runtime is not assembled")
	errArchiveNotConfigured   = newRuntimeError("decision archive is not configured")
)

func newRuntimeError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.PipelineErrorInternal)
}

// Options collects the injectable pieces of an Autopilot runtime. Every
// field is optional; zero values fall back to the resolved configuration.
type Options struct {
	ConfigProvider  core.ConfigProvider
	OptionsResolver core.OptionsResolver
	// Runtime layers programmatic overrides on top of loaded configuration.
	Runtime core.Config

	Logger         core.Logger
	LoggerProvider core.LoggerProvider
	Metrics        core.MetricsRecorder

	HTTPClient  *http.Client
	Notifier    core.Notifier
	Archive     core.DecisionArchive
	Enricher    pipeline.Enricher
	Rules       []rules.Rule
	Actions     *actions.Registry
	Burst       webhooks.BurstController
	RosterCache repositorycache.CacheService
	Hooks       *ExtensionHooks

	Now func() time.Time
}

// Autopilot is the assembled pipeline runtime: webhook intake, queue,
// enrichment, rule evaluation, confidence gating, and action dispatch.
type Autopilot struct {
	cfg      core.Config
	observer *core.Observer
	ring     *security.SecretRing

	intake    *webhooks.Intake
	queue     *queue.MemoryQueue
	processor *pipeline.Processor
	history   *core.DecisionHistory
	stats     *core.StatsTracker
	archive   core.DecisionArchive
}

func New(ctx context.Context, opts Options) (*Autopilot, error) {
	defaults := core.DefaultConfig()
	loaded := defaults
	if opts.ConfigProvider != nil {
		var err error
		loaded, err = opts.ConfigProvider.Load(ctx, defaults)
		if err != nil {
			return nil, err
		}
	}
	resolver := opts.OptionsResolver
	if resolver == nil {
		resolver = core.GoOptionsResolver{}
	}
	cfg, err := resolver.Resolve(defaults, loaded, opts.Runtime)
	if err != nil {
		return nil, err
	}

	observer := core.NewObserver(cfg.ServiceName, opts.LoggerProvider, opts.Logger, opts.Metrics)
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	history := core.NewDecisionHistory(cfg.History.MaxEntries)
	stats := core.NewStatsTracker()

	enricher := opts.Enricher
	if enricher == nil {
		enricher = buildPlatformEnricher(cfg, opts, observer, now)
	}

	table := opts.Rules
	if len(table) == 0 {
		table = rules.DefaultTable()
	}
	table = opts.Hooks.RuleTable(table)
	registry := opts.Actions
	if registry == nil {
		registry = actions.DefaultRegistry(opts.Notifier)
	}
	if err := opts.Hooks.ApplyActionPacks(registry); err != nil {
		return nil, err
	}

	processor := pipeline.NewProcessor(pipeline.Options{
		Enricher:   enricher,
		Engine:     rules.NewEngine(table),
		Scorer:     confidence.NewScorer(history),
		Dispatcher: actions.NewDispatcher(registry, observer),
		History:    history,
		Stats:      stats,
		Archive:    opts.Archive,
		Observer:   observer,
		Threshold:  cfg.Confidence.Threshold,
		Now:        now,
	})

	memQueue := queue.NewMemoryQueue(queue.Options{
		Config:   cfg.Queue,
		Handler:  processor,
		Stats:    stats,
		Observer: observer,
		Now:      now,
	})

	var ring *security.SecretRing
	var verifier webhooks.Verifier
	if cfg.Webhook.Secret != "" {
		ring, err = security.NewSecretRing(cfg.Webhook.Secret, cfg.Webhook.PreviousSecret)
		if err != nil {
			return nil, err
		}
		verifier = webhooks.HMACVerifier{
			Header:   cfg.Webhook.SignatureHeader,
			Prefix:   cfg.Webhook.SignaturePrefix,
			Encoding: cfg.Webhook.SignatureEncoding,
			Secrets:  ring,
		}
	}

	burst := opts.Burst
	if burst == nil && strings.EqualFold(strings.TrimSpace(cfg.Webhook.BurstMode), string(webhooks.BurstModeCoalesce)) {
		burst = webhooks.NewBurstController(webhooks.BurstOptions{
			Mode:   webhooks.BurstModeCoalesce,
			Window: cfg.Webhook.BurstWindow,
			Now:    now,
		})
	}

	intake := webhooks.NewIntake(webhooks.IntakeOptions{
		Verifier: verifier,
		Burst:    burst,
		Queue:    memQueue,
		Stats:    stats,
		Observer: observer,
		Now:      now,
	})

	return &Autopilot{
		cfg:       cfg,
		observer:  observer,
		ring:      ring,
		intake:    intake,
		queue:     memQueue,
		processor: processor,
		history:   history,
		stats:     stats,
		archive:   opts.Archive,
	}, nil
}

func buildPlatformEnricher(cfg core.Config, opts Options, observer *core.Observer, now func() time.Time) pipeline.Enricher {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Platform.CallTimeout}
	}

	rest := transport.NewRESTAdapter(httpClient)
	if cfg.Platform.TokenURL != "" {
		rest.Tokens = auth.NewClientCredentialsTokenSource(auth.ClientCredentialsConfig{
			TokenURL:     cfg.Platform.TokenURL,
			ClientID:     cfg.Platform.ClientID,
			ClientSecret: cfg.Platform.ClientSecret,
			Now:          now,
		}, httpClient)
	}
	graphql := transport.NewGraphQLAdapter(cfg.Platform.Endpoint, rest)

	roster := enrichment.NewPlatformRoster(graphql)
	if opts.RosterCache != nil {
		roster = enrichment.NewCachedRoster(roster, opts.RosterCache)
	}

	return enrichment.NewGateway(enrichment.GatewayOptions{
		Client:   graphql,
		Roster:   roster,
		Throttle: enrichment.NewThrottle(now),
		Observer: observer,
		Now:      now,
	})
}

// Config returns the resolved runtime configuration.
func (a *Autopilot) Config() core.Config {
	if a == nil {
		return core.Config{}
	}
	return a.cfg
}

// Receive runs the webhook intake for one inbound delivery.
func (a *Autopilot) Receive(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
	if a == nil || a.intake == nil {
		return core.InboundResult{}, core.MapError(errAutopilotNotConfigured)
	}
	return a.intake.Receive(ctx, req)
}

// Process bypasses the queue and runs the pipeline synchronously.
func (a *Autopilot) Process(ctx context.Context, event core.Event, pctx core.PipelineContext) (core.AnalysisResult, error) {
	if a == nil || a.processor == nil {
		return core.AnalysisResult{}, core.MapError(errAutopilotNotConfigured)
	}
	return a.processor.Process(ctx, event, pctx)
}

// ReportOutcome resolves a pending decision record with out-of-band
// feedback and mirrors the resolution into the archive when one is wired.
func (a *Autopilot) ReportOutcome(ctx context.Context, recordID string, outcome core.Outcome) error {
	if a == nil || a.history == nil {
		return core.MapError(errAutopilotNotConfigured)
	}
	if err := a.history.ReportOutcome(recordID, outcome); err != nil {
		return core.MapError(err)
	}
	if a.archive != nil {
		if err := a.archive.SaveOutcome(ctx, recordID, outcome); err != nil {
			a.observer.LogError(ctx, "archive outcome write failed", map[string]any{
				"record_id": recordID,
				"error":     err.Error(),
			})
		}
	}
	return nil
}

// FlushArchive re-syncs resolved history records into the archive. Records
// whose outcome rows are missing are re-saved wholesale.
func (a *Autopilot) FlushArchive(ctx context.Context, limit int) (int, error) {
	if a == nil || a.history == nil {
		return 0, core.MapError(errAutopilotNotConfigured)
	}
	if a.archive == nil {
		return 0, core.MapError(errArchiveNotConfigured)
	}
	if limit <= 0 {
		limit = a.history.Len()
	}
	flushed := 0
	for _, record := range a.history.Recent(limit) {
		if record.Outcome == core.OutcomePending {
			continue
		}
		if err := a.archive.SaveOutcome(ctx, record.ID, record.Outcome); err != nil {
			if saveErr := a.archive.Save(ctx, record); saveErr != nil {
				a.observer.LogError(ctx, "archive flush failed", map[string]any{
					"record_id": record.ID,
					"error":     saveErr.Error(),
				})
				continue
			}
		}
		flushed++
	}
	return flushed, nil
}

// PruneArchive deletes archived records older than the retention window.
func (a *Autopilot) PruneArchive(ctx context.Context, retentionDays int) (int, error) {
	if a == nil {
		return 0, core.MapError(errAutopilotNotConfigured)
	}
	if a.archive == nil {
		return 0, core.MapError(errArchiveNotConfigured)
	}
	pruner, ok := a.archive.(interface {
		Prune(ctx context.Context, retention time.Duration) (int, error)
	})
	if !ok {
		return 0, nil
	}
	return pruner.Prune(ctx, time.Duration(retentionDays)*24*time.Hour)
}

// Snapshot returns the intake counters.
func (a *Autopilot) Snapshot() core.StatsSnapshot {
	if a == nil {
		return core.StatsSnapshot{}
	}
	return a.stats.Snapshot()
}

// Aggregate returns decision-outcome metrics from the history ring.
func (a *Autopilot) Aggregate() core.PerformanceMetrics {
	if a == nil {
		return core.PerformanceMetrics{}
	}
	return a.history.Aggregate()
}

// Recent returns up to limit decision records, newest first.
func (a *Autopilot) Recent(limit int) []core.DecisionRecord {
	if a == nil {
		return nil
	}
	return a.history.Recent(limit)
}

// List pages through the persisted decision archive.
func (a *Autopilot) List(ctx context.Context, filter core.ArchiveFilter) ([]core.DecisionRecord, error) {
	if a == nil {
		return nil, core.MapError(errAutopilotNotConfigured)
	}
	if a.archive == nil {
		return nil, core.MapError(errArchiveNotConfigured)
	}
	return a.archive.List(ctx, filter)
}

// RotateWebhookSecret promotes next to the active signing secret and keeps
// the old one valid for the rotation window.
func (a *Autopilot) RotateWebhookSecret(next string) error {
	if a == nil || a.ring == nil {
		return core.MapError(errAutopilotNotConfigured)
	}
	return a.ring.Rotate(next)
}

// QueueDepth reports how many events are waiting in the in-memory queue.
func (a *Autopilot) QueueDepth() int {
	if a == nil {
		return 0
	}
	return a.queue.Len()
}

// Shutdown stops intake processing and waits for active drains.
func (a *Autopilot) Shutdown(ctx context.Context) error {
	if a == nil || a.queue == nil {
		return nil
	}
	return a.queue.Shutdown(ctx)
}

// CommandQueryService is the surface the command and query handlers need.
type CommandQueryService interface {
	autopilotcommand.EventProcessor
	autopilotcommand.OutcomeReporter
	autopilotcommand.ArchiveMaintainer
	autopilotquery.StatsReader
	autopilotquery.PerformanceReader
	autopilotquery.HistoryReader
}

type Commands struct {
	ProcessEvent  *autopilotcommand.ProcessEventCommand
	ReportOutcome *autopilotcommand.ReportOutcomeCommand
	FlushArchive  *autopilotcommand.FlushArchiveCommand
	PruneArchive  *autopilotcommand.PruneArchiveCommand
}

type Queries struct {
	LoadStats           *autopilotquery.LoadStatsQuery
	LoadPerformance     *autopilotquery.LoadPerformanceQuery
	ListRecentDecisions *autopilotquery.ListRecentDecisionsQuery
	ListArchive         *autopilotquery.ListArchiveQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	archiveReader autopilotquery.ArchiveReader
}

func WithArchiveReader(reader autopilotquery.ArchiveReader) FacadeOption {
	return func(options *facadeOptions) {
		options.archiveReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, core.MapError(errAutopilotNotConfigured)
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.archiveReader
	if reader == nil {
		if candidate, ok := service.(autopilotquery.ArchiveReader); ok {
			reader = candidate
		}
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		ProcessEvent:  autopilotcommand.NewProcessEventCommand(service),
		ReportOutcome: autopilotcommand.NewReportOutcomeCommand(service),
		FlushArchive:  autopilotcommand.NewFlushArchiveCommand(service),
		PruneArchive:  autopilotcommand.NewPruneArchiveCommand(service),
	}
	facade.queries = Queries{
		LoadStats:           autopilotquery.NewLoadStatsQuery(service),
		LoadPerformance:     autopilotquery.NewLoadPerformanceQuery(service),
		ListRecentDecisions: autopilotquery.NewListRecentDecisionsQuery(service),
		ListArchive:         autopilotquery.NewListArchiveQuery(reader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// BindCommandBus registers every command and query handler on the dispatcher
// through the shared registry adapter. A failure unwinds the registrations
// already made; the returned set unwinds the rest when the caller is done.
func (f *Facade) BindCommandBus(adapter *gocommand.RegistryAdapter) (*gocommand.SubscriptionSet, error) {
	if f == nil {
		return nil, core.MapError(errAutopilotNotConfigured)
	}
	set := &gocommand.SubscriptionSet{}
	bind := func(sub gocommand.Subscription, err error) error {
		if err != nil {
			set.Unsubscribe()
			return core.MapError(err)
		}
		set.Add(sub)
		return nil
	}

	if err := bind(gocommand.RegisterAndSubscribe(adapter, f.commands.ProcessEvent)); err != nil {
		return nil, err
	}
	if err := bind(gocommand.RegisterAndSubscribe(adapter, f.commands.ReportOutcome)); err != nil {
		return nil, err
	}
	if err := bind(gocommand.RegisterAndSubscribe(adapter, f.commands.FlushArchive)); err != nil {
		return nil, err
	}
	if err := bind(gocommand.RegisterAndSubscribe(adapter, f.commands.PruneArchive)); err != nil {
		return nil, err
	}
	if err := bind(gocommand.RegisterAndSubscribeQuery(adapter, f.queries.LoadStats)); err != nil {
		return nil, err
	}
	if err := bind(gocommand.RegisterAndSubscribeQuery(adapter, f.queries.LoadPerformance)); err != nil {
		return nil, err
	}
	if err := bind(gocommand.RegisterAndSubscribeQuery(adapter, f.queries.ListRecentDecisions)); err != nil {
		return nil, err
	}
	if err := bind(gocommand.RegisterAndSubscribeQuery(adapter, f.queries.ListArchive)); err != nil {
		return nil, err
	}
	return set, nil
}

var _ CommandQueryService = (*Autopilot)(nil)
var _ autopilotquery.ArchiveReader = (*Autopilot)(nil)
