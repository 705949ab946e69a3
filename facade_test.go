package autopilot

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/fieldline/go-autopilot/adapters/gocommand"
	autopilotcommand "github.com/fieldline/go-autopilot/command"
	"github.com/fieldline/go-autopilot/core"
	autopilotquery "github.com/fieldline/go-autopilot/query"
)

func facadeClock() time.Time {
	return time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)
}

type facadeEnricher struct{}

func (facadeEnricher) Enrich(_ context.Context, event core.Event) (core.EnrichedData, error) {
	return core.EnrichedData{
		Event: event,
		Entity: core.EntitySnapshot{
			Kind:  core.EntityKindJob,
			Title: "Emergency leak in basement",
		},
		Enriched: true,
	}, nil
}

type facadeNotifier struct {
	mu    sync.Mutex
	sends []string
}

func (n *facadeNotifier) Send(_ context.Context, channel string, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = append(n.sends, channel)
	return nil
}

func (n *facadeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sends)
}

type memoryArchive struct {
	mu      sync.Mutex
	records map[string]core.DecisionRecord
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{records: map[string]core.DecisionRecord{}}
}

func (a *memoryArchive) Save(_ context.Context, record core.DecisionRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records[record.ID] = record
	return nil
}

func (a *memoryArchive) SaveOutcome(_ context.Context, recordID string, outcome core.Outcome) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	record, ok := a.records[recordID]
	if !ok {
		return core.ErrRecordNotFound
	}
	record.Outcome = outcome
	a.records[recordID] = record
	return nil
}

func (a *memoryArchive) List(_ context.Context, filter core.ArchiveFilter) ([]core.DecisionRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []core.DecisionRecord
	for _, record := range a.records {
		if filter.UserID != "" && record.Event.UserID != filter.UserID {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (a *memoryArchive) Prune(_ context.Context, retention time.Duration) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cutoff := facadeClock().Add(-retention)
	pruned := 0
	for id, record := range a.records {
		if record.Timestamp.Before(cutoff) {
			delete(a.records, id)
			pruned++
		}
	}
	return pruned, nil
}

func (a *memoryArchive) get(recordID string) (core.DecisionRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	record, ok := a.records[recordID]
	return record, ok
}

func (a *memoryArchive) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = map[string]core.DecisionRecord{}
}

func newTestAutopilot(t *testing.T, mutate func(*Options)) (*Autopilot, *facadeNotifier, *memoryArchive) {
	t.Helper()
	notifier := &facadeNotifier{}
	archive := newMemoryArchive()
	opts := Options{
		Enricher: facadeEnricher{},
		Notifier: notifier,
		Archive:  archive,
		Now:      facadeClock,
	}
	if mutate != nil {
		mutate(&opts)
	}
	service, err := New(context.Background(), opts)
	if err != nil {
		t.Fatalf("new autopilot: %v", err)
	}
	return service, notifier, archive
}

func emergencyJobEvent(itemID, userID string) core.Event {
	return core.Event{
		Topic:      core.TopicJobCreate,
		ItemID:     itemID,
		UserID:     userID,
		UserName:   "Austin",
		OccurredAt: facadeClock(),
	}
}

func TestNew_ProcessRunsPipelineEndToEnd(t *testing.T) {
	service, notifier, archive := newTestAutopilot(t, nil)

	result, err := service.Process(context.Background(), emergencyJobEvent("j1", "u-austin"), core.PipelineContext{
		CurrentCapacity:      2,
		AvailableTechnicians: []string{"t-1"},
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !result.Executed {
		t.Fatalf("expected emergency decision to dispatch, got %#v", result)
	}
	if result.RecordID == "" {
		t.Fatalf("expected a decision record id")
	}
	if notifier.count() == 0 {
		t.Fatalf("expected notifier to fire for emergency actions")
	}

	recent := service.Recent(1)
	if len(recent) != 1 || recent[0].ID != result.RecordID {
		t.Fatalf("unexpected recent records: %#v", recent)
	}
	if _, ok := archive.get(result.RecordID); !ok {
		t.Fatalf("expected decision record in archive")
	}
	snapshot := service.Snapshot()
	if snapshot.Processed != 1 || snapshot.Failed != 0 {
		t.Fatalf("unexpected stats snapshot: %#v", snapshot)
	}
}

func TestNew_ReceiveVerifiesSignatureAndDrainsQueue(t *testing.T) {
	service, _, _ := newTestAutopilot(t, func(opts *Options) {
		opts.Runtime.Webhook.Secret = "s3cret"
	})

	body := []byte(`{"topic":"JOB_CREATE","itemId":"j1","userId":"u-austin"}`)
	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	result, err := service.Receive(context.Background(), core.InboundRequest{
		Headers:  map[string]string{"X-Autopilot-Signature": signature},
		Body:     body,
		Metadata: map[string]any{"current_capacity": 2},
	})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("expected delivery to be accepted: %#v", result)
	}

	if _, err := service.Receive(context.Background(), core.InboundRequest{
		Headers: map[string]string{"X-Autopilot-Signature": "deadbeef"},
		Body:    body,
	}); err == nil {
		t.Fatalf("expected tampered signature to be rejected")
	}

	if err := service.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	snapshot := service.Snapshot()
	if snapshot.Received != 1 || snapshot.Processed != 1 {
		t.Fatalf("unexpected stats after drain: %#v", snapshot)
	}
	if len(service.Recent(1)) != 1 {
		t.Fatalf("expected one decision record after drain")
	}
}

func TestNew_ReceiveProcessesConcurrentUsersOnSameItem(t *testing.T) {
	service, _, _ := newTestAutopilot(t, nil)

	for _, body := range []string{
		`{"topic":"JOB_CREATE","itemId":"j1","userId":"u-austin"}`,
		`{"topic":"JOB_CREATE","itemId":"j1","userId":"u-blake"}`,
	} {
		result, err := service.Receive(context.Background(), core.InboundRequest{Body: []byte(body)})
		if err != nil {
			t.Fatalf("receive %s: %v", body, err)
		}
		if !result.Accepted || result.StatusCode != 202 {
			t.Fatalf("expected delivery enqueued for %s, got %#v", body, result)
		}
	}

	if err := service.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	snapshot := service.Snapshot()
	if snapshot.Received != 2 || snapshot.Processed != 2 {
		t.Fatalf("expected both users' events processed, got %#v", snapshot)
	}
	if snapshot.UniqueUsers != 2 {
		t.Fatalf("expected two unique users, got %d", snapshot.UniqueUsers)
	}
}

func TestNew_BurstCoalescingIsOptInThroughConfig(t *testing.T) {
	service, _, _ := newTestAutopilot(t, func(opts *Options) {
		opts.Runtime.Webhook.BurstMode = "coalesce"
		opts.Runtime.Webhook.BurstWindow = 2 * time.Second
	})

	body := []byte(`{"topic":"JOB_UPDATE","itemId":"j1","userId":"u-austin"}`)
	first, err := service.Receive(context.Background(), core.InboundRequest{Body: body})
	if err != nil {
		t.Fatalf("first receive: %v", err)
	}
	if !first.Accepted || first.StatusCode != 202 {
		t.Fatalf("expected first delivery enqueued, got %#v", first)
	}

	second, err := service.Receive(context.Background(), core.InboundRequest{Body: body})
	if err != nil {
		t.Fatalf("second receive: %v", err)
	}
	if !second.Accepted || second.StatusCode != 200 {
		t.Fatalf("expected duplicate acknowledged without enqueue, got %#v", second)
	}
	if coalesced, _ := second.Metadata["coalesced"].(bool); !coalesced {
		t.Fatalf("expected coalesced metadata, got %#v", second.Metadata)
	}

	if err := service.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	snapshot := service.Snapshot()
	if snapshot.Received != 2 || snapshot.Processed != 1 {
		t.Fatalf("expected duplicate counted but processed once, got %#v", snapshot)
	}
}

func TestAutopilot_RotateWebhookSecretKeepsPreviousValid(t *testing.T) {
	service, _, _ := newTestAutopilot(t, func(opts *Options) {
		opts.Runtime.Webhook.Secret = "first"
	})
	if err := service.RotateWebhookSecret("second"); err != nil {
		t.Fatalf("rotate secret: %v", err)
	}

	body := []byte(`{"topic":"JOB_UPDATE","itemId":"j2"}`)
	mac := hmac.New(sha256.New, []byte("first"))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	result, err := service.Receive(context.Background(), core.InboundRequest{
		Headers: map[string]string{"X-Autopilot-Signature": signature},
		Body:    body,
	})
	if err != nil {
		t.Fatalf("receive with previous secret: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("expected previous secret to stay valid through rotation")
	}

	unsigned, _, _ := newTestAutopilot(t, nil)
	if err := unsigned.RotateWebhookSecret("next"); err == nil {
		t.Fatalf("expected rotation to fail without a configured secret")
	}
	_ = unsigned.Shutdown(context.Background())
	_ = service.Shutdown(context.Background())
}

func TestAutopilot_ReportOutcomeUpdatesHistoryAndArchive(t *testing.T) {
	service, _, archive := newTestAutopilot(t, nil)

	result, err := service.Process(context.Background(), emergencyJobEvent("j1", "u-austin"), core.PipelineContext{})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := service.ReportOutcome(context.Background(), result.RecordID, core.OutcomeSuccess); err != nil {
		t.Fatalf("report outcome: %v", err)
	}

	metrics := service.Aggregate()
	if metrics.SuccessfulActions != 1 || metrics.PendingOutcomes != 0 {
		t.Fatalf("unexpected performance metrics: %#v", metrics)
	}
	record, ok := archive.get(result.RecordID)
	if !ok || record.Outcome != core.OutcomeSuccess {
		t.Fatalf("expected archive outcome mirror, got %#v", record)
	}

	err = service.ReportOutcome(context.Background(), "missing", core.OutcomeFailure)
	if err == nil {
		t.Fatalf("expected unknown record error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != core.PipelineErrorNotFound {
		t.Fatalf("unexpected error envelope: %v", err)
	}
}

func TestAutopilot_FlushArchiveResavesMissingRecords(t *testing.T) {
	service, _, archive := newTestAutopilot(t, nil)

	result, err := service.Process(context.Background(), emergencyJobEvent("j1", "u-austin"), core.PipelineContext{})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := service.ReportOutcome(context.Background(), result.RecordID, core.OutcomeSuccess); err != nil {
		t.Fatalf("report outcome: %v", err)
	}

	archive.reset()
	flushed, err := service.FlushArchive(context.Background(), 0)
	if err != nil {
		t.Fatalf("flush archive: %v", err)
	}
	if flushed != 1 {
		t.Fatalf("expected one flushed record, got %d", flushed)
	}
	record, ok := archive.get(result.RecordID)
	if !ok || record.Outcome != core.OutcomeSuccess {
		t.Fatalf("expected resolved record re-saved to archive, got %#v", record)
	}

	bare, _, _ := newTestAutopilot(t, func(opts *Options) {
		opts.Archive = nil
	})
	if _, err := bare.FlushArchive(context.Background(), 0); err == nil {
		t.Fatalf("expected flush to fail without an archive")
	}
}

func TestAutopilot_PruneArchiveDelegatesRetention(t *testing.T) {
	service, _, archive := newTestAutopilot(t, nil)

	stale := core.DecisionRecord{
		ID:        "stale",
		Timestamp: facadeClock().AddDate(0, 0, -90),
		Event:     emergencyJobEvent("j0", "u-angelo"),
		Outcome:   core.OutcomeSuccess,
	}
	if err := archive.Save(context.Background(), stale); err != nil {
		t.Fatalf("seed archive: %v", err)
	}

	pruned, err := service.PruneArchive(context.Background(), 30)
	if err != nil {
		t.Fatalf("prune archive: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected one pruned record, got %d", pruned)
	}
	if _, ok := archive.get("stale"); ok {
		t.Fatalf("expected stale record removed")
	}
}

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	service, _, _ := newTestAutopilot(t, nil)

	facade, err := NewFacade(service)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	commands := facade.Commands()
	if commands.ProcessEvent == nil || commands.ReportOutcome == nil ||
		commands.FlushArchive == nil || commands.PruneArchive == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.LoadStats == nil || queries.LoadPerformance == nil ||
		queries.ListRecentDecisions == nil || queries.ListArchive == nil {
		t.Fatalf("expected query handlers to be wired")
	}
}

func TestFacade_CommandAndQueryDelegation(t *testing.T) {
	service, _, _ := newTestAutopilot(t, nil)
	facade, err := NewFacade(service)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	if err := facade.Commands().ProcessEvent.Execute(context.Background(), autopilotcommand.ProcessEventMessage{
		Event:   emergencyJobEvent("j1", "u-austin"),
		Context: core.PipelineContext{CurrentCapacity: 1},
	}); err != nil {
		t.Fatalf("execute process command: %v", err)
	}

	snapshot, err := facade.Queries().LoadStats.Query(context.Background(), autopilotquery.LoadStatsMessage{})
	if err != nil {
		t.Fatalf("query load stats: %v", err)
	}
	if snapshot.Processed != 1 {
		t.Fatalf("unexpected stats snapshot: %#v", snapshot)
	}

	records, err := facade.Queries().ListArchive.Query(context.Background(), autopilotquery.ListArchiveMessage{
		Filter: core.ArchiveFilter{UserID: "u-austin"},
	})
	if err != nil {
		t.Fatalf("query list archive: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("unexpected archive page: %#v", records)
	}
}

func TestFacade_BindCommandBusDispatchesThroughRegistry(t *testing.T) {
	service, _, _ := newTestAutopilot(t, nil)
	facade, err := NewFacade(service)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	adapter := gocommand.NewRegistryAdapter(nil)
	set, err := facade.BindCommandBus(adapter)
	if err != nil {
		t.Fatalf("bind command bus: %v", err)
	}
	defer set.Unsubscribe()
	if set.Len() != 8 {
		t.Fatalf("expected every handler bound, got %d subscriptions", set.Len())
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if err := gocommand.Dispatch(context.Background(), autopilotcommand.ProcessEventMessage{
		Event:   emergencyJobEvent("j7", "u-austin"),
		Context: core.PipelineContext{CurrentCapacity: 1},
	}); err != nil {
		t.Fatalf("dispatch process command: %v", err)
	}

	snapshot, err := gocommand.Query[autopilotquery.LoadStatsMessage, core.StatsSnapshot](
		context.Background(),
		autopilotquery.LoadStatsMessage{},
	)
	if err != nil {
		t.Fatalf("dispatch stats query: %v", err)
	}
	if snapshot.Processed != 1 {
		t.Fatalf("unexpected stats through command bus: %#v", snapshot)
	}
}

func TestNewFacade_RequiresService(t *testing.T) {
	facade, err := NewFacade(nil)
	if err == nil {
		t.Fatalf("expected nil service error")
	}
	if facade != nil {
		t.Fatalf("expected nil facade on error")
	}
}
