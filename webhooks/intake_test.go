package webhooks

import (
	"context"
	"testing"

	"github.com/fieldline/go-autopilot/core"
)

type stubEnqueuer struct {
	events []core.Event
	err    error
}

func (s *stubEnqueuer) Enqueue(_ context.Context, event core.Event, _ core.PipelineContext) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type allowAllVerifier struct{}

func (allowAllVerifier) Verify(context.Context, core.InboundRequest) error { return nil }

func signedRequest(t *testing.T, secret string, payload string) core.InboundRequest {
	t.Helper()
	body := []byte(payload)
	return core.InboundRequest{
		Headers: map[string]string{"X-Autopilot-Signature": signHex(secret, body)},
		Body:    body,
	}
}

func TestIntakeAcceptsAuthenticatedEvent(t *testing.T) {
	queue := &stubEnqueuer{}
	stats := core.NewStatsTracker()
	intake := NewIntake(IntakeOptions{
		Verifier: HMACVerifier{Header: "X-Autopilot-Signature", Secrets: StaticSecret("topsecret")},
		Queue:    queue,
		Stats:    stats,
	})

	req := signedRequest(t, "topsecret", `{"topic":"JOB_CREATE","itemId":"job-1","userId":"u-angelo","userName":"Angelo"}`)
	result, err := intake.Receive(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Accepted || result.StatusCode != 202 {
		t.Fatalf("expected 202 acceptance, got %#v", result)
	}
	if len(queue.events) != 1 {
		t.Fatalf("expected one enqueued event, got %d", len(queue.events))
	}
	if queue.events[0].Topic != core.TopicJobCreate || queue.events[0].ItemID != "job-1" {
		t.Fatalf("unexpected enqueued event: %#v", queue.events[0])
	}
	if snapshot := stats.Snapshot(); snapshot.Received != 1 {
		t.Fatalf("expected received stat 1, got %d", snapshot.Received)
	}
}

func TestIntakeRejectsInvalidSignatureWith401(t *testing.T) {
	queue := &stubEnqueuer{}
	intake := NewIntake(IntakeOptions{
		Verifier: HMACVerifier{Header: "X-Autopilot-Signature", Secrets: StaticSecret("topsecret")},
		Queue:    queue,
	})

	req := signedRequest(t, "wrong-secret", `{"topic":"JOB_CREATE","itemId":"job-1"}`)
	result, err := intake.Receive(context.Background(), req)
	if err == nil {
		t.Fatalf("expected verification failure")
	}
	if result.Accepted || result.StatusCode != 401 {
		t.Fatalf("expected 401 rejection, got %#v", result)
	}
	if len(queue.events) != 0 {
		t.Fatalf("expected nothing enqueued, got %d", len(queue.events))
	}
}

func TestIntakeRejectsMalformedPayloadWith400(t *testing.T) {
	intake := NewIntake(IntakeOptions{
		Verifier: allowAllVerifier{},
		Queue:    &stubEnqueuer{},
	})
	cases := []string{
		`not-json`,
		`{"itemId":"job-1"}`,
		`{"topic":"JOB_CREATE"}`,
	}
	for index, payload := range cases {
		result, err := intake.Receive(context.Background(), core.InboundRequest{Body: []byte(payload)})
		if err == nil {
			t.Fatalf("case %d: expected parse failure", index)
		}
		if result.Accepted || result.StatusCode != 400 {
			t.Fatalf("case %d: expected 400 rejection, got %#v", index, result)
		}
	}
}

func TestIntakeCoalescedDeliveryAcknowledgedWithoutEnqueue(t *testing.T) {
	queue := &stubEnqueuer{}
	stats := core.NewStatsTracker()
	intake := NewIntake(IntakeOptions{
		Verifier: allowAllVerifier{},
		Burst:    NewBurstController(BurstOptions{Mode: BurstModeCoalesce}),
		Queue:    queue,
		Stats:    stats,
	})

	payload := `{"topic":"JOB_UPDATE","itemId":"job-1","userId":"u-angelo"}`
	if _, err := intake.Receive(context.Background(), core.InboundRequest{Body: []byte(payload)}); err != nil {
		t.Fatalf("unexpected error on first delivery: %v", err)
	}
	result, err := intake.Receive(context.Background(), core.InboundRequest{Body: []byte(payload)})
	if err != nil {
		t.Fatalf("unexpected error on coalesced delivery: %v", err)
	}
	if !result.Accepted || result.StatusCode != 200 {
		t.Fatalf("expected 200 coalesced acknowledgement, got %#v", result)
	}
	if coalesced, _ := result.Metadata["coalesced"].(bool); !coalesced {
		t.Fatalf("expected coalesced metadata, got %#v", result.Metadata)
	}
	if len(queue.events) != 1 {
		t.Fatalf("expected single enqueued event, got %d", len(queue.events))
	}
	if snapshot := stats.Snapshot(); snapshot.Received != 2 {
		t.Fatalf("expected both deliveries counted as received, got %d", snapshot.Received)
	}
}

func TestIntakeSurfacesQueueSaturationWith429(t *testing.T) {
	intake := NewIntake(IntakeOptions{
		Verifier: allowAllVerifier{},
		Queue:    &stubEnqueuer{err: core.ErrQueueFull},
		Stats:    core.NewStatsTracker(),
	})

	result, err := intake.Receive(context.Background(), core.InboundRequest{
		Body: []byte(`{"topic":"JOB_CREATE","itemId":"job-1"}`),
	})
	if err == nil {
		t.Fatalf("expected queue saturation error")
	}
	if result.Accepted || result.StatusCode != 429 {
		t.Fatalf("expected 429 rejection, got %#v", result)
	}
}

func TestIntakeReadsPipelineContextMetadata(t *testing.T) {
	queue := &contextCapturingEnqueuer{}
	intake := NewIntake(IntakeOptions{Verifier: allowAllVerifier{}, Queue: queue})

	_, err := intake.Receive(context.Background(), core.InboundRequest{
		Body: []byte(`{"topic":"JOB_CREATE","itemId":"job-1"}`),
		Metadata: map[string]any{
			"current_capacity":      3,
			"available_technicians": []string{"Dana", "Priya"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if queue.pctx.CurrentCapacity != 3 {
		t.Fatalf("expected capacity 3, got %d", queue.pctx.CurrentCapacity)
	}
	if len(queue.pctx.AvailableTechnicians) != 2 {
		t.Fatalf("expected two technicians, got %#v", queue.pctx.AvailableTechnicians)
	}
}

type contextCapturingEnqueuer struct {
	pctx core.PipelineContext
}

func (s *contextCapturingEnqueuer) Enqueue(_ context.Context, _ core.Event, pctx core.PipelineContext) error {
	s.pctx = pctx
	return nil
}
