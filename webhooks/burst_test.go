package webhooks

import (
	"context"
	"testing"
	"time"

	"github.com/fieldline/go-autopilot/core"
)

func TestBurstControllerCoalescesRepeatedEntityEvents(t *testing.T) {
	current := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	controller := NewBurstController(BurstOptions{
		Mode:   BurstModeCoalesce,
		Window: 2 * time.Second,
		Now:    func() time.Time { return current },
	})
	event := core.Event{Topic: core.TopicJobUpdate, ItemID: "job-7"}

	first, err := controller.Allow(context.Background(), event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Allow {
		t.Fatalf("expected first event to be admitted")
	}

	current = current.Add(500 * time.Millisecond)
	second, err := controller.Allow(context.Background(), event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Allow {
		t.Fatalf("expected duplicate within window to coalesce")
	}
	if coalesced, _ := second.Metadata["coalesced"].(bool); !coalesced {
		t.Fatalf("expected coalesced metadata, got %#v", second.Metadata)
	}

	current = current.Add(3 * time.Second)
	third, err := controller.Allow(context.Background(), event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !third.Allow {
		t.Fatalf("expected event past window to be admitted")
	}
}

func TestBurstControllerAdmitsDistinctUsersOnSameItem(t *testing.T) {
	current := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	controller := NewBurstController(BurstOptions{
		Mode:   BurstModeCoalesce,
		Window: 2 * time.Second,
		Now:    func() time.Time { return current },
	})

	first, err := controller.Allow(context.Background(), core.Event{Topic: core.TopicJobUpdate, ItemID: "job-7", UserID: "u-austin"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Allow {
		t.Fatalf("expected first user's event to be admitted")
	}

	current = current.Add(500 * time.Millisecond)
	otherUser, err := controller.Allow(context.Background(), core.Event{Topic: core.TopicJobUpdate, ItemID: "job-7", UserID: "u-blake"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !otherUser.Allow {
		t.Fatalf("expected another user's event on the same item to be admitted")
	}

	sameUser, err := controller.Allow(context.Background(), core.Event{Topic: core.TopicJobUpdate, ItemID: "job-7", UserID: "u-austin"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sameUser.Allow {
		t.Fatalf("expected repeat from the same user within the window to coalesce")
	}
}

func TestBurstControllerKeysOnTopicAndItem(t *testing.T) {
	current := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	controller := NewBurstController(BurstOptions{
		Mode:   BurstModeCoalesce,
		Window: 2 * time.Second,
		Now:    func() time.Time { return current },
	})

	if _, err := controller.Allow(context.Background(), core.Event{Topic: core.TopicJobUpdate, ItemID: "job-7"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	other, err := controller.Allow(context.Background(), core.Event{Topic: core.TopicJobUpdate, ItemID: "job-8"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !other.Allow {
		t.Fatalf("expected distinct item to be admitted")
	}
	crossTopic, err := controller.Allow(context.Background(), core.Event{Topic: core.TopicJobCreate, ItemID: "job-7"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !crossTopic.Allow {
		t.Fatalf("expected distinct topic to be admitted")
	}
}

func TestBurstControllerDisabledModeAdmitsEverything(t *testing.T) {
	controller := NewBurstController(BurstOptions{Mode: BurstModeNone})
	event := core.Event{Topic: core.TopicJobUpdate, ItemID: "job-7"}
	for attempt := 0; attempt < 3; attempt++ {
		decision, err := controller.Allow(context.Background(), event)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !decision.Allow {
			t.Fatalf("attempt %d: expected disabled controller to admit", attempt)
		}
	}
}
