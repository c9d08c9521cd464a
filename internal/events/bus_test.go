package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestBusPublishCallsHandlersInOrder(t *testing.T) {
	bus := NewBus()
	calls := make([]int, 0, 2)

	bus.Subscribe(LineupCreated, func(_ context.Context, _ Event) error {
		calls = append(calls, 1)
		return nil
	})
	bus.Subscribe(LineupCreated, func(_ context.Context, _ Event) error {
		calls = append(calls, 2)
		return nil
	})

	if err := bus.Publish(context.Background(), Event{Name: LineupCreated}); err != nil {
		t.Fatalf("publish returned error: %v", err)
	}

	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Fatalf("unexpected handler call sequence: %+v", calls)
	}
}

func TestBusPublishStopsOnFirstError(t *testing.T) {
	bus := NewBus()
	var calledSecond bool
	expectedErr := errors.New("handler failed")

	bus.Subscribe(LineupUpdated, func(_ context.Context, _ Event) error {
		return expectedErr
	})
	bus.Subscribe(LineupUpdated, func(_ context.Context, _ Event) error {
		calledSecond = true
		return nil
	})

	err := bus.Publish(context.Background(), Event{Name: LineupUpdated})
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected %v, got %v", expectedErr, err)
	}
	if calledSecond {
		t.Fatalf("expected second handler not to run")
	}
}

func TestSubscribeLineupsReceivesEveryMutationKind(t *testing.T) {
	bus := NewBus()
	teamID := uuid.New()
	got := make([]LineupMutation, 0, 3)

	bus.SubscribeLineups(func(_ context.Context, m LineupMutation) error {
		got = append(got, m)
		return nil
	})

	payload := LineupMutation{TeamID: teamID, Season: "2026"}
	for _, name := range LineupNames {
		if err := bus.Publish(context.Background(), Event{Name: name, Payload: payload}); err != nil {
			t.Fatalf("publish %s: %v", name, err)
		}
	}
	if err := bus.Publish(context.Background(), Event{Name: LineupDeleted, Payload: &payload}); err != nil {
		t.Fatalf("publish pointer payload: %v", err)
	}

	if len(got) != 4 {
		t.Fatalf("expected 4 deliveries, got %d", len(got))
	}
	for _, m := range got {
		if m.TeamID != teamID {
			t.Fatalf("unexpected team id %s", m.TeamID)
		}
	}
}

func TestSubscribeLineupsRejectsForeignPayload(t *testing.T) {
	bus := NewBus()
	bus.SubscribeLineups(func(_ context.Context, _ LineupMutation) error { return nil })

	err := bus.Publish(context.Background(), Event{Name: LineupCreated, Payload: "oops"})
	if !errors.Is(err, ErrUnexpectedPayload) {
		t.Fatalf("expected ErrUnexpectedPayload, got %v", err)
	}
}

func TestSubscribeDeletionsStampsEventName(t *testing.T) {
	bus := NewBus()
	got := make([]Deletion, 0, 2)
	bus.SubscribeDeletions(func(_ context.Context, d Deletion) error {
		got = append(got, d)
		return nil
	})

	teamID, playerID := uuid.New(), uuid.New()
	if err := bus.Publish(context.Background(), Event{Name: TeamDeleted, Payload: Deletion{ID: teamID}}); err != nil {
		t.Fatalf("publish team deletion: %v", err)
	}
	if err := bus.Publish(context.Background(), Event{Name: PlayerDeleted, Payload: Deletion{ID: playerID}}); err != nil {
		t.Fatalf("publish player deletion: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 deletions, got %d", len(got))
	}
	if got[0].Name != TeamDeleted || got[0].ID != teamID {
		t.Fatalf("unexpected team deletion: %+v", got[0])
	}
	if got[1].Name != PlayerDeleted || got[1].ID != playerID {
		t.Fatalf("unexpected player deletion: %+v", got[1])
	}

	err := bus.Publish(context.Background(), Event{Name: TeamDeleted, Payload: "nope"})
	if !errors.Is(err, ErrUnexpectedPayload) {
		t.Fatalf("expected ErrUnexpectedPayload, got %v", err)
	}
}
