package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

const (
	LineupCreated = "LineupCreated"
	LineupUpdated = "LineupUpdated"
	LineupDeleted = "LineupDeleted"

	TeamDeleted   = "TeamDeleted"
	PlayerDeleted = "PlayerDeleted"
)

// LineupNames lists every event that signals a lineup mutation.
var LineupNames = []string{LineupCreated, LineupUpdated, LineupDeleted}

var ErrUnexpectedPayload = errors.New("unexpected event payload")

type Event struct {
	Name    string
	Payload any
}

// LineupMutation describes which players a lineup write touched. An empty
// PlayerIDs means the affected set is unknown and the whole team season
// must be recomputed.
type LineupMutation struct {
	TeamID    uuid.UUID
	Season    string
	GameID    uuid.UUID
	PlayerIDs []uuid.UUID
}

// Deletion names a team or player whose snapshots must be dropped. Name is
// TeamDeleted or PlayerDeleted.
type Deletion struct {
	Name string
	ID   uuid.UUID
}

type Handler func(context.Context, Event) error

type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: map[string][]Handler{}}
}

func (b *Bus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

// SubscribeLineups registers fn for every lineup mutation event.
func (b *Bus) SubscribeLineups(fn func(context.Context, LineupMutation) error) {
	handler := func(ctx context.Context, e Event) error {
		m, ok := MutationFrom(e)
		if !ok {
			return fmt.Errorf("%w: %s carries %T", ErrUnexpectedPayload, e.Name, e.Payload)
		}
		return fn(ctx, m)
	}
	for _, name := range LineupNames {
		b.Subscribe(name, handler)
	}
}

// SubscribeDeletions registers fn for team and player deletions.
func (b *Bus) SubscribeDeletions(fn func(context.Context, Deletion) error) {
	handler := func(ctx context.Context, e Event) error {
		d, ok := e.Payload.(Deletion)
		if !ok {
			return fmt.Errorf("%w: %s carries %T", ErrUnexpectedPayload, e.Name, e.Payload)
		}
		d.Name = e.Name
		return fn(ctx, d)
	}
	b.Subscribe(TeamDeleted, handler)
	b.Subscribe(PlayerDeleted, handler)
}

func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[e.Name]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func MutationFrom(e Event) (LineupMutation, bool) {
	switch v := e.Payload.(type) {
	case LineupMutation:
		return v, true
	case *LineupMutation:
		if v == nil {
			return LineupMutation{}, false
		}
		return *v, true
	default:
		return LineupMutation{}, false
	}
}
