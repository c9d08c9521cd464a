package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lutefd/fairplay-api/internal/events"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var ErrMalformedMessage = errors.New("malformed stream message")

// Actions carried in the "action" field of a stream message.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"

	// Cascades from the CRUD layer. They carry team_id or player_id only.
	ActionTeamDeleted   = "team_deleted"
	ActionPlayerDeleted = "player_deleted"
)

var eventByAction = map[string]string{
	ActionCreated: events.LineupCreated,
	ActionUpdated: events.LineupUpdated,
	ActionDeleted: events.LineupDeleted,
}

// streamClient is the slice of *redis.Client the consumer needs.
type streamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// Publisher is satisfied by *events.Bus.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

type Config struct {
	Stream    string
	Group     string
	Consumer  string
	BatchSize int64
	Block     time.Duration
	Backoff   time.Duration
	// Redeliver is how often entries left unacked by a failed handler are
	// read back from the pending list.
	Redeliver time.Duration
}

// Consumer turns lineup mutations written to a Redis stream by the CRUD layer
// into bus events. Entries whose handler failed stay in the group's pending
// list and are replayed on startup and every Redeliver interval.
type Consumer struct {
	client streamClient
	bus    Publisher
	cfg    Config
	log    zerolog.Logger
}

func NewConsumer(client streamClient, bus Publisher, cfg Config, log zerolog.Logger) *Consumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 5 * time.Second
	}
	if cfg.Redeliver <= 0 {
		cfg.Redeliver = 30 * time.Second
	}
	return &Consumer{
		client: client,
		bus:    bus,
		cfg:    cfg,
		log:    log.With().Str("component", "stream").Str("stream", cfg.Stream).Logger(),
	}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	c.log.Info().Str("group", c.cfg.Group).Str("consumer", c.cfg.Consumer).Msg("consumer group ready")

	var lastDrain time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if time.Since(lastDrain) >= c.cfg.Redeliver {
			if err := c.drainPending(ctx); err != nil && ctx.Err() == nil {
				c.log.Error().Err(err).Msg("pending replay failed")
			}
			lastDrain = time.Now()
		}
		if err := c.consumeBatch(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error().Err(err).Msg("consume batch failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.cfg.Backoff):
			}
		}
	}
}

func (c *Consumer) consumeBatch(ctx context.Context) error {
	msgs, err := c.read(ctx, ">", c.cfg.Block)
	if err != nil {
		return err
	}
	c.process(ctx, msgs)
	return nil
}

// drainPending replays entries delivered to this consumer but never acked.
// Entries that fail again stay pending and the cursor moves past them.
func (c *Consumer) drainPending(ctx context.Context) error {
	cursor := "0"
	replayed := 0
	for {
		msgs, err := c.read(ctx, cursor, -1)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			break
		}
		c.process(ctx, msgs)
		replayed += len(msgs)
		cursor = msgs[len(msgs)-1].ID
	}
	if replayed > 0 {
		c.log.Info().Int("messages", replayed).Msg("replayed pending messages")
	}
	return nil
}

// read fetches one batch starting after id. A negative block never blocks.
func (c *Consumer) read(ctx context.Context, id string, block time.Duration) ([]redis.XMessage, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, id},
		Count:    c.cfg.BatchSize,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup %s: %w", id, err)
	}

	var msgs []redis.XMessage
	for _, s := range streams {
		msgs = append(msgs, s.Messages...)
	}
	return msgs, nil
}

func (c *Consumer) process(ctx context.Context, msgs []redis.XMessage) {
	for _, msg := range msgs {
		if !c.handle(ctx, msg) {
			continue
		}
		if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
			c.log.Warn().Err(err).Str("message_id", msg.ID).Msg("ack failed")
		}
	}
}

// handle reports whether the message should be acknowledged. Malformed
// messages are acked and dropped; failed handlers leave the entry pending.
func (c *Consumer) handle(ctx context.Context, msg redis.XMessage) bool {
	e, err := parseMessage(msg.Values)
	if err != nil {
		c.log.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping message")
		return true
	}
	if err := c.bus.Publish(ctx, e); err != nil {
		c.log.Error().Err(err).Str("message_id", msg.ID).Str("event", e.Name).Msg("stream message handling failed")
		return false
	}
	return true
}

func parseMessage(values map[string]any) (events.Event, error) {
	field := func(name string) string {
		v, _ := values[name].(string)
		return strings.TrimSpace(v)
	}

	action := strings.ToLower(field("action"))
	switch action {
	case ActionTeamDeleted:
		return deletion(events.TeamDeleted, "team_id", field("team_id"))
	case ActionPlayerDeleted:
		return deletion(events.PlayerDeleted, "player_id", field("player_id"))
	}

	name, ok := eventByAction[action]
	if !ok {
		return events.Event{}, fmt.Errorf("%w: unknown action %q", ErrMalformedMessage, field("action"))
	}
	teamID, err := uuid.Parse(field("team_id"))
	if err != nil {
		return events.Event{}, fmt.Errorf("%w: team_id: %w", ErrMalformedMessage, err)
	}
	season := field("season")
	if season == "" {
		return events.Event{}, fmt.Errorf("%w: missing season", ErrMalformedMessage)
	}
	var gameID uuid.UUID
	if raw := field("game_id"); raw != "" {
		if gameID, err = uuid.Parse(raw); err != nil {
			return events.Event{}, fmt.Errorf("%w: game_id: %w", ErrMalformedMessage, err)
		}
	}

	var players []uuid.UUID
	for _, raw := range strings.Split(field("player_ids"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return events.Event{}, fmt.Errorf("%w: player_ids: %w", ErrMalformedMessage, err)
		}
		players = append(players, id)
	}

	return events.Event{Name: name, Payload: events.LineupMutation{
		TeamID:    teamID,
		Season:    season,
		GameID:    gameID,
		PlayerIDs: players,
	}}, nil
}

func deletion(name, fieldName, raw string) (events.Event, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return events.Event{}, fmt.Errorf("%w: %s: %w", ErrMalformedMessage, fieldName, err)
	}
	return events.Event{Name: name, Payload: events.Deletion{Name: name, ID: id}}, nil
}
