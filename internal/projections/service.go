package projections

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lutefd/fairplay-api/internal/domain/lineups"
	"github.com/lutefd/fairplay-api/internal/domain/stats"
	"github.com/lutefd/fairplay-api/internal/events"
	"github.com/lutefd/fairplay-api/internal/metrics"
	"github.com/lutefd/fairplay-api/internal/storage"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrSourceUnavailable wraps failures reading games and lineups. Callers may
// retry; the last committed snapshot stays readable through Get.
var ErrSourceUnavailable = errors.New("lineup source unavailable")

type LineupSource interface {
	LoadSeason(ctx context.Context, teamID uuid.UUID, season string) (lineups.SeasonGames, error)
}

// SnapshotStore persists one history per key. SaveHistory must only write
// when the stored updatedAt still equals prior (or no row exists when prior
// is nil) and return storage.ErrSnapshotConflict otherwise.
type SnapshotStore interface {
	GetHistory(ctx context.Context, key stats.Key) (*stats.PlayerPositionHistory, error)
	SaveHistory(ctx context.Context, h stats.PlayerPositionHistory, prior *time.Time) error
	ListHistoriesByTeam(ctx context.Context, teamID uuid.UUID, season string) ([]stats.PlayerPositionHistory, error)
	DeleteTeamSnapshots(ctx context.Context, teamID uuid.UUID) ([]stats.Key, error)
	DeletePlayerSnapshots(ctx context.Context, playerID uuid.UUID) ([]stats.Key, error)
}

// SnapshotCache is an optional read-through cache in front of the store.
// Set must keep whichever snapshot has the later UpdatedAt, and Invalidate
// must keep rejecting snapshots no newer than the one it dropped.
type SnapshotCache interface {
	Get(ctx context.Context, key stats.Key) (*stats.PlayerPositionHistory, error)
	Set(ctx context.Context, h stats.PlayerPositionHistory) error
	Invalidate(ctx context.Context, key stats.Key) error
}

type Options struct {
	Cache       SnapshotCache
	Metrics     *metrics.Recorder
	Logger      zerolog.Logger
	Parallelism int
	Retries     int
	Now         func() time.Time
}

type Service struct {
	source      LineupSource
	store       SnapshotStore
	cache       SnapshotCache
	metrics     *metrics.Recorder
	log         zerolog.Logger
	locks       *keyedMutex
	parallelism int
	retries     int
	now         func() time.Time
}

func NewService(source LineupSource, store SnapshotStore, opts Options) *Service {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		source:      source,
		store:       store,
		cache:       opts.Cache,
		metrics:     opts.Metrics,
		log:         opts.Logger.With().Str("component", "projections").Logger(),
		locks:       newKeyedMutex(),
		parallelism: opts.Parallelism,
		retries:     opts.Retries,
		now:         opts.Now,
	}
}

// Compute fully recomputes and persists one player's snapshot.
func (s *Service) Compute(ctx context.Context, key stats.Key) (stats.PlayerPositionHistory, error) {
	return s.recompute(ctx, key)
}

// Get returns the stored snapshot, or nil when none exists yet.
func (s *Service) Get(ctx context.Context, key stats.Key) (*stats.PlayerPositionHistory, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key.String()).Msg("snapshot cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	h, err := s.store.GetHistory(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if h != nil && s.cache != nil {
		if err := s.cache.Set(ctx, *h); err != nil {
			s.log.Warn().Err(err).Str("key", key.String()).Msg("snapshot cache write failed")
		}
	}
	return h, nil
}

// ListTeam returns the persisted snapshots of a team season without recomputing.
func (s *Service) ListTeam(ctx context.Context, teamID uuid.UUID, season string) ([]stats.PlayerPositionHistory, error) {
	items, err := s.store.ListHistoriesByTeam(ctx, teamID, season)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	sortByPlayer(items)
	return items, nil
}

// ComputeForTeam recomputes every player seen in the season's lineups plus
// every player that already holds a snapshot, so players whose last
// appearance was removed are zeroed out rather than left stale.
func (s *Service) ComputeForTeam(ctx context.Context, teamID uuid.UUID, season string) ([]stats.PlayerPositionHistory, error) {
	games, err := s.loadSeason(ctx, teamID, season)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.ListHistoriesByTeam(ctx, teamID, season)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	players := seasonPlayers(games)
	for _, h := range existing {
		players[h.PlayerID] = struct{}{}
	}
	return s.recomputeMany(ctx, teamID, season, players)
}

// HandleLineupMutation is the recompute trigger for lineup writes.
func (s *Service) HandleLineupMutation(ctx context.Context, m events.LineupMutation) error {
	log := s.log.With().Str("team_id", m.TeamID.String()).Str("season", m.Season).Str("game_id", m.GameID.String()).Logger()
	if len(m.PlayerIDs) == 0 {
		log.Debug().Msg("lineup mutation without player list, recomputing team")
		_, err := s.ComputeForTeam(ctx, m.TeamID, m.Season)
		return err
	}

	players := make(map[uuid.UUID]struct{}, len(m.PlayerIDs))
	for _, id := range m.PlayerIDs {
		players[id] = struct{}{}
	}
	log.Debug().Int("players", len(players)).Msg("recomputing players after lineup mutation")
	_, err := s.recomputeMany(ctx, m.TeamID, m.Season, players)
	return err
}

// HandleDeletion drops every snapshot of a deleted team or player and evicts
// them from the cache.
func (s *Service) HandleDeletion(ctx context.Context, d events.Deletion) error {
	var (
		keys []stats.Key
		err  error
	)
	switch d.Name {
	case events.TeamDeleted:
		keys, err = s.store.DeleteTeamSnapshots(ctx, d.ID)
	case events.PlayerDeleted:
		keys, err = s.store.DeletePlayerSnapshots(ctx, d.ID)
	default:
		return fmt.Errorf("%w: %s", events.ErrUnexpectedPayload, d.Name)
	}
	if err != nil {
		return fmt.Errorf("delete snapshots: %w", err)
	}

	log := s.log.With().Str("event", d.Name).Str("id", d.ID.String()).Logger()
	for _, key := range keys {
		s.invalidate(ctx, log, key)
	}
	log.Info().Int("snapshots", len(keys)).Msg("snapshots deleted")
	return nil
}

func (s *Service) recomputeMany(ctx context.Context, teamID uuid.UUID, season string, players map[uuid.UUID]struct{}) ([]stats.PlayerPositionHistory, error) {
	ids := make([]uuid.UUID, 0, len(players))
	for id := range players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	results := make([]stats.PlayerPositionHistory, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			h, err := s.recompute(gctx, stats.Key{PlayerID: id, TeamID: teamID, Season: season})
			if err != nil {
				return err
			}
			results[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// recompute holds the key lock for the whole read-compute-write cycle. The
// season is read under the lock and after the prior snapshot, so a write
// built from an older read either loses the lock race or the conditional
// write. On a conflict the whole cycle runs again.
func (s *Service) recompute(ctx context.Context, key stats.Key) (stats.PlayerPositionHistory, error) {
	unlock := s.locks.Lock(key)
	defer unlock()

	start := time.Now()
	log := s.log.With().Str("key", key.String()).Logger()

	for attempt := 1; ; attempt++ {
		prior, err := s.store.GetHistory(ctx, key)
		if err != nil {
			s.metrics.RecordRecompute(metrics.OutcomeError, time.Since(start))
			return stats.PlayerPositionHistory{}, fmt.Errorf("load snapshot: %w", err)
		}

		games, err := s.loadSeason(ctx, key.TeamID, key.Season)
		if err != nil {
			s.metrics.RecordRecompute(metrics.OutcomeError, time.Since(start))
			return stats.PlayerPositionHistory{}, err
		}

		extraction := stats.Extract(games, key.PlayerID)
		s.reportSkipped(log, extraction.Skipped)

		h := stats.BuildHistory(key.PlayerID, key.TeamID, key.Season, extraction.Assignments)
		var priorAt *time.Time
		if prior != nil {
			at := prior.UpdatedAt
			priorAt = &at
		}
		h.UpdatedAt = s.nextUpdatedAt(priorAt)

		err = s.store.SaveHistory(ctx, h, priorAt)
		if err == nil {
			s.publish(ctx, log, h)
			s.metrics.RecordRecompute(metrics.OutcomeOK, time.Since(start))
			log.Debug().Int("games", len(h.GamesPlayed)).Int("innings", h.Metrics.Season.TotalInnings).Msg("snapshot recomputed")
			return h, nil
		}
		if !errors.Is(err, storage.ErrSnapshotConflict) {
			s.metrics.RecordRecompute(metrics.OutcomeError, time.Since(start))
			return stats.PlayerPositionHistory{}, fmt.Errorf("save snapshot: %w", err)
		}

		s.metrics.RecordWriteConflict()
		if attempt >= s.retries {
			s.metrics.RecordRecompute(metrics.OutcomeConflict, time.Since(start))
			return stats.PlayerPositionHistory{}, fmt.Errorf("save snapshot after %d attempts: %w", attempt, err)
		}
		log.Debug().Int("attempt", attempt).Msg("snapshot write conflict, retrying")
	}
}

func (s *Service) loadSeason(ctx context.Context, teamID uuid.UUID, season string) (lineups.SeasonGames, error) {
	games, err := s.source.LoadSeason(ctx, teamID, season)
	if err != nil {
		return lineups.SeasonGames{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return games, nil
}

// nextUpdatedAt is strictly after prior and truncated to what Postgres keeps.
func (s *Service) nextUpdatedAt(prior *time.Time) time.Time {
	now := s.now().UTC().Truncate(time.Microsecond)
	if prior != nil && !now.After(*prior) {
		return prior.UTC().Add(time.Microsecond)
	}
	return now
}

// publish pushes a freshly committed snapshot into the cache so an older
// read-through fill cannot shadow it. If the write fails the entry is dropped.
func (s *Service) publish(ctx context.Context, log zerolog.Logger, h stats.PlayerPositionHistory) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, h); err != nil {
		log.Warn().Err(err).Msg("snapshot cache write failed")
		s.invalidate(ctx, log, h.Key())
	}
}

func (s *Service) invalidate(ctx context.Context, log zerolog.Logger, key stats.Key) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, key); err != nil {
		log.Warn().Err(err).Msg("snapshot cache invalidation failed")
	}
}

func (s *Service) reportSkipped(log zerolog.Logger, skipped []stats.SkippedInning) {
	for _, sk := range skipped {
		s.metrics.RecordSkippedInning(string(sk.Reason))
		log.Warn().
			Str("game_id", sk.GameID.String()).
			Int("inning", sk.Inning).
			Str("reason", string(sk.Reason)).
			Msg("skipped malformed inning")
	}
}

func seasonPlayers(games lineups.SeasonGames) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{})
	for _, g := range games.Games {
		if g.Lineup == nil || !games.Contains(g.Date) {
			continue
		}
		for _, id := range g.Lineup.PlayerIDs() {
			out[id] = struct{}{}
		}
	}
	return out
}

func sortByPlayer(items []stats.PlayerPositionHistory) {
	sort.Slice(items, func(i, j int) bool { return items[i].PlayerID.String() < items[j].PlayerID.String() })
}
