package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lutefd/fairplay-api/internal/domain/lineups"
	"github.com/lutefd/fairplay-api/internal/domain/stats"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type TeamSeasonLister interface {
	ListActiveTeamSeasons(ctx context.Context, since time.Time) ([]lineups.TeamSeason, error)
}

type TeamRecomputer interface {
	ComputeForTeam(ctx context.Context, teamID uuid.UUID, season string) ([]stats.PlayerPositionHistory, error)
}

// ReconcileJob recomputes every team season whose lineups changed within the
// lookback window. It heals snapshots whose mutation trigger was lost.
type ReconcileJob struct {
	lister      TeamSeasonLister
	recomputer  TeamRecomputer
	lookback    time.Duration
	parallelism int
	now         func() time.Time
	log         zerolog.Logger
}

func NewReconcileJob(lister TeamSeasonLister, recomputer TeamRecomputer, lookback time.Duration, parallelism int, log zerolog.Logger) *ReconcileJob {
	if lookback <= 0 {
		lookback = 30 * 24 * time.Hour
	}
	if parallelism <= 0 {
		parallelism = 1
	}
	return &ReconcileJob{
		lister:      lister,
		recomputer:  recomputer,
		lookback:    lookback,
		parallelism: parallelism,
		now:         time.Now,
		log:         log.With().Str("job", "reconcile_positions").Logger(),
	}
}

func (j *ReconcileJob) Name() string { return "reconcile_positions" }

// Run keeps going past a failing team season and returns every failure joined.
func (j *ReconcileJob) Run(ctx context.Context) error {
	since := j.now().Add(-j.lookback)
	seasons, err := j.lister.ListActiveTeamSeasons(ctx, since)
	if err != nil {
		return fmt.Errorf("list active team seasons: %w", err)
	}

	var (
		mu       sync.Mutex
		failures []error
		players  int
	)
	var g errgroup.Group
	g.SetLimit(j.parallelism)
	for _, ts := range seasons {
		ts := ts
		g.Go(func() error {
			items, err := j.recomputer.ComputeForTeam(ctx, ts.TeamID, ts.Season)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, fmt.Errorf("team %s season %s: %w", ts.TeamID, ts.Season, err))
				return nil
			}
			players += len(items)
			return nil
		})
	}
	_ = g.Wait()

	j.log.Info().
		Int("team_seasons", len(seasons)).
		Int("players", players).
		Int("failures", len(failures)).
		Time("since", since).
		Msg("reconcile finished")
	return errors.Join(failures...)
}
