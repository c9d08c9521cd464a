package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lutefd/fairplay-api/internal/domain/lineups"
	"github.com/lutefd/fairplay-api/internal/domain/stats"
	"github.com/lutefd/fairplay-api/internal/storage"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// LoadSeason reads the season bounds and every game of a team season with
// its lineup, ordered by date.
func (s *Store) LoadSeason(ctx context.Context, teamID uuid.UUID, season string) (lineups.SeasonGames, error) {
	out := lineups.SeasonGames{TeamID: teamID, Season: season, Games: make([]lineups.Game, 0)}

	var start, end *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT starts_on, ends_on FROM seasons WHERE team_id = $1 AND season = $2
	`, teamID, season).Scan(&start, &end)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return lineups.SeasonGames{}, fmt.Errorf("load season bounds: %w", err)
	}
	if start != nil {
		out.Start = *start
	}
	if end != nil {
		out.End = *end
	}

	rows, err := s.pool.Query(ctx, `
		SELECT g.id, g.team_id, g.season, g.game_date, g.opponent,
		       l.id, l.innings, l.created_at, l.updated_at
		FROM games g
		LEFT JOIN lineups l ON l.game_id = g.id
		WHERE g.team_id = $1 AND g.season = $2
		ORDER BY g.game_date ASC, g.id ASC
	`, teamID, season)
	if err != nil {
		return lineups.SeasonGames{}, fmt.Errorf("load games: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return lineups.SeasonGames{}, err
		}
		out.Games = append(out.Games, g)
	}
	return out, rows.Err()
}

func (s *Store) GetGame(ctx context.Context, teamID, gameID uuid.UUID) (lineups.Game, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT g.id, g.team_id, g.season, g.game_date, g.opponent,
		       l.id, l.innings, l.created_at, l.updated_at
		FROM games g
		LEFT JOIN lineups l ON l.game_id = g.id
		WHERE g.id = $1 AND g.team_id = $2
	`, gameID, teamID)
	g, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return lineups.Game{}, storage.ErrNotFound
	}
	return g, err
}

// PutLineup replaces the lineup of a game and returns the one it replaced.
func (s *Store) PutLineup(ctx context.Context, teamID, gameID uuid.UUID, l lineups.Lineup) (*lineups.Lineup, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM games WHERE id = $1 AND team_id = $2)
	`, gameID, teamID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	previous, err := lockLineup(ctx, tx, gameID)
	if err != nil {
		return nil, err
	}
	if previous != nil {
		l.ID = previous.ID
		l.CreatedAt = previous.CreatedAt
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	innings, err := json.Marshal(l.Innings)
	if err != nil {
		return nil, fmt.Errorf("encode innings: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO lineups (id, game_id, innings, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (game_id) DO UPDATE SET innings = EXCLUDED.innings, updated_at = EXCLUDED.updated_at
	`, l.ID, gameID, innings, l.CreatedAt, l.UpdatedAt); err != nil {
		return nil, err
	}
	return previous, tx.Commit(ctx)
}

func (s *Store) DeleteLineup(ctx context.Context, teamID, gameID uuid.UUID) (*lineups.Lineup, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM games WHERE id = $1 AND team_id = $2)
	`, gameID, teamID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, storage.ErrNotFound
	}
	previous, err := lockLineup(ctx, tx, gameID)
	if err != nil {
		return nil, err
	}
	if previous == nil {
		return nil, storage.ErrNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM lineups WHERE game_id = $1`, gameID); err != nil {
		return nil, err
	}
	return previous, tx.Commit(ctx)
}

// ListActiveTeamSeasons returns team seasons with a lineup touched since the cutoff.
func (s *Store) ListActiveTeamSeasons(ctx context.Context, since time.Time) ([]lineups.TeamSeason, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT g.team_id, g.season
		FROM lineups l
		JOIN games g ON g.id = l.game_id
		WHERE l.updated_at >= $1
		ORDER BY g.team_id, g.season
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]lineups.TeamSeason, 0)
	for rows.Next() {
		var ts lineups.TeamSeason
		if err := rows.Scan(&ts.TeamID, &ts.Season); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

func (s *Store) GetHistory(ctx context.Context, key stats.Key) (*stats.PlayerPositionHistory, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, player_id, team_id, season, games_played, metrics, updated_at
		FROM player_position_history
		WHERE player_id = $1 AND team_id = $2 AND season = $3
	`, key.PlayerID, key.TeamID, key.Season)
	h, err := scanHistory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &h, nil
}

// SaveHistory writes a snapshot only if the stored updated_at still equals
// prior, or no row exists when prior is nil.
func (s *Store) SaveHistory(ctx context.Context, h stats.PlayerPositionHistory, prior *time.Time) error {
	metrics, err := json.Marshal(h.Metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	gamesPlayed := h.GamesPlayed
	if gamesPlayed == nil {
		gamesPlayed = []uuid.UUID{}
	}

	var affected int64
	if prior == nil {
		tag, err := s.pool.Exec(ctx, `
			INSERT INTO player_position_history (id, player_id, team_id, season, games_played, metrics, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (player_id, team_id, season) DO NOTHING
		`, h.ID, h.PlayerID, h.TeamID, h.Season, gamesPlayed, metrics, h.UpdatedAt)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
	} else {
		tag, err := s.pool.Exec(ctx, `
			UPDATE player_position_history SET
				id = $1,
				games_played = $5,
				metrics = $6,
				updated_at = $7
			WHERE player_id = $2 AND team_id = $3 AND season = $4 AND updated_at = $8
		`, h.ID, h.PlayerID, h.TeamID, h.Season, gamesPlayed, metrics, h.UpdatedAt, *prior)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
	}
	if affected == 0 {
		return storage.ErrSnapshotConflict
	}
	return nil
}

func (s *Store) ListHistoriesByTeam(ctx context.Context, teamID uuid.UUID, season string) ([]stats.PlayerPositionHistory, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, player_id, team_id, season, games_played, metrics, updated_at
		FROM player_position_history
		WHERE team_id = $1 AND season = $2
		ORDER BY player_id
	`, teamID, season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]stats.PlayerPositionHistory, 0)
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

// DeleteTeamSnapshots removes every snapshot of a team and returns their keys.
func (s *Store) DeleteTeamSnapshots(ctx context.Context, teamID uuid.UUID) ([]stats.Key, error) {
	return s.deleteReturning(ctx, `
		DELETE FROM player_position_history WHERE team_id = $1
		RETURNING player_id, team_id, season
	`, teamID)
}

func (s *Store) DeletePlayerSnapshots(ctx context.Context, playerID uuid.UUID) ([]stats.Key, error) {
	return s.deleteReturning(ctx, `
		DELETE FROM player_position_history WHERE player_id = $1
		RETURNING player_id, team_id, season
	`, playerID)
}

func (s *Store) deleteReturning(ctx context.Context, query string, id uuid.UUID) ([]stats.Key, error) {
	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]stats.Key, 0)
	for rows.Next() {
		var k stats.Key
		if err := rows.Scan(&k.PlayerID, &k.TeamID, &k.Season); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func lockLineup(ctx context.Context, tx pgx.Tx, gameID uuid.UUID) (*lineups.Lineup, error) {
	var (
		l       lineups.Lineup
		innings []byte
	)
	err := tx.QueryRow(ctx, `
		SELECT id, game_id, innings, created_at, updated_at
		FROM lineups WHERE game_id = $1
		FOR UPDATE
	`, gameID).Scan(&l.ID, &l.GameID, &innings, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	l.Innings = decodeInnings(innings)
	return &l, nil
}

func scanGame(row pgx.Row) (lineups.Game, error) {
	var (
		g         lineups.Game
		lineupID  *uuid.UUID
		innings   []byte
		createdAt *time.Time
		updatedAt *time.Time
	)
	if err := row.Scan(&g.ID, &g.TeamID, &g.Season, &g.Date, &g.Opponent, &lineupID, &innings, &createdAt, &updatedAt); err != nil {
		return lineups.Game{}, err
	}
	if lineupID == nil {
		return g, nil
	}
	l := &lineups.Lineup{ID: *lineupID, GameID: g.ID}
	if createdAt != nil {
		l.CreatedAt = *createdAt
	}
	if updatedAt != nil {
		l.UpdatedAt = *updatedAt
	}
	l.Innings = decodeInnings(innings)
	g.Lineup = l
	return g, nil
}

func scanHistory(row pgx.Row) (stats.PlayerPositionHistory, error) {
	var (
		h       stats.PlayerPositionHistory
		metrics []byte
	)
	if err := row.Scan(&h.ID, &h.PlayerID, &h.TeamID, &h.Season, &h.GamesPlayed, &metrics, &h.UpdatedAt); err != nil {
		return stats.PlayerPositionHistory{}, err
	}
	if err := json.Unmarshal(metrics, &h.Metrics); err != nil {
		return stats.PlayerPositionHistory{}, fmt.Errorf("decode metrics for %s: %w", h.Key(), err)
	}
	if h.GamesPlayed == nil {
		h.GamesPlayed = []uuid.UUID{}
	}
	h.UpdatedAt = h.UpdatedAt.UTC()
	return h, nil
}

// decodeInnings decodes each inning on its own so one bad inning cannot hide
// the rest of the lineup. An inning that does not decode is kept with number 0,
// which extraction skips and reports as malformed.
func decodeInnings(raw []byte) []lineups.Inning {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []lineups.Inning{}
	}
	out := make([]lineups.Inning, 0, len(items))
	for _, item := range items {
		var in lineups.Inning
		if err := json.Unmarshal(item, &in); err != nil {
			in = lineups.Inning{}
		}
		out = append(out, in)
	}
	return out
}
