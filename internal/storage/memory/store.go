package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lutefd/fairplay-api/internal/domain/lineups"
	"github.com/lutefd/fairplay-api/internal/domain/stats"
	"github.com/lutefd/fairplay-api/internal/storage"
)

type seasonBounds struct {
	start, end time.Time
}

// Store keeps games, lineups and snapshots in memory. It backs tests and the
// "memory" storage driver.
type Store struct {
	mu        sync.RWMutex
	games     map[uuid.UUID]lineups.Game
	seasons   map[lineups.TeamSeason]seasonBounds
	snapshots map[stats.Key]stats.PlayerPositionHistory
}

func NewStore() *Store {
	return &Store{
		games:     make(map[uuid.UUID]lineups.Game),
		seasons:   make(map[lineups.TeamSeason]seasonBounds),
		snapshots: make(map[stats.Key]stats.PlayerPositionHistory),
	}
}

// SaveGame inserts or replaces a game, lineup included.
func (s *Store) SaveGame(_ context.Context, g lineups.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.Lineup = cloneLineup(g.Lineup)
	s.games[g.ID] = g
	return nil
}

func (s *Store) SetSeasonBounds(_ context.Context, teamID uuid.UUID, season string, start, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seasons[lineups.TeamSeason{TeamID: teamID, Season: season}] = seasonBounds{start: start, end: end}
	return nil
}

func (s *Store) GetGame(_ context.Context, teamID, gameID uuid.UUID) (lineups.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[gameID]
	if !ok || g.TeamID != teamID {
		return lineups.Game{}, storage.ErrNotFound
	}
	g.Lineup = cloneLineup(g.Lineup)
	return g, nil
}

func (s *Store) PutLineup(_ context.Context, teamID, gameID uuid.UUID, l lineups.Lineup) (*lineups.Lineup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[gameID]
	if !ok || g.TeamID != teamID {
		return nil, storage.ErrNotFound
	}
	previous := g.Lineup
	l.GameID = gameID
	if previous != nil {
		l.ID = previous.ID
		l.CreatedAt = previous.CreatedAt
	}
	g.Lineup = cloneLineup(&l)
	s.games[gameID] = g
	return previous, nil
}

func (s *Store) DeleteLineup(_ context.Context, teamID, gameID uuid.UUID) (*lineups.Lineup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[gameID]
	if !ok || g.TeamID != teamID || g.Lineup == nil {
		return nil, storage.ErrNotFound
	}
	previous := g.Lineup
	g.Lineup = nil
	s.games[gameID] = g
	return previous, nil
}

func (s *Store) LoadSeason(_ context.Context, teamID uuid.UUID, season string) (lineups.SeasonGames, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bounds := s.seasons[lineups.TeamSeason{TeamID: teamID, Season: season}]
	out := lineups.SeasonGames{TeamID: teamID, Season: season, Start: bounds.start, End: bounds.end, Games: make([]lineups.Game, 0)}
	for _, g := range s.games {
		if g.TeamID != teamID || g.Season != season {
			continue
		}
		g.Lineup = cloneLineup(g.Lineup)
		out.Games = append(out.Games, g)
	}
	sort.Slice(out.Games, func(i, j int) bool {
		if !out.Games[i].Date.Equal(out.Games[j].Date) {
			return out.Games[i].Date.Before(out.Games[j].Date)
		}
		return out.Games[i].ID.String() < out.Games[j].ID.String()
	})
	return out, nil
}

// ListActiveTeamSeasons returns team seasons with a lineup touched since the cutoff.
func (s *Store) ListActiveTeamSeasons(_ context.Context, since time.Time) ([]lineups.TeamSeason, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[lineups.TeamSeason]struct{})
	for _, g := range s.games {
		if g.Lineup == nil || g.Lineup.UpdatedAt.Before(since) {
			continue
		}
		seen[lineups.TeamSeason{TeamID: g.TeamID, Season: g.Season}] = struct{}{}
	}
	out := make([]lineups.TeamSeason, 0, len(seen))
	for ts := range seen {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TeamID != out[j].TeamID {
			return out[i].TeamID.String() < out[j].TeamID.String()
		}
		return out[i].Season < out[j].Season
	})
	return out, nil
}

func (s *Store) GetHistory(_ context.Context, key stats.Key) (*stats.PlayerPositionHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.snapshots[key]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (s *Store) SaveHistory(_ context.Context, h stats.PlayerPositionHistory, prior *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.snapshots[h.Key()]
	switch {
	case prior == nil && ok:
		return storage.ErrSnapshotConflict
	case prior != nil && (!ok || !stored.UpdatedAt.Equal(*prior)):
		return storage.ErrSnapshotConflict
	}
	s.snapshots[h.Key()] = h
	return nil
}

func (s *Store) ListHistoriesByTeam(_ context.Context, teamID uuid.UUID, season string) ([]stats.PlayerPositionHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]stats.PlayerPositionHistory, 0)
	for k, h := range s.snapshots {
		if k.TeamID == teamID && k.Season == season {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *Store) DeleteTeamSnapshots(_ context.Context, teamID uuid.UUID) ([]stats.Key, error) {
	return s.deleteWhere(func(k stats.Key) bool { return k.TeamID == teamID }), nil
}

func (s *Store) DeletePlayerSnapshots(_ context.Context, playerID uuid.UUID) ([]stats.Key, error) {
	return s.deleteWhere(func(k stats.Key) bool { return k.PlayerID == playerID }), nil
}

func (s *Store) deleteWhere(match func(stats.Key) bool) []stats.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := make([]stats.Key, 0)
	for k := range s.snapshots {
		if match(k) {
			delete(s.snapshots, k)
			deleted = append(deleted, k)
		}
	}
	return deleted
}

func cloneLineup(l *lineups.Lineup) *lineups.Lineup {
	if l == nil {
		return nil
	}
	out := *l
	out.Innings = make([]lineups.Inning, len(l.Innings))
	for i, in := range l.Innings {
		out.Innings[i] = lineups.Inning{
			Number:      in.Number,
			Assignments: append([]lineups.Assignment(nil), in.Assignments...),
		}
	}
	return &out
}
