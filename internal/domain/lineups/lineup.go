package lineups

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

type Assignment struct {
	Position string    `json:"position"`
	PlayerID uuid.UUID `json:"playerId"`
}

type Inning struct {
	Number      int          `json:"number"`
	Assignments []Assignment `json:"assignments"`
}

type Lineup struct {
	ID        uuid.UUID `json:"id"`
	GameID    uuid.UUID `json:"gameId"`
	Innings   []Inning  `json:"innings"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Game struct {
	ID       uuid.UUID `json:"id"`
	TeamID   uuid.UUID `json:"teamId"`
	Season   string    `json:"season"`
	Date     time.Time `json:"date"`
	Opponent string    `json:"opponent"`
	Lineup   *Lineup   `json:"lineup,omitempty"`
}

// SeasonGames is what the lineup source yields for one team season.
// A zero Start or End leaves that side of the season open.
type SeasonGames struct {
	TeamID uuid.UUID `json:"teamId"`
	Season string    `json:"season"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Games  []Game    `json:"games"`
}

// TeamSeason identifies one season of one team.
type TeamSeason struct {
	TeamID uuid.UUID `json:"teamId"`
	Season string    `json:"season"`
}

func (s SeasonGames) Contains(t time.Time) bool {
	if !s.Start.IsZero() && t.Before(s.Start) {
		return false
	}
	if !s.End.IsZero() && t.After(s.End) {
		return false
	}
	return true
}

// PlayerIDs lists every player referenced anywhere in the lineup, sorted.
func (l *Lineup) PlayerIDs() []uuid.UUID {
	if l == nil {
		return nil
	}
	seen := make(map[uuid.UUID]struct{})
	for _, inning := range l.Innings {
		for _, a := range inning.Assignments {
			if a.PlayerID == uuid.Nil {
				continue
			}
			seen[a.PlayerID] = struct{}{}
		}
	}
	return sortedIDs(seen)
}

// UnionPlayerIDs merges the players of several lineups; nil lineups are ignored.
func UnionPlayerIDs(items ...*Lineup) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	for _, l := range items {
		for _, id := range l.PlayerIDs() {
			seen[id] = struct{}{}
		}
	}
	return sortedIDs(seen)
}

func sortedIDs(set map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
