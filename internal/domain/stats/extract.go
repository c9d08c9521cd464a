package stats

import (
	"sort"

	"github.com/google/uuid"
	"github.com/lutefd/fairplay-api/internal/domain/lineups"
	"github.com/lutefd/fairplay-api/internal/domain/positions"
)

type SkipReason string

const (
	SkipMissingInning   SkipReason = "missing_inning_number"
	SkipDuplicateInning SkipReason = "duplicate_inning_number"
	SkipUnknownPosition SkipReason = "unknown_position"
	SkipDuplicatePlayer SkipReason = "player_listed_twice"
)

// SkippedInning records an inning that was dropped as malformed.
type SkippedInning struct {
	GameID uuid.UUID  `json:"gameId"`
	Inning int        `json:"inning"`
	Reason SkipReason `json:"reason"`
}

type Extraction struct {
	Assignments []PositionAssignment
	Skipped     []SkippedInning
}

// Extract pulls one player's chronological assignment stream out of a team
// season. Malformed innings are skipped and reported, never fatal.
func Extract(season lineups.SeasonGames, playerID uuid.UUID) Extraction {
	out := Extraction{Assignments: make([]PositionAssignment, 0)}

	for _, game := range season.Games {
		if game.Lineup == nil || !season.Contains(game.Date) {
			continue
		}

		numbers := make(map[int]int, len(game.Lineup.Innings))
		for _, inning := range game.Lineup.Innings {
			numbers[inning.Number]++
		}

		for _, inning := range game.Lineup.Innings {
			if inning.Number <= 0 {
				out.Skipped = append(out.Skipped, SkippedInning{GameID: game.ID, Inning: inning.Number, Reason: SkipMissingInning})
				continue
			}
			if numbers[inning.Number] > 1 {
				out.Skipped = append(out.Skipped, SkippedInning{GameID: game.ID, Inning: inning.Number, Reason: SkipDuplicateInning})
				continue
			}

			pos, reason, ok := playerPosition(inning, playerID)
			if reason != "" {
				out.Skipped = append(out.Skipped, SkippedInning{GameID: game.ID, Inning: inning.Number, Reason: reason})
				continue
			}
			if !ok {
				continue
			}
			out.Assignments = append(out.Assignments, PositionAssignment{
				GameID:   game.ID,
				GameDate: game.Date,
				Inning:   inning.Number,
				Position: pos,
			})
		}
	}

	SortAssignments(out.Assignments)
	return out
}

// playerPosition validates the whole inning before reading the player's slot,
// so a bad code anywhere in the inning drops it for everyone consistently.
func playerPosition(inning lineups.Inning, playerID uuid.UUID) (positions.Code, SkipReason, bool) {
	var found positions.Code
	var ok bool
	for _, a := range inning.Assignments {
		code, err := positions.Parse(a.Position)
		if err != nil {
			return "", SkipUnknownPosition, false
		}
		if a.PlayerID != playerID {
			continue
		}
		if ok {
			return "", SkipDuplicatePlayer, false
		}
		found, ok = code, true
	}
	return found, "", ok
}

// SortAssignments orders by (game date, game id, inning).
func SortAssignments(items []PositionAssignment) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.GameDate.Equal(b.GameDate) {
			return a.GameDate.Before(b.GameDate)
		}
		if a.GameID != b.GameID {
			return a.GameID.String() < b.GameID.String()
		}
		return a.Inning < b.Inning
	})
}
