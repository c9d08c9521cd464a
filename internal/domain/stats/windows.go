package stats

import "github.com/google/uuid"

const (
	Last5Size = 5
	Last3Size = 3
)

// Window is a trailing slice of a player's games.
type Window struct {
	// GameIDs are newest first.
	GameIDs []uuid.UUID
	// Assignments are chronological.
	Assignments []PositionAssignment
}

type Windows struct {
	Season     Window
	Last5Games Window
	Last3Games Window
	LastGame   Window
}

// GroupByGame splits a sorted assignment stream into per-game records,
// ordered by (date, game id).
func GroupByGame(assignments []PositionAssignment) []PlayerGameRecord {
	sorted := append([]PositionAssignment(nil), assignments...)
	SortAssignments(sorted)

	records := make([]PlayerGameRecord, 0)
	for _, a := range sorted {
		n := len(records)
		if n == 0 || records[n-1].GameID != a.GameID {
			records = append(records, PlayerGameRecord{GameID: a.GameID, GameDate: a.GameDate})
			n++
		}
		records[n-1].Assignments = append(records[n-1].Assignments, a)
	}
	return records
}

// BuildWindows sorts once and slices every trailing window off the same
// game list, so all windows nest by construction.
func BuildWindows(assignments []PositionAssignment) Windows {
	games := GroupByGame(assignments)
	return Windows{
		Season:     trailing(games, len(games)),
		Last5Games: trailing(games, Last5Size),
		Last3Games: trailing(games, Last3Size),
		LastGame:   trailing(games, 1),
	}
}

func trailing(games []PlayerGameRecord, n int) Window {
	if n > len(games) {
		n = len(games)
	}
	tail := games[len(games)-n:]

	w := Window{
		GameIDs:     make([]uuid.UUID, 0, n),
		Assignments: make([]PositionAssignment, 0),
	}
	for i := len(tail) - 1; i >= 0; i-- {
		w.GameIDs = append(w.GameIDs, tail[i].GameID)
	}
	for _, g := range tail {
		w.Assignments = append(w.Assignments, g.Assignments...)
	}
	return w
}
