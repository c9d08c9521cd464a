package stats

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lutefd/fairplay-api/internal/domain/lineups"
	"github.com/lutefd/fairplay-api/internal/domain/positions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inning(n int, pairs ...any) lineups.Inning {
	in := lineups.Inning{Number: n}
	for i := 0; i+1 < len(pairs); i += 2 {
		in.Assignments = append(in.Assignments, lineups.Assignment{
			Position: pairs[i].(string),
			PlayerID: pairs[i+1].(uuid.UUID),
		})
	}
	return in
}

func TestExtractOrdersChronologically(t *testing.T) {
	player := uuid.New()
	other := uuid.New()
	early := lineups.Game{
		ID:   uuid.New(),
		Date: time.Date(2026, 4, 1, 18, 0, 0, 0, time.UTC),
		Lineup: &lineups.Lineup{Innings: []lineups.Inning{
			inning(2, "C", player, "P", other),
			inning(1, "ss", player, "P", other),
		}},
	}
	late := lineups.Game{
		ID:   uuid.New(),
		Date: time.Date(2026, 4, 8, 18, 0, 0, 0, time.UTC),
		Lineup: &lineups.Lineup{Innings: []lineups.Inning{
			inning(1, "BN", player, "P", other),
		}},
	}

	got := Extract(lineups.SeasonGames{Games: []lineups.Game{late, early}}, player)

	require.Len(t, got.Assignments, 3)
	assert.Empty(t, got.Skipped)
	assert.Equal(t, positions.Shortstop, got.Assignments[0].Position)
	assert.Equal(t, positions.Catcher, got.Assignments[1].Position)
	assert.Equal(t, positions.Bench, got.Assignments[2].Position)
	assert.Equal(t, late.ID, got.Assignments[2].GameID)
}

func TestExtractSkipsMalformedInningsOnly(t *testing.T) {
	player := uuid.New()
	other := uuid.New()
	g := lineups.Game{
		ID:   uuid.New(),
		Date: time.Date(2026, 4, 1, 18, 0, 0, 0, time.UTC),
		Lineup: &lineups.Lineup{Innings: []lineups.Inning{
			inning(0, "P", player),
			inning(1, "P", player),
			inning(2, "XX", other, "C", player),
			inning(3, "1B", player),
			inning(3, "2B", player),
			inning(4, "LF", player, "RF", player),
			inning(5, "CF", player),
		}},
	}

	got := Extract(lineups.SeasonGames{Games: []lineups.Game{g}}, player)

	require.Len(t, got.Assignments, 2)
	assert.Equal(t, 1, got.Assignments[0].Inning)
	assert.Equal(t, 5, got.Assignments[1].Inning)

	reasons := make(map[SkipReason]int)
	for _, s := range got.Skipped {
		reasons[s.Reason]++
	}
	assert.Equal(t, 1, reasons[SkipMissingInning])
	assert.Equal(t, 1, reasons[SkipUnknownPosition])
	assert.Equal(t, 2, reasons[SkipDuplicateInning])
	assert.Equal(t, 1, reasons[SkipDuplicatePlayer])
}

func TestExtractHonoursSeasonBoundsAndMissingLineups(t *testing.T) {
	player := uuid.New()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	lineup := &lineups.Lineup{Innings: []lineups.Inning{inning(1, "P", player)}}

	season := lineups.SeasonGames{
		Start: start,
		End:   end,
		Games: []lineups.Game{
			{ID: uuid.New(), Date: start.AddDate(0, 0, -1), Lineup: lineup},
			{ID: uuid.New(), Date: start.AddDate(0, 0, 10), Lineup: lineup},
			{ID: uuid.New(), Date: start.AddDate(0, 0, 11)},
			{ID: uuid.New(), Date: end.AddDate(0, 0, 1), Lineup: lineup},
		},
	}

	got := Extract(season, player)
	require.Len(t, got.Assignments, 1)
	assert.Equal(t, season.Games[1].ID, got.Assignments[0].GameID)
}

func TestExtractPlayerAbsentFromInning(t *testing.T) {
	player := uuid.New()
	g := lineups.Game{
		ID:     uuid.New(),
		Date:   time.Date(2026, 4, 1, 18, 0, 0, 0, time.UTC),
		Lineup: &lineups.Lineup{Innings: []lineups.Inning{inning(1, "P", uuid.New())}},
	}

	got := Extract(lineups.SeasonGames{Games: []lineups.Game{g}}, player)
	assert.NotNil(t, got.Assignments)
	assert.Empty(t, got.Assignments)
	assert.Empty(t, got.Skipped)
}
