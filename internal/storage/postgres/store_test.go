package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lutefd/fairplay-api/internal/domain/lineups"
	"github.com/lutefd/fairplay-api/internal/domain/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gameRow mimics the column layout of the games/lineups join.
type gameRow struct {
	gameID   uuid.UUID
	teamID   uuid.UUID
	date     time.Time
	lineupID *uuid.UUID
	innings  []byte
}

func (r gameRow) Scan(dest ...any) error {
	*dest[0].(*uuid.UUID) = r.gameID
	*dest[1].(*uuid.UUID) = r.teamID
	*dest[2].(*string) = "2026"
	*dest[3].(*time.Time) = r.date
	*dest[4].(*string) = "Rockets"
	*dest[5].(**uuid.UUID) = r.lineupID
	*dest[6].(*[]byte) = r.innings
	at := r.date
	*dest[7].(**time.Time) = &at
	*dest[8].(**time.Time) = &at
	return nil
}

func TestScanGameKeepsGoodInningsNextToMalformedOnes(t *testing.T) {
	player := uuid.New()
	lineupID := uuid.New()
	innings := []byte(`[
		{"number": 1, "assignments": [{"position": "P", "playerId": "` + player.String() + `"}]},
		{"number": "2", "assignments": [{"position": "C", "playerId": "` + player.String() + `"}]},
		{"number": 3, "assignments": [{"position": "SS", "playerId": "` + player.String() + `"}]}
	]`)
	row := gameRow{gameID: uuid.New(), teamID: uuid.New(), date: time.Date(2026, 4, 4, 0, 0, 0, 0, time.UTC), lineupID: &lineupID, innings: innings}

	g, err := scanGame(row)
	require.NoError(t, err)
	require.NotNil(t, g.Lineup)
	require.Len(t, g.Lineup.Innings, 3)
	assert.Equal(t, 1, g.Lineup.Innings[0].Number)
	assert.Equal(t, 0, g.Lineup.Innings[1].Number)
	assert.Equal(t, 3, g.Lineup.Innings[2].Number)

	extraction := stats.Extract(lineups.SeasonGames{Games: []lineups.Game{g}}, player)
	assert.Len(t, extraction.Assignments, 2)
	require.Len(t, extraction.Skipped, 1)
	assert.Equal(t, stats.SkipMissingInning, extraction.Skipped[0].Reason)
}

func TestScanGameWithoutLineup(t *testing.T) {
	g, err := scanGame(gameRow{gameID: uuid.New(), teamID: uuid.New()})
	require.NoError(t, err)
	assert.Nil(t, g.Lineup)
}

func TestDecodeInnings(t *testing.T) {
	assert.Empty(t, decodeInnings([]byte(`{"not": "a list"}`)))
	assert.Empty(t, decodeInnings(nil))

	got := decodeInnings([]byte(`[{"number": 2, "assignments": []}, 7]`))
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Number)
	assert.Equal(t, lineups.Inning{}, got[1])
}
