package stats

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lutefd/fairplay-api/internal/domain/positions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seasonStart = time.Date(2026, 4, 4, 10, 0, 0, 0, time.UTC)

// game builds one game's assignments from a list of codes, innings numbered from 1.
func game(id uuid.UUID, day int, codes ...positions.Code) []PositionAssignment {
	out := make([]PositionAssignment, 0, len(codes))
	for i, c := range codes {
		out = append(out, PositionAssignment{
			GameID:   id,
			GameDate: seasonStart.AddDate(0, 0, day),
			Inning:   i + 1,
			Position: c,
		})
	}
	return out
}

func TestAggregateOneGameEndingOnBench(t *testing.T) {
	seq := game(uuid.New(), 0, positions.Pitcher, positions.Pitcher, positions.Bench, positions.Bench, positions.Bench)

	m := Aggregate(BuildWindows(seq).Season)

	assert.Equal(t, map[positions.Code]int{positions.Pitcher: 2, positions.Bench: 3}, m.PositionCounts)
	assert.Equal(t, 60.0, m.BenchPercentage)
	assert.Equal(t, 40.0, m.PlayingTimePercentage)
	assert.Equal(t, 3, m.ConsecutiveBench)
	assert.Equal(t, BenchStreak{Current: 3, Max: 3}, m.BenchStreak)
	assert.Nil(t, m.SamePositionStreak.Position)
	assert.Equal(t, 0, m.SamePositionStreak.Count)
	assert.Equal(t, 5, m.TotalInnings)
	assert.Equal(t, 1, m.GamesPlayed)
}

func TestAggregateSamePositionAcrossGames(t *testing.T) {
	seq := append(
		game(uuid.New(), 0, positions.FirstBase, positions.FirstBase, positions.FirstBase),
		game(uuid.New(), 7, positions.FirstBase, positions.FirstBase)...,
	)

	m := Aggregate(BuildWindows(seq).Season)

	require.NotNil(t, m.SamePositionStreak.Position)
	assert.Equal(t, positions.FirstBase, *m.SamePositionStreak.Position)
	assert.Equal(t, 5, m.SamePositionStreak.Count)
	assert.Equal(t, BenchStreak{Current: 0, Max: 0}, m.BenchStreak)
	assert.Equal(t, 11, m.VarietyScore)
	assert.Equal(t, 100.0, m.PositionTypePercentages[positions.TypeInfield])
	assert.Equal(t, 0.0, m.BenchPercentage)
	assert.Equal(t, 100.0, m.PlayingTimePercentage)
}

func TestNeedsFlagsRespectSampleFloor(t *testing.T) {
	tests := []struct {
		name    string
		pct     map[positions.Type]float64
		innings int
		infield bool
		outfld  bool
	}{
		{name: "below threshold with sample", pct: map[positions.Type]float64{positions.TypeInfield: 10.0, positions.TypeOutfield: 90.0}, innings: 12, infield: true},
		{name: "below floor", pct: map[positions.Type]float64{}, innings: 2},
		{name: "exactly at threshold", pct: map[positions.Type]float64{positions.TypeInfield: 20.0, positions.TypeOutfield: 20.0}, innings: 5},
		{name: "both missing", pct: map[positions.Type]float64{positions.TypeBench: 100.0}, innings: 3, infield: true, outfld: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.infield, NeedsInfield(tc.pct, tc.innings))
			assert.Equal(t, tc.outfld, NeedsOutfield(tc.pct, tc.innings))
		})
	}
}

func TestAggregateNeedsInfieldFromInnings(t *testing.T) {
	codes := []positions.Code{positions.Shortstop}
	for i := 0; i < 9; i++ {
		codes = append(codes, positions.LeftField)
	}
	m := Aggregate(BuildWindows(game(uuid.New(), 0, codes...)).Season)

	assert.Equal(t, 10.0, m.PositionTypePercentages[positions.TypeInfield])
	assert.True(t, m.NeedsInfield)
	assert.False(t, m.NeedsOutfield)

	small := Aggregate(BuildWindows(game(uuid.New(), 0, positions.LeftField, positions.LeftField)).Season)
	assert.Equal(t, 2, small.TotalInnings)
	assert.False(t, small.NeedsInfield)
}

func TestVarietyScoreIsMonotonic(t *testing.T) {
	fielding := []positions.Code{
		positions.Pitcher, positions.Catcher, positions.FirstBase, positions.SecondBase, positions.ThirdBase,
		positions.Shortstop, positions.LeftField, positions.CenterField, positions.RightField,
	}
	base := []positions.Code{positions.Bench, positions.Designated}

	prev := -1
	for i := 0; i <= len(fielding); i++ {
		codes := append(append([]positions.Code(nil), base...), fielding[:i]...)
		score := VarietyScore(game(uuid.New(), 0, codes...))
		assert.GreaterOrEqual(t, score, prev, "distinct=%d", i)
		prev = score
	}
	assert.Equal(t, 100, prev)
}

func TestVarietyIgnoresDesignatedHitterAndBench(t *testing.T) {
	seq := game(uuid.New(), 0, positions.Designated, positions.Bench, positions.Designated)
	assert.Equal(t, 0, VarietyScore(seq))
}

func TestAggregateEmptyWindowIsZeroed(t *testing.T) {
	m := Aggregate(Window{})

	assert.Equal(t, 0, m.TotalInnings)
	assert.Equal(t, 0, m.GamesPlayed)
	assert.Equal(t, 0.0, m.BenchPercentage)
	assert.Equal(t, 0.0, m.PlayingTimePercentage)
	assert.NotNil(t, m.PositionCounts)
	assert.Empty(t, m.PositionPercentages)
	assert.False(t, m.NeedsInfield)
	assert.False(t, m.NeedsOutfield)
}

func TestAggregateInvariants(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	seq := make([]PositionAssignment, 0)
	rotation := positions.All()
	for g, id := range ids {
		codes := make([]positions.Code, 0, 6)
		for i := 0; i < 6; i++ {
			codes = append(codes, rotation[(g*5+i*3)%len(rotation)])
		}
		seq = append(seq, game(id, g*3, codes...)...)
	}

	w := BuildWindows(seq)
	for name, window := range map[string]Window{"season": w.Season, "last5": w.Last5Games, "last3": w.Last3Games, "last": w.LastGame} {
		m := Aggregate(window)
		total := 0
		for _, c := range m.PositionCounts {
			total += c
		}
		assert.Equal(t, m.TotalInnings, total, name)
		sum := SumPercentages(m.PositionPercentages)
		assert.InDelta(t, 100.0, sum, 0.1, name)
		assert.InDelta(t, 100.0, SumPercentages(m.PositionTypePercentages), 0.1, name)
		assert.InDelta(t, 100.0, m.BenchPercentage+m.PlayingTimePercentage, 0.1, name)
		assert.LessOrEqual(t, m.BenchStreak.Current, m.BenchStreak.Max, name)
	}
}

func TestBuildHistoryIsDeterministic(t *testing.T) {
	playerID := uuid.New()
	teamID := uuid.New()
	seq := append(
		game(uuid.New(), 0, positions.Catcher, positions.Bench),
		game(uuid.New(), 2, positions.RightField, positions.RightField)...,
	)

	first := BuildHistory(playerID, teamID, "2026-spring", seq)
	second := BuildHistory(playerID, teamID, "2026-spring", seq)

	assert.Equal(t, first, second)
	assert.Equal(t, HistoryID(playerID, teamID, "2026-spring"), first.ID)
	assert.NotEqual(t, first.ID, HistoryID(playerID, teamID, "2026-fall"))
	require.Len(t, first.GamesPlayed, 2)
	assert.Equal(t, seq[2].GameID, first.GamesPlayed[0])
}

func TestBuildHistoryWithoutGames(t *testing.T) {
	h := BuildHistory(uuid.New(), uuid.New(), "2026", nil)

	assert.NotNil(t, h.GamesPlayed)
	assert.Empty(t, h.GamesPlayed)
	assert.Equal(t, 0, h.Metrics.Season.TotalInnings)
	assert.Equal(t, 0, h.Metrics.LastGame.TotalInnings)
}
