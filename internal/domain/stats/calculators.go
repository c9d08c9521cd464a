package stats

import (
	"math"

	"github.com/google/uuid"
	"github.com/lutefd/fairplay-api/internal/domain/positions"
)

const (
	FairnessThreshold = 20.0
	MinSampleInnings  = 3
)

func VarietyScore(seq []PositionAssignment) int {
	distinct := make(map[positions.Code]struct{})
	for _, a := range seq {
		if a.Position.IsFielding() {
			distinct[a.Position] = struct{}{}
		}
	}
	score := int(math.Round(100 * float64(len(distinct)) / positions.FieldingCount))
	if score > 100 {
		return 100
	}
	return score
}

func NeedsInfield(typePercentages map[positions.Type]float64, totalInnings int) bool {
	return needs(typePercentages[positions.TypeInfield], totalInnings)
}

func NeedsOutfield(typePercentages map[positions.Type]float64, totalInnings int) bool {
	return needs(typePercentages[positions.TypeOutfield], totalInnings)
}

func needs(pct float64, totalInnings int) bool {
	return totalInnings >= MinSampleInnings && pct < FairnessThreshold
}

func CountPositions(seq []PositionAssignment) map[positions.Code]int {
	counts := make(map[positions.Code]int)
	for _, a := range seq {
		counts[a.Position]++
	}
	return counts
}

func CountTypes(counts map[positions.Code]int) map[positions.Type]int {
	out := make(map[positions.Type]int)
	for code, c := range counts {
		if c > 0 {
			out[code.Type()] += c
		}
	}
	return out
}

// Aggregate computes the full metric set for one window.
func Aggregate(w Window) TimeframeMetrics {
	m := emptyTimeframe()
	seq := w.Assignments
	m.GamesPlayed = len(w.GameIDs)
	m.TotalInnings = len(seq)
	if m.TotalInnings == 0 {
		return m
	}

	m.PositionCounts = CountPositions(seq)
	m.PositionTypeCounts = CountTypes(m.PositionCounts)
	m.PositionPercentages = Percentages(m.PositionCounts, positions.Code.Order)
	m.PositionTypePercentages = Percentages(m.PositionTypeCounts, positions.Type.Order)

	m.BenchPercentage = m.PositionTypePercentages[positions.TypeBench]
	m.PlayingTimePercentage = complement(m.BenchPercentage)

	m.VarietyScore = VarietyScore(seq)
	m.ConsecutiveBench = ConsecutiveBench(seq)
	m.BenchStreak = CurrentBenchStreak(seq)
	m.SamePositionStreak = CurrentSamePositionStreak(seq)
	m.NeedsInfield = NeedsInfield(m.PositionTypePercentages, m.TotalInnings)
	m.NeedsOutfield = NeedsOutfield(m.PositionTypePercentages, m.TotalInnings)
	return m
}

// BuildHistory runs the whole engine over an extracted stream. UpdatedAt is
// left for the caller so the rest of the record is a pure function of input.
func BuildHistory(playerID, teamID uuid.UUID, season string, assignments []PositionAssignment) PlayerPositionHistory {
	w := BuildWindows(assignments)
	return PlayerPositionHistory{
		ID:          HistoryID(playerID, teamID, season),
		PlayerID:    playerID,
		TeamID:      teamID,
		Season:      season,
		GamesPlayed: w.Season.GameIDs,
		Metrics: WindowedMetrics{
			Season:     Aggregate(w.Season),
			Last5Games: Aggregate(w.Last5Games),
			Last3Games: Aggregate(w.Last3Games),
			LastGame:   Aggregate(w.LastGame),
		},
	}
}
