package stats

import (
	"time"

	"github.com/google/uuid"
	"github.com/lutefd/fairplay-api/internal/domain/positions"
)

type PositionAssignment struct {
	GameID   uuid.UUID      `json:"gameId"`
	GameDate time.Time      `json:"gameDate"`
	Inning   int            `json:"inning"`
	Position positions.Code `json:"position"`
}

// PlayerGameRecord is one player's innings for one game, in inning order.
type PlayerGameRecord struct {
	GameID      uuid.UUID
	GameDate    time.Time
	Assignments []PositionAssignment
}

type BenchStreak struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

type SamePositionStreak struct {
	Position *positions.Code `json:"position"`
	Count    int             `json:"count"`
}

type TimeframeMetrics struct {
	PositionCounts          map[positions.Code]int     `json:"positionCounts"`
	PositionPercentages     map[positions.Code]float64 `json:"positionPercentages"`
	PositionTypeCounts      map[positions.Type]int     `json:"positionTypeCounts"`
	PositionTypePercentages map[positions.Type]float64 `json:"positionTypePercentages"`
	BenchPercentage         float64                    `json:"benchPercentage"`
	PlayingTimePercentage   float64                    `json:"playingTimePercentage"`
	VarietyScore            int                        `json:"varietyScore"`
	ConsecutiveBench        int                        `json:"consecutiveBench"`
	BenchStreak             BenchStreak                `json:"benchStreak"`
	SamePositionStreak      SamePositionStreak         `json:"samePositionStreak"`
	NeedsInfield            bool                       `json:"needsInfield"`
	NeedsOutfield           bool                       `json:"needsOutfield"`
	TotalInnings            int                        `json:"totalInnings"`
	GamesPlayed             int                        `json:"gamesPlayed"`
}

type WindowedMetrics struct {
	Season     TimeframeMetrics `json:"season"`
	Last5Games TimeframeMetrics `json:"last5Games"`
	Last3Games TimeframeMetrics `json:"last3Games"`
	LastGame   TimeframeMetrics `json:"lastGame"`
}

// PlayerPositionHistory is the persisted snapshot for one (player, team, season).
type PlayerPositionHistory struct {
	ID          uuid.UUID       `json:"id"`
	PlayerID    uuid.UUID       `json:"playerId"`
	TeamID      uuid.UUID       `json:"teamId"`
	Season      string          `json:"season"`
	GamesPlayed []uuid.UUID     `json:"gamesPlayed"`
	Metrics     WindowedMetrics `json:"metrics"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Key identifies one snapshot.
type Key struct {
	PlayerID uuid.UUID
	TeamID   uuid.UUID
	Season   string
}

func (k Key) String() string {
	return k.PlayerID.String() + "/" + k.TeamID.String() + "/" + k.Season
}

func (h PlayerPositionHistory) Key() Key {
	return Key{PlayerID: h.PlayerID, TeamID: h.TeamID, Season: h.Season}
}

var historyNamespace = uuid.MustParse("6f1f4c1e-8a52-4d77-9a53-2f0d5b0c9e11")

// HistoryID derives a stable snapshot id so repeated recomputes keep the same identity.
func HistoryID(playerID, teamID uuid.UUID, season string) uuid.UUID {
	return uuid.NewSHA1(historyNamespace, []byte(Key{PlayerID: playerID, TeamID: teamID, Season: season}.String()))
}

func emptyTimeframe() TimeframeMetrics {
	return TimeframeMetrics{
		PositionCounts:          map[positions.Code]int{},
		PositionPercentages:     map[positions.Code]float64{},
		PositionTypeCounts:      map[positions.Type]int{},
		PositionTypePercentages: map[positions.Type]float64{},
		SamePositionStreak:      SamePositionStreak{},
	}
}
