package stats

import "github.com/lutefd/fairplay-api/internal/domain/positions"

// ConsecutiveBench counts bench innings backward from the most recent inning.
func ConsecutiveBench(seq []PositionAssignment) int {
	n := 0
	for i := len(seq) - 1; i >= 0; i-- {
		if !seq[i].Position.IsBench() {
			break
		}
		n++
	}
	return n
}

func LongestBenchRun(seq []PositionAssignment) int {
	run, best := 0, 0
	for _, a := range seq {
		if !a.Position.IsBench() {
			run = 0
			continue
		}
		run++
		if run > best {
			best = run
		}
	}
	return best
}

func CurrentBenchStreak(seq []PositionAssignment) BenchStreak {
	return BenchStreak{Current: ConsecutiveBench(seq), Max: LongestBenchRun(seq)}
}

// CurrentSamePositionStreak reports the most recent run of one fielding
// position. A bench inning ends the run; ending on the bench yields no run.
func CurrentSamePositionStreak(seq []PositionAssignment) SamePositionStreak {
	var current positions.Code
	count := 0
	for _, a := range seq {
		switch {
		case a.Position.IsBench():
			current, count = "", 0
		case a.Position == current:
			count++
		default:
			current, count = a.Position, 1
		}
	}
	if count == 0 {
		return SamePositionStreak{}
	}
	return SamePositionStreak{Position: &current, Count: count}
}
