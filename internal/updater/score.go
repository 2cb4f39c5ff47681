package updater

import "math"

// GameResult is the transient per-game achievement state consumed by the
// score calculation and discarded afterwards.
type GameResult struct {
	AppID int64
	// Unlocked holds the achievement keys the hunter has unlocked.
	Unlocked []string
	// GlobalPercent maps achievement keys to their global unlock percentage.
	// A key missing from the map scores at the documented default of 0%
	// global unlock, i.e. the maximum 100 points.
	GlobalPercent map[string]float64
}

// ScoreSummary is the aggregate produced by one score calculation.
type ScoreSummary struct {
	Score        int64
	Achievements int
	// Games counts distinct games contributing at least one unlocked
	// achievement.
	Games int
}

// CalculateScore reduces per-game achievement data to a hunter's aggregate
// score: for every unlocked achievement the hunter earns 100 minus its global
// unlock percentage, each percentage clamped to [0,100] to guard against
// malformed API data. Deterministic and order-independent.
func CalculateScore(games []GameResult) ScoreSummary {
	var summary ScoreSummary
	var total float64

	for _, game := range games {
		if len(game.Unlocked) == 0 {
			continue
		}
		summary.Games++
		for _, key := range game.Unlocked {
			pct := clampPercent(game.GlobalPercent[key])
			total += 100 - pct
			summary.Achievements++
		}
	}

	summary.Score = int64(math.Round(total))
	return summary
}

func clampPercent(pct float64) float64 {
	switch {
	case pct < 0 || math.IsNaN(pct):
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}
