package updater

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateScore(t *testing.T) {
	tests := []struct {
		name             string
		games            []GameResult
		wantScore        int64
		wantAchievements int
		wantGames        int
	}{
		{
			name:      "no games",
			games:     nil,
			wantScore: 0,
		},
		{
			name: "single common achievement",
			games: []GameResult{
				{AppID: 440, Unlocked: []string{"ACH_WIN"}, GlobalPercent: map[string]float64{"ACH_WIN": 90}},
			},
			wantScore:        10,
			wantAchievements: 1,
			wantGames:        1,
		},
		{
			name: "rarity weighting across games",
			games: []GameResult{
				{
					AppID:    440,
					Unlocked: []string{"ACH_COMMON", "ACH_RARE"},
					GlobalPercent: map[string]float64{
						"ACH_COMMON": 80,
						"ACH_RARE":   5,
					},
				},
				{
					AppID:         620,
					Unlocked:      []string{"ACH_MID"},
					GlobalPercent: map[string]float64{"ACH_MID": 40},
				},
			},
			// (100-80) + (100-5) + (100-40) = 175
			wantScore:        175,
			wantAchievements: 3,
			wantGames:        2,
		},
		{
			name: "missing percentage defaults to zero",
			games: []GameResult{
				{AppID: 440, Unlocked: []string{"ACH_UNLISTED"}, GlobalPercent: map[string]float64{}},
			},
			wantScore:        100,
			wantAchievements: 1,
			wantGames:        1,
		},
		{
			name: "nil percentage map defaults every key to zero",
			games: []GameResult{
				{AppID: 440, Unlocked: []string{"A", "B"}},
			},
			wantScore:        200,
			wantAchievements: 2,
			wantGames:        1,
		},
		{
			name: "games without unlocks contribute nothing",
			games: []GameResult{
				{AppID: 440, Unlocked: nil, GlobalPercent: map[string]float64{"ACH": 50}},
				{AppID: 620, Unlocked: []string{"ACH"}, GlobalPercent: map[string]float64{"ACH": 50}},
			},
			wantScore:        50,
			wantAchievements: 1,
			wantGames:        1,
		},
		{
			name: "percentages above 100 clamp to zero points",
			games: []GameResult{
				{AppID: 440, Unlocked: []string{"ACH"}, GlobalPercent: map[string]float64{"ACH": 250}},
			},
			wantScore:        0,
			wantAchievements: 1,
			wantGames:        1,
		},
		{
			name: "negative and NaN percentages clamp to full points",
			games: []GameResult{
				{
					AppID:    440,
					Unlocked: []string{"NEG", "NAN"},
					GlobalPercent: map[string]float64{
						"NEG": -3,
						"NAN": math.NaN(),
					},
				},
			},
			wantScore:        200,
			wantAchievements: 2,
			wantGames:        1,
		},
		{
			name: "fractional total rounds to nearest integer",
			games: []GameResult{
				{
					AppID:    440,
					Unlocked: []string{"A", "B", "C"},
					GlobalPercent: map[string]float64{
						"A": 84.9,
						"B": 30.2,
						"C": 0.4,
					},
				},
			},
			// 15.1 + 69.8 + 99.6 = 184.5, rounds to 185
			wantScore:        185,
			wantAchievements: 3,
			wantGames:        1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateScore(tt.games)
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, tt.wantAchievements, got.Achievements)
			assert.Equal(t, tt.wantGames, got.Games)
		})
	}
}

func TestCalculateScoreIsOrderIndependent(t *testing.T) {
	games := []GameResult{
		{AppID: 1, Unlocked: []string{"A"}, GlobalPercent: map[string]float64{"A": 12.5}},
		{AppID: 2, Unlocked: []string{"B"}, GlobalPercent: map[string]float64{"B": 77.7}},
		{AppID: 3, Unlocked: []string{"C"}, GlobalPercent: map[string]float64{"C": 0.1}},
	}
	reversed := []GameResult{games[2], games[1], games[0]}

	assert.Equal(t, CalculateScore(games), CalculateScore(reversed))
}
