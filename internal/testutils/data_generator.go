package testutils

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"

	hunterdb "github.com/achievement-hunters/hunter-bot/app/modules/hunter/infrastructure/repositories"
)

// TestDataGenerator produces deterministic hunter fixtures for tests.
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewTestDataGenerator creates a generator, seeded for reproducibility when a
// seed is given and from the clock otherwise.
func NewTestDataGenerator(seed ...int64) *TestDataGenerator {
	var s int64
	if len(seed) > 0 {
		s = seed[0]
	} else {
		s = time.Now().UnixNano()
	}

	return &TestDataGenerator{
		faker: gofakeit.New(uint64(s)),
		seed:  s,
	}
}

// SteamID returns a plausible 17-digit SteamID64.
func (g *TestDataGenerator) SteamID() string {
	return "7656119" + g.faker.Numerify("##########")
}

// GenerateHunters creates count hunters with distinct steam ids and scores.
func (g *TestDataGenerator) GenerateHunters(count int) []*hunterdb.Hunter {
	hunters := make([]*hunterdb.Hunter, count)
	for i := 0; i < count; i++ {
		updated := g.faker.DateRange(time.Now().Add(-30*24*time.Hour), time.Now())
		hunters[i] = &hunterdb.Hunter{
			SteamID:           g.SteamID(),
			SteamName:         g.faker.Gamertag(),
			Score:             int64(g.faker.Number(100, 50000)),
			TotalAchievements: g.faker.Number(10, 5000),
			TotalGames:        g.faker.Number(1, 400),
			LastUpdated:       &updated,
			CreatedAt:         time.Now(),
		}
	}
	return hunters
}
