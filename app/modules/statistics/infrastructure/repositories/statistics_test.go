package statisticsdb

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/achievement-hunters/hunter-bot/internal/steamapi"
)

// Endpoint names double as api_statistics column names; every endpoint the
// client can emit must have a counter column.
func TestEndpointColumnsCoverEveryEndpoint(t *testing.T) {
	endpoints := []string{
		steamapi.EndpointResolveVanityURL,
		steamapi.EndpointPlayerSummaries,
		steamapi.EndpointOwnedGames,
		steamapi.EndpointPlayerAchievements,
		steamapi.EndpointGameSchema,
		steamapi.EndpointGlobalPercentages,
		steamapi.EndpointRecentlyPlayed,
	}

	for _, endpoint := range endpoints {
		column, ok := endpointColumns[endpoint]
		assert.True(t, ok, "no counter column for endpoint %s", endpoint)
		assert.Equal(t, endpoint, column, "endpoint name and column name must match")
	}
	assert.Len(t, endpointColumns, len(endpoints))
}
