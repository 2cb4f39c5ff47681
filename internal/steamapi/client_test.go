package steamapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureRecorder collects every telemetry record for assertions.
type captureRecorder struct {
	mu      sync.Mutex
	records []CallRecord
}

func (r *captureRecorder) RecordCall(_ context.Context, rec CallRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *captureRecorder) all() []CallRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CallRecord(nil), r.records...)
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *captureRecorder) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	limiter := NewRateLimiter(1000, time.Minute)
	t.Cleanup(limiter.Stop)

	recorder := &captureRecorder{}
	client := NewClient(Config{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		MaxAttempts:  3,
		RetryBackoff: time.Millisecond,
	}, limiter, recorder, testLogger())
	return client, recorder
}

func TestResolveVanityURL(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantSteamID string
		wantClass   Classification
	}{
		{
			name:        "resolves known vanity",
			body:        `{"response":{"success":1,"steamid":"76561197960287930"}}`,
			wantSteamID: "76561197960287930",
			wantClass:   ClassSuccess,
		},
		{
			name:      "unknown vanity classifies not found",
			body:      `{"response":{"success":42,"message":"No match"}}`,
			wantClass: ClassNotFound,
		},
		{
			name:      "garbage body classifies malformed",
			body:      `{"response":`,
			wantClass: ClassMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, recorder := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "test-key", r.URL.Query().Get("key"))
				w.Write([]byte(tt.body))
			}))

			steamID, err := client.ResolveVanityURL(context.Background(), "gabelogannewell")
			if tt.wantClass == ClassSuccess {
				require.NoError(t, err)
				assert.Equal(t, tt.wantSteamID, steamID)
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.wantClass, ClassifyError(err))
			}

			records := recorder.all()
			require.NotEmpty(t, records)
			last := records[len(records)-1]
			assert.Equal(t, EndpointResolveVanityURL, last.Endpoint)
			assert.Equal(t, tt.wantClass, last.Classification)
			assert.Equal(t, tt.wantClass == ClassSuccess, last.Success)
		})
	}
}

func TestResolveIdentifierPassesThroughNumericIDs(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	steamID, err := client.ResolveIdentifier(context.Background(), "76561197960287930")
	require.NoError(t, err)
	assert.Equal(t, "76561197960287930", steamID)
	assert.Zero(t, calls, "numeric identifiers must not hit the API")
}

func TestResolveIdentifierStripsProfileURLs(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		want       string
		wantsAPI   bool
	}{
		{"profiles url", "https://steamcommunity.com/profiles/76561197960287930", "76561197960287930", false},
		{"profiles url with trailing slash", "http://steamcommunity.com/profiles/76561197960287930/", "76561197960287930", false},
		{"vanity url", "https://steamcommunity.com/id/gabelogannewell/", "76561197960287930", true},
		{"bare url without scheme", "steamcommunity.com/id/gabelogannewell", "76561197960287930", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				assert.Equal(t, "gabelogannewell", r.URL.Query().Get("vanityurl"))
				w.Write([]byte(`{"response":{"success":1,"steamid":"76561197960287930"}}`))
			}))

			steamID, err := client.ResolveIdentifier(context.Background(), tt.identifier)
			require.NoError(t, err)
			assert.Equal(t, tt.want, steamID)
			if tt.wantsAPI {
				assert.Equal(t, 1, calls)
			} else {
				assert.Zero(t, calls)
			}
		})
	}
}

func TestResolveIdentifierRejectsEmpty(t *testing.T) {
	client, _ := newTestClient(t, http.NotFoundHandler())

	_, err := client.ResolveIdentifier(context.Background(), "")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestGetPlayerSummary(t *testing.T) {
	t.Run("maps profile fields", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"response":{"players":[{
				"steamid":"76561197960287930",
				"personaname":"Rabscuttle",
				"profileurl":"https://steamcommunity.com/id/rabscuttle/",
				"avatarfull":"https://example.com/avatar.jpg",
				"communityvisibilitystate":3
			}]}}`))
		}))

		summary, err := client.GetPlayerSummary(context.Background(), "76561197960287930")
		require.NoError(t, err)
		assert.Equal(t, "Rabscuttle", summary.PersonaName)
		assert.True(t, summary.Public())
	})

	t.Run("empty player list classifies not found", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"response":{"players":[]}}`))
		}))

		_, err := client.GetPlayerSummary(context.Background(), "76561197960287930")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})
}

func TestGetOwnedGames(t *testing.T) {
	t.Run("returns library", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"response":{"game_count":2,"games":[
				{"appid":440,"name":"Team Fortress 2","playtime_forever":1200},
				{"appid":620,"name":"Portal 2","playtime_forever":300}
			]}}`))
		}))

		games, err := client.GetOwnedGames(context.Background(), "76561197960287930")
		require.NoError(t, err)
		require.Len(t, games, 2)
		assert.Equal(t, int64(440), games[0].AppID)
	})

	t.Run("empty response object classifies private", func(t *testing.T) {
		client, recorder := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"response":{}}`))
		}))

		_, err := client.GetOwnedGames(context.Background(), "76561197960287930")
		require.Error(t, err)
		assert.True(t, IsPrivateProfile(err))

		records := recorder.all()
		require.Len(t, records, 1, "private profile is terminal, no retries")
		assert.Equal(t, ClassPrivateProfile, records[0].Classification)
	})

	t.Run("zero game library is not private", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"response":{"game_count":0}}`))
		}))

		games, err := client.GetOwnedGames(context.Background(), "76561197960287930")
		require.NoError(t, err)
		assert.Empty(t, games)
	})
}

func TestGetPlayerAchievements(t *testing.T) {
	t.Run("maps unlock state", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"playerstats":{"success":true,"achievements":[
				{"apiname":"ACH_WIN","achieved":1,"unlocktime":1500000000},
				{"apiname":"ACH_LOSE","achieved":0,"unlocktime":0}
			]}}`))
		}))

		achievements, err := client.GetPlayerAchievements(context.Background(), "76561197960287930", 440)
		require.NoError(t, err)
		require.Len(t, achievements, 2)
		assert.True(t, achievements[0].Achieved)
		assert.False(t, achievements[1].Achieved)
	})

	t.Run("game without stats classifies not found", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"playerstats":{"success":false,"error":"Requested app has no stats"}}`))
		}))

		_, err := client.GetPlayerAchievements(context.Background(), "76561197960287930", 12345)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})
}

func TestGetGlobalAchievementPercentages(t *testing.T) {
	client, recorder := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("key"), "global percentages endpoint takes no key")
		w.Write([]byte(`{"achievementpercentages":{"achievements":[
			{"name":"ACH_WIN","percent":84.5},
			{"name":"ACH_RARE","percent":0.3}
		]}}`))
	}))

	percentages, err := client.GetGlobalAchievementPercentages(context.Background(), 440)
	require.NoError(t, err)
	assert.InDelta(t, 84.5, percentages["ACH_WIN"], 0.001)
	assert.InDelta(t, 0.3, percentages["ACH_RARE"], 0.001)

	records := recorder.all()
	require.Len(t, records, 1)
	assert.Equal(t, EndpointGlobalPercentages, records[0].Endpoint)
	assert.Equal(t, int64(440), records[0].AppID)
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status       int
		wantClass    Classification
		wantAttempts int
	}{
		{http.StatusForbidden, ClassPrivateProfile, 1},
		{http.StatusNotFound, ClassNotFound, 1},
		{http.StatusBadRequest, ClassNotFound, 1},
		{http.StatusTooManyRequests, ClassRateLimited, 3},
		{http.StatusInternalServerError, ClassTransient, 3},
		{http.StatusBadGateway, ClassTransient, 3},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			attempts := 0
			client, recorder := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts++
				w.WriteHeader(tt.status)
			}))

			_, err := client.GetOwnedGames(context.Background(), "76561197960287930")
			require.Error(t, err)
			assert.Equal(t, tt.wantClass, ClassifyError(err))
			assert.Equal(t, tt.wantAttempts, attempts)

			records := recorder.all()
			require.Len(t, records, tt.wantAttempts, "one telemetry record per physical attempt")
			for _, rec := range records {
				assert.False(t, rec.Success)
				assert.Equal(t, tt.wantClass, rec.Classification)
			}
		})
	}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	attempts := 0
	client, recorder := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"response":{"game_count":0}}`))
	}))

	_, err := client.GetOwnedGames(context.Background(), "76561197960287930")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	records := recorder.all()
	require.Len(t, records, 3)
	assert.False(t, records[0].Success)
	assert.False(t, records[1].Success)
	assert.True(t, records[2].Success)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetOwnedGames(ctx, "76561197960287930")
	require.Error(t, err)
}
