// Package steamapi is a typed client for the Steam Web API. Every operation
// acquires a rate-limit permit, classifies its outcome, records telemetry for
// each physical attempt, and retries transient failures with exponential
// backoff.
package steamapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/achievement-hunters/hunter-bot/internal/observability/attr"
)

const defaultBaseURL = "https://api.steampowered.com"

// Endpoint names used for telemetry. These match the api_statistics column
// names, so changing one means a migration.
const (
	EndpointResolveVanityURL   = "resolve_vanity_url"
	EndpointPlayerSummaries    = "get_player_summaries"
	EndpointOwnedGames         = "get_owned_games"
	EndpointPlayerAchievements = "get_player_achievements"
	EndpointGameSchema         = "get_schema_for_game"
	EndpointGlobalPercentages  = "get_global_achievement_percentages"
	EndpointRecentlyPlayed     = "get_recently_played_games"
)

// Config holds client construction parameters.
type Config struct {
	APIKey       string
	BaseURL      string
	CallTimeout  time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
}

// Client wraps the Steam Web API. Safe for concurrent use.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	limiter      *RateLimiter
	recorder     CallRecorder
	logger       *slog.Logger
	callTimeout  time.Duration
	maxAttempts  int
	retryBackoff time.Duration
}

// NewClient creates a Steam Web API client. The limiter gates every outbound
// call; the recorder receives one record per physical attempt.
func NewClient(cfg Config, limiter *RateLimiter, recorder CallRecorder, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	retryBackoff := cfg.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = 2 * time.Second
	}
	if recorder == nil {
		recorder = NoOpRecorder{}
	}

	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: callTimeout},
		limiter:      limiter,
		recorder:     recorder,
		logger:       logger,
		callTimeout:  callTimeout,
		maxAttempts:  maxAttempts,
		retryBackoff: retryBackoff,
	}
}

// request describes one logical API operation.
type request struct {
	endpoint string
	path     string
	params   url.Values
	needKey  bool
	steamID  string
	appID    int64
	// decode unmarshals and validates the 200 body. It returns a classified
	// error for logically-failed responses (unknown vanity, missing stats)
	// so telemetry reflects the real outcome.
	decode func(body []byte) *APIError
}

// do executes a logical operation: permit, attempt, classify, retry.
func (c *Client) do(ctx context.Context, req request) error {
	var lastErr *APIError

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := c.retryBackoff << (attempt - 2)
			c.logger.WarnContext(ctx, "Retrying Steam API call",
				attr.String("endpoint", req.endpoint),
				attr.Int("attempt", attempt),
				attr.Duration("backoff", backoff),
				attr.String("classification", string(lastErr.Classification)),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}

		apiErr := c.attempt(ctx, req)
		if apiErr == nil {
			return nil
		}
		if !apiErr.Classification.Retryable() {
			return apiErr
		}
		lastErr = apiErr
	}

	return lastErr
}

// attempt performs one HTTP call and emits exactly one telemetry record.
func (c *Client) attempt(ctx context.Context, req request) *APIError {
	start := time.Now()

	record := func(class Classification) {
		c.recorder.RecordCall(ctx, CallRecord{
			Endpoint:       req.endpoint,
			SteamID:        req.steamID,
			AppID:          req.appID,
			Success:        class == ClassSuccess,
			Classification: class,
			Latency:        time.Since(start),
		})
	}

	fail := func(class Classification, status int, err error) *APIError {
		record(class)
		return &APIError{Endpoint: req.endpoint, Classification: class, StatusCode: status, Err: err}
	}

	params := url.Values{}
	for k, vs := range req.params {
		params[k] = vs
	}
	if req.needKey {
		params.Set("key", c.apiKey)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodGet,
		c.baseURL+"/"+req.path+"?"+params.Encode(), nil)
	if err != nil {
		return fail(ClassTransient, 0, err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fail(ClassTransient, 0, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized:
		// Bad API key. Terminal in practice, but it is a deployment problem
		// rather than a data classification, so it surfaces as transient
		// with a loud log line.
		c.logger.ErrorContext(ctx, "Steam API rejected the configured API key",
			attr.String("endpoint", req.endpoint))
		return fail(ClassTransient, resp.StatusCode, fmt.Errorf("invalid api key"))
	case resp.StatusCode == http.StatusForbidden:
		return fail(ClassPrivateProfile, resp.StatusCode, nil)
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusNotFound:
		return fail(ClassNotFound, resp.StatusCode, nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fail(ClassRateLimited, resp.StatusCode, nil)
	default:
		return fail(ClassTransient, resp.StatusCode, nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fail(ClassTransient, resp.StatusCode, err)
	}

	if apiErr := req.decode(body); apiErr != nil {
		apiErr.Endpoint = req.endpoint
		apiErr.StatusCode = resp.StatusCode
		record(apiErr.Classification)
		return apiErr
	}

	record(ClassSuccess)
	return nil
}

func malformed(err error) *APIError {
	return &APIError{Classification: ClassMalformed, Err: err}
}

// ResolveVanityURL converts a vanity name into a 64-bit Steam ID. An unknown
// vanity name classifies as not-found.
func (c *Client) ResolveVanityURL(ctx context.Context, vanity string) (string, error) {
	var out vanityEnvelope
	err := c.do(ctx, request{
		endpoint: EndpointResolveVanityURL,
		path:     "ISteamUser/ResolveVanityURL/v0001/",
		params:   url.Values{"vanityurl": {vanity}},
		needKey:  true,
		decode: func(body []byte) *APIError {
			if err := json.Unmarshal(body, &out); err != nil {
				return malformed(err)
			}
			if out.Response.Success != 1 || out.Response.SteamID == "" {
				return &APIError{Classification: ClassNotFound,
					Err: fmt.Errorf("vanity %q did not resolve", vanity)}
			}
			return nil
		},
	})
	if err != nil {
		return "", err
	}
	return out.Response.SteamID, nil
}

// ResolveIdentifier normalizes a 64-bit Steam ID, a vanity name, or a full
// steamcommunity.com profile URL into a Steam ID. All-digit identifiers are
// passed through without an API call.
func (c *Client) ResolveIdentifier(ctx context.Context, identifier string) (string, error) {
	identifier = stripProfileURL(identifier)
	if identifier == "" {
		return "", &APIError{Classification: ClassNotFound, Err: fmt.Errorf("empty identifier")}
	}
	if isDigits(identifier) {
		return identifier, nil
	}
	return c.ResolveVanityURL(ctx, identifier)
}

// stripProfileURL reduces steamcommunity.com/id/<vanity> and /profiles/<id>
// URLs to their last path element. Anything else passes through unchanged.
func stripProfileURL(identifier string) string {
	for _, prefix := range []string{"https://", "http://"} {
		identifier = strings.TrimPrefix(identifier, prefix)
	}
	rest, ok := strings.CutPrefix(identifier, "steamcommunity.com/")
	if !ok {
		return identifier
	}
	rest = strings.TrimSuffix(rest, "/")
	if v, ok := strings.CutPrefix(rest, "id/"); ok {
		return v
	}
	if v, ok := strings.CutPrefix(rest, "profiles/"); ok {
		return v
	}
	return rest
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// GetPlayerSummary fetches the profile of one Steam ID. An empty player list
// classifies as not-found.
func (c *Client) GetPlayerSummary(ctx context.Context, steamID string) (*PlayerSummary, error) {
	var summary PlayerSummary
	err := c.do(ctx, request{
		endpoint: EndpointPlayerSummaries,
		path:     "ISteamUser/GetPlayerSummaries/v0002/",
		params:   url.Values{"steamids": {steamID}},
		needKey:  true,
		steamID:  steamID,
		decode: func(body []byte) *APIError {
			var out playerSummariesEnvelope
			if err := json.Unmarshal(body, &out); err != nil {
				return malformed(err)
			}
			if len(out.Response.Players) == 0 {
				return &APIError{Classification: ClassNotFound,
					Err: fmt.Errorf("no player with steam id %s", steamID)}
			}
			p := out.Response.Players[0]
			summary = PlayerSummary{
				SteamID:                  p.SteamID,
				PersonaName:              p.PersonaName,
				ProfileURL:               p.ProfileURL,
				AvatarURL:                p.AvatarFull,
				CommunityVisibilityState: p.CommunityVisibilityState,
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// GetOwnedGames returns the library of a Steam ID, free games included.
// Steam answers private profiles with HTTP 200 and an empty response object,
// so a missing game_count field classifies as private-profile.
func (c *Client) GetOwnedGames(ctx context.Context, steamID string) ([]OwnedGame, error) {
	var games []OwnedGame
	err := c.do(ctx, request{
		endpoint: EndpointOwnedGames,
		path:     "IPlayerService/GetOwnedGames/v0001/",
		params: url.Values{
			"steamid":                   {steamID},
			"include_appinfo":           {"1"},
			"include_played_free_games": {"1"},
		},
		needKey: true,
		steamID: steamID,
		decode: func(body []byte) *APIError {
			var out struct {
				Response *struct {
					GameCount *int `json:"game_count"`
					Games     []struct {
						AppID           int64  `json:"appid"`
						Name            string `json:"name"`
						PlaytimeForever int    `json:"playtime_forever"`
					} `json:"games"`
				} `json:"response"`
			}
			if err := json.Unmarshal(body, &out); err != nil {
				return malformed(err)
			}
			if out.Response == nil {
				return malformed(fmt.Errorf("missing response object"))
			}
			if out.Response.GameCount == nil {
				return &APIError{Classification: ClassPrivateProfile,
					Err: fmt.Errorf("game list not visible for %s", steamID)}
			}
			games = make([]OwnedGame, 0, len(out.Response.Games))
			for _, g := range out.Response.Games {
				games = append(games, OwnedGame{
					AppID:           g.AppID,
					Name:            g.Name,
					PlaytimeForever: g.PlaytimeForever,
				})
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return games, nil
}

// GetPlayerAchievements returns the unlock state of every achievement of one
// game for one player. Games without achievement stats classify as not-found.
func (c *Client) GetPlayerAchievements(ctx context.Context, steamID string, appID int64) ([]PlayerAchievement, error) {
	var achievements []PlayerAchievement
	err := c.do(ctx, request{
		endpoint: EndpointPlayerAchievements,
		path:     "ISteamUserStats/GetPlayerAchievements/v0001/",
		params: url.Values{
			"steamid": {steamID},
			"appid":   {strconv.FormatInt(appID, 10)},
		},
		needKey: true,
		steamID: steamID,
		appID:   appID,
		decode: func(body []byte) *APIError {
			var out playerAchievementsEnvelope
			if err := json.Unmarshal(body, &out); err != nil {
				return malformed(err)
			}
			if !out.PlayerStats.Success {
				return &APIError{Classification: ClassNotFound,
					Err: fmt.Errorf("no achievement stats for app %d: %s", appID, out.PlayerStats.Error)}
			}
			achievements = make([]PlayerAchievement, 0, len(out.PlayerStats.Achievements))
			for _, a := range out.PlayerStats.Achievements {
				achievements = append(achievements, PlayerAchievement{
					APIName:    a.APIName,
					Achieved:   a.Achieved == 1,
					UnlockTime: time.Unix(a.UnlockTime, 0).UTC(),
				})
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return achievements, nil
}

// GetGlobalAchievementPercentages returns the global unlock percentage per
// achievement key for one game. This endpoint does not require an API key.
func (c *Client) GetGlobalAchievementPercentages(ctx context.Context, appID int64) (map[string]float64, error) {
	var percentages map[string]float64
	err := c.do(ctx, request{
		endpoint: EndpointGlobalPercentages,
		path:     "ISteamUserStats/GetGlobalAchievementPercentagesForApp/v0002/",
		params:   url.Values{"gameid": {strconv.FormatInt(appID, 10)}},
		appID:    appID,
		decode: func(body []byte) *APIError {
			var out globalPercentagesEnvelope
			if err := json.Unmarshal(body, &out); err != nil {
				return malformed(err)
			}
			percentages = make(map[string]float64, len(out.AchievementPercentages.Achievements))
			for _, a := range out.AchievementPercentages.Achievements {
				percentages[a.Name] = a.Percent
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return percentages, nil
}

// GetSchemaForGame returns the achievement schema of one game.
func (c *Client) GetSchemaForGame(ctx context.Context, appID int64) (*GameSchema, error) {
	var schema GameSchema
	err := c.do(ctx, request{
		endpoint: EndpointGameSchema,
		path:     "ISteamUserStats/GetSchemaForGame/v0002/",
		params:   url.Values{"appid": {strconv.FormatInt(appID, 10)}},
		needKey:  true,
		appID:    appID,
		decode: func(body []byte) *APIError {
			var out gameSchemaEnvelope
			if err := json.Unmarshal(body, &out); err != nil {
				return malformed(err)
			}
			schema = GameSchema{GameName: out.Game.GameName}
			for _, a := range out.Game.AvailableGameStats.Achievements {
				schema.Achievements = append(schema.Achievements, SchemaAchievement{
					Name:        a.Name,
					DisplayName: a.DisplayName,
					Description: a.Description,
					IconURL:     a.Icon,
					Hidden:      a.Hidden == 1,
				})
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &schema, nil
}

// GetRecentlyPlayedGames returns up to count recently played games; count 0
// means all.
func (c *Client) GetRecentlyPlayedGames(ctx context.Context, steamID string, count int) ([]OwnedGame, error) {
	params := url.Values{"steamid": {steamID}}
	if count > 0 {
		params.Set("count", strconv.Itoa(count))
	}

	var games []OwnedGame
	err := c.do(ctx, request{
		endpoint: EndpointRecentlyPlayed,
		path:     "IPlayerService/GetRecentlyPlayedGames/v0001/",
		params:   params,
		needKey:  true,
		steamID:  steamID,
		decode: func(body []byte) *APIError {
			var out recentlyPlayedEnvelope
			if err := json.Unmarshal(body, &out); err != nil {
				return malformed(err)
			}
			games = make([]OwnedGame, 0, len(out.Response.Games))
			for _, g := range out.Response.Games {
				games = append(games, OwnedGame{
					AppID:           g.AppID,
					Name:            g.Name,
					PlaytimeForever: g.PlaytimeForever,
				})
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return games, nil
}
