package statisticsdb

import (
	"time"

	"github.com/uptrace/bun"
)

// ApiCallStat is one day's aggregate of Steam API traffic. Rows are created
// lazily, the first call of each calendar day inserts one.
type ApiCallStat struct {
	bun.BaseModel `bun:"table:api_statistics,alias:s"`

	Date                 time.Time `bun:"date,pk,type:date" json:"date"`
	TotalCalls           int64     `bun:"total_calls,notnull,default:0" json:"total_calls"`
	FailedCalls          int64     `bun:"failed_calls,notnull,default:0" json:"failed_calls"`
	RateLimitHits        int64     `bun:"rate_limit_hits,notnull,default:0" json:"rate_limit_hits"`
	PrivateProfileErrors int64     `bun:"private_profile_errors,notnull,default:0" json:"private_profile_errors"`

	// One counter column per endpoint; names match the steamapi endpoint
	// constants.
	ResolveVanityURL                int64 `bun:"resolve_vanity_url,notnull,default:0" json:"resolve_vanity_url"`
	GetPlayerSummaries              int64 `bun:"get_player_summaries,notnull,default:0" json:"get_player_summaries"`
	GetOwnedGames                   int64 `bun:"get_owned_games,notnull,default:0" json:"get_owned_games"`
	GetPlayerAchievements           int64 `bun:"get_player_achievements,notnull,default:0" json:"get_player_achievements"`
	GetSchemaForGame                int64 `bun:"get_schema_for_game,notnull,default:0" json:"get_schema_for_game"`
	GetGlobalAchievementPercentages int64 `bun:"get_global_achievement_percentages,notnull,default:0" json:"get_global_achievement_percentages"`
	GetRecentlyPlayedGames          int64 `bun:"get_recently_played_games,notnull,default:0" json:"get_recently_played_games"`
}

// ApiCallLogEntry is the append-only per-call log row.
type ApiCallLogEntry struct {
	bun.BaseModel `bun:"table:api_call_log,alias:l"`

	ID             int64     `bun:"id,pk,autoincrement" json:"id"`
	Timestamp      time.Time `bun:"timestamp,notnull,default:current_timestamp" json:"timestamp"`
	Endpoint       string    `bun:"endpoint,notnull" json:"endpoint"`
	SteamID        *string   `bun:"steam_id,nullzero" json:"steam_id,omitempty"`
	AppID          *int64    `bun:"app_id,nullzero" json:"app_id,omitempty"`
	Success        bool      `bun:"success,notnull" json:"success"`
	ErrorType      *string   `bun:"error_type,nullzero" json:"error_type,omitempty"`
	ResponseTimeMs int64     `bun:"response_time_ms,notnull,default:0" json:"response_time_ms"`
}

// EndpointCount pairs an endpoint name with its call volume.
type EndpointCount struct {
	Endpoint string `bun:"endpoint" json:"endpoint"`
	Count    int64  `bun:"count" json:"count"`
}
