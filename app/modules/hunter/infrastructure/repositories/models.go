package hunterdb

import (
	"time"

	"github.com/uptrace/bun"
)

// Hunter is a registered user tracked by Steam identity and achievement
// score. Score, total_achievements and total_games are only ever written
// together by a completed update run.
type Hunter struct {
	bun.BaseModel `bun:"table:hunters,alias:h"`

	SteamID           string     `bun:"steam_id,pk" json:"steam_id"`
	SteamName         string     `bun:"steam_name,notnull" json:"steam_name"`
	DiscordID         *string    `bun:"discord_id,nullzero" json:"discord_id,omitempty"`
	Score             int64      `bun:"score,notnull,default:0" json:"score"`
	TotalAchievements int        `bun:"total_achievements,notnull,default:0" json:"total_achievements"`
	TotalGames        int        `bun:"total_games,notnull,default:0" json:"total_games"`
	LastUpdated       *time.Time `bun:"last_updated,nullzero" json:"last_updated,omitempty"`
	Locked            bool       `bun:"locked,notnull,default:false" json:"locked"`
	CreatedAt         time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// GetDiscordID returns the linked Discord ID or an empty string.
func (h *Hunter) GetDiscordID() string {
	if h.DiscordID == nil {
		return ""
	}
	return *h.DiscordID
}

// HunterWithRank is a hunter row joined with its leaderboard position.
type HunterWithRank struct {
	*Hunter `bun:",extend"`

	Rank int `bun:"rank" json:"rank"`
}
