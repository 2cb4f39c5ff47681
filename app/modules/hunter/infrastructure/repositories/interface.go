package hunterdb

import (
	"context"
	"time"
)

// Repository is the persistence boundary for hunter records.
type Repository interface {
	Create(ctx context.Context, hunter *Hunter) error
	GetBySteamID(ctx context.Context, steamID string) (*Hunter, error)
	GetByDiscordID(ctx context.Context, discordID string) (*Hunter, error)
	LinkDiscordID(ctx context.Context, steamID, discordID string) error

	// UpsertScore commits the result of one completed update run: all fields
	// or none.
	UpsertScore(ctx context.Context, steamID string, score int64, totalAchievements, totalGames int, updatedAt time.Time) error
	SetLocked(ctx context.Context, steamID string, locked bool) error

	GetScoreboard(ctx context.Context, limit, offset int, orderBy string) ([]HunterWithRank, error)
	GetRank(ctx context.Context, steamID, orderBy string) (int, error)
	GetAroundRank(ctx context.Context, steamID string, contextSize int, orderBy string) ([]HunterWithRank, int, error)
	Count(ctx context.Context) (int, error)
	GetRandomScored(ctx context.Context) (*Hunter, error)

	// ListStale returns steam ids of unlocked hunters whose last update is
	// older than the cutoff (or missing), for the auto-refresh scheduler.
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
}
