package hunterservice

import (
	"context"

	hunterdb "github.com/achievement-hunters/hunter-bot/app/modules/hunter/infrastructure/repositories"
	"github.com/achievement-hunters/hunter-bot/internal/steamapi"
	"github.com/achievement-hunters/hunter-bot/internal/updater"
)

// SteamProfiles is the slice of the Steam client the service needs to
// register and resolve hunters.
type SteamProfiles interface {
	ResolveIdentifier(ctx context.Context, identifier string) (string, error)
	GetPlayerSummary(ctx context.Context, steamID string) (*steamapi.PlayerSummary, error)
}

// UpdateQueue admits score update requests. Satisfied by *updater.Queue.
type UpdateQueue interface {
	Enqueue(ctx context.Context, steamID string) (*updater.Handle, bool, error)
	Status() updater.Snapshot
}

// Service is the hunter module's application surface.
type Service interface {
	Register(ctx context.Context, identifier string) (*hunterdb.Hunter, *updater.Handle, error)
	RequestUpdate(ctx context.Context, identifier string) (*updater.Handle, bool, error)
	GetHunter(ctx context.Context, identifier string) (*hunterdb.Hunter, error)
	GetByDiscordID(ctx context.Context, discordID string) (*hunterdb.Hunter, error)
	LinkDiscord(ctx context.Context, identifier, discordID string) (*hunterdb.Hunter, error)
	SetLocked(ctx context.Context, steamID string, locked bool) error
	QueueStatus() updater.Snapshot

	Scoreboard(ctx context.Context, limit, offset int, orderBy string) ([]hunterdb.HunterWithRank, error)
	Rank(ctx context.Context, identifier, orderBy string) (int, error)
	AroundRank(ctx context.Context, identifier string, contextSize int, orderBy string) ([]hunterdb.HunterWithRank, int, error)
	RandomHunter(ctx context.Context) (*hunterdb.Hunter, error)
	Count(ctx context.Context) (int, error)
}
