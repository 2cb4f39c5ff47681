package hunterservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	hunterdb "github.com/achievement-hunters/hunter-bot/app/modules/hunter/infrastructure/repositories"
	"github.com/achievement-hunters/hunter-bot/internal/steamapi"
	"github.com/achievement-hunters/hunter-bot/internal/updater"
)

// HunterService handles hunter registration, lookups, and update requests.
type HunterService struct {
	repo   hunterdb.Repository
	steam  SteamProfiles
	queue  UpdateQueue
	logger *slog.Logger
}

var _ Service = (*HunterService)(nil)

// NewHunterService creates a new HunterService.
func NewHunterService(repo hunterdb.Repository, steam SteamProfiles, queue UpdateQueue, logger *slog.Logger) *HunterService {
	return &HunterService{
		repo:   repo,
		steam:  steam,
		queue:  queue,
		logger: logger,
	}
}

// resolveSteamID turns a raw identifier (64-bit steam id, vanity name, or
// full profile URL) into a canonical steam id.
func (s *HunterService) resolveSteamID(ctx context.Context, identifier string) (string, error) {
	steamID, err := s.steam.ResolveIdentifier(ctx, identifier)
	if err != nil {
		if steamapi.IsNotFound(err) {
			return "", ErrProfileNotFound
		}
		return "", fmt.Errorf("failed to resolve identifier: %w", err)
	}
	return steamID, nil
}

// getRegistered resolves an identifier and loads the matching hunter row.
func (s *HunterService) getRegistered(ctx context.Context, identifier string) (*hunterdb.Hunter, error) {
	steamID, err := s.resolveSteamID(ctx, identifier)
	if err != nil {
		return nil, err
	}
	hunter, err := s.repo.GetBySteamID(ctx, steamID)
	if err != nil {
		if errors.Is(err, hunterdb.ErrHunterNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, fmt.Errorf("failed to load hunter: %w", err)
	}
	return hunter, nil
}

// GetHunter returns the hunter for a steam id, vanity name, or profile URL.
func (s *HunterService) GetHunter(ctx context.Context, identifier string) (*hunterdb.Hunter, error) {
	return s.getRegistered(ctx, identifier)
}

// GetByDiscordID returns the hunter linked to a discord account.
func (s *HunterService) GetByDiscordID(ctx context.Context, discordID string) (*hunterdb.Hunter, error) {
	hunter, err := s.repo.GetByDiscordID(ctx, discordID)
	if err != nil {
		if errors.Is(err, hunterdb.ErrHunterNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, fmt.Errorf("failed to load hunter by discord id: %w", err)
	}
	return hunter, nil
}

// QueueStatus returns a snapshot of the update queue.
func (s *HunterService) QueueStatus() updater.Snapshot {
	return s.queue.Status()
}

// Count returns the number of registered hunters.
func (s *HunterService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
