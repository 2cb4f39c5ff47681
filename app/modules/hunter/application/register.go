package hunterservice

import (
	"context"
	"errors"
	"fmt"

	hunterdb "github.com/achievement-hunters/hunter-bot/app/modules/hunter/infrastructure/repositories"
	"github.com/achievement-hunters/hunter-bot/internal/observability/attr"
	"github.com/achievement-hunters/hunter-bot/internal/steamapi"
	"github.com/achievement-hunters/hunter-bot/internal/updater"
)

// Register resolves the identifier, verifies the profile is public, creates
// the hunter row, and queues the first score update. The returned handle
// reports the initial run; callers that don't care may ignore it.
func (s *HunterService) Register(ctx context.Context, identifier string) (*hunterdb.Hunter, *updater.Handle, error) {
	steamID, err := s.resolveSteamID(ctx, identifier)
	if err != nil {
		return nil, nil, err
	}

	summary, err := s.steam.GetPlayerSummary(ctx, steamID)
	if err != nil {
		if steamapi.IsNotFound(err) {
			return nil, nil, ErrProfileNotFound
		}
		return nil, nil, fmt.Errorf("failed to fetch player summary: %w", err)
	}
	if !summary.Public() {
		return nil, nil, ErrProfilePrivate
	}

	hunter := &hunterdb.Hunter{
		SteamID:   steamID,
		SteamName: summary.PersonaName,
	}
	if err := s.repo.Create(ctx, hunter); err != nil {
		if errors.Is(err, hunterdb.ErrHunterAlreadyExists) {
			return nil, nil, ErrAlreadyRegistered
		}
		return nil, nil, fmt.Errorf("failed to create hunter: %w", err)
	}

	s.logger.InfoContext(ctx, "Registered hunter",
		attr.String("steam_id", steamID),
		attr.String("steam_name", summary.PersonaName),
	)

	handle, _, err := s.queue.Enqueue(ctx, steamID)
	if err != nil {
		// Registration already committed; the first update can be requested
		// again later.
		s.logger.WarnContext(ctx, "Failed to queue initial update",
			attr.String("steam_id", steamID),
			attr.Error(err),
		)
		return hunter, nil, nil
	}
	return hunter, handle, nil
}

// RequestUpdate queues a score update for a registered hunter. The bool
// reports whether the request was coalesced onto a run already pending for
// this hunter.
func (s *HunterService) RequestUpdate(ctx context.Context, identifier string) (*updater.Handle, bool, error) {
	hunter, err := s.getRegistered(ctx, identifier)
	if err != nil {
		return nil, false, err
	}
	return s.queue.Enqueue(ctx, hunter.SteamID)
}

// LinkDiscord associates a discord account with a registered hunter.
func (s *HunterService) LinkDiscord(ctx context.Context, identifier, discordID string) (*hunterdb.Hunter, error) {
	hunter, err := s.getRegistered(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetByDiscordID(ctx, discordID); err == nil && existing.SteamID != hunter.SteamID {
		return nil, ErrDiscordAlreadyLinked
	} else if err != nil && !errors.Is(err, hunterdb.ErrHunterNotFound) {
		return nil, fmt.Errorf("failed to check discord link: %w", err)
	}

	if err := s.repo.LinkDiscordID(ctx, hunter.SteamID, discordID); err != nil {
		return nil, fmt.Errorf("failed to link discord id: %w", err)
	}
	hunter.DiscordID = &discordID

	s.logger.InfoContext(ctx, "Linked discord account",
		attr.String("steam_id", hunter.SteamID),
		attr.String("discord_id", discordID),
	)
	return hunter, nil
}

// SetLocked flips the operator lock. Locked hunters are skipped by the
// refresh scheduler and their update requests complete without running.
func (s *HunterService) SetLocked(ctx context.Context, steamID string, locked bool) error {
	if err := s.repo.SetLocked(ctx, steamID, locked); err != nil {
		if errors.Is(err, hunterdb.ErrHunterNotFound) {
			return ErrNotRegistered
		}
		return fmt.Errorf("failed to set lock: %w", err)
	}
	s.logger.InfoContext(ctx, "Changed hunter lock",
		attr.String("steam_id", steamID),
		attr.Bool("locked", locked),
	)
	return nil
}
