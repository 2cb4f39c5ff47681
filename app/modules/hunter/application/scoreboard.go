package hunterservice

import (
	"context"
	"errors"
	"fmt"

	hunterdb "github.com/achievement-hunters/hunter-bot/app/modules/hunter/infrastructure/repositories"
)

// Scoreboard returns a page of ranked hunters.
func (s *HunterService) Scoreboard(ctx context.Context, limit, offset int, orderBy string) ([]hunterdb.HunterWithRank, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}
	entries, err := s.repo.GetScoreboard(ctx, limit, offset, orderBy)
	if err != nil {
		return nil, fmt.Errorf("failed to load scoreboard: %w", err)
	}
	return entries, nil
}

// Rank returns a hunter's 1-based position.
func (s *HunterService) Rank(ctx context.Context, identifier, orderBy string) (int, error) {
	hunter, err := s.getRegistered(ctx, identifier)
	if err != nil {
		return 0, err
	}
	rank, err := s.repo.GetRank(ctx, hunter.SteamID, orderBy)
	if err != nil {
		return 0, fmt.Errorf("failed to compute rank: %w", err)
	}
	return rank, nil
}

// AroundRank returns the hunters ranked immediately around the given one,
// plus the hunter's own rank.
func (s *HunterService) AroundRank(ctx context.Context, identifier string, contextSize int, orderBy string) ([]hunterdb.HunterWithRank, int, error) {
	if contextSize <= 0 || contextSize > 10 {
		contextSize = 2
	}
	hunter, err := s.getRegistered(ctx, identifier)
	if err != nil {
		return nil, 0, err
	}
	entries, rank, err := s.repo.GetAroundRank(ctx, hunter.SteamID, contextSize, orderBy)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load rank context: %w", err)
	}
	return entries, rank, nil
}

// RandomHunter returns a random hunter that has a nonzero score.
func (s *HunterService) RandomHunter(ctx context.Context) (*hunterdb.Hunter, error) {
	hunter, err := s.repo.GetRandomScored(ctx)
	if err != nil {
		if errors.Is(err, hunterdb.ErrHunterNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, fmt.Errorf("failed to pick random hunter: %w", err)
	}
	return hunter, nil
}
