package hunterservice

import (
	"context"
	"io"
	"log/slog"
	"time"

	hunterdb "github.com/achievement-hunters/hunter-bot/app/modules/hunter/infrastructure/repositories"
	"github.com/achievement-hunters/hunter-bot/internal/steamapi"
	"github.com/achievement-hunters/hunter-bot/internal/updater"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRepo is a programmable in-memory hunter repository.
type fakeRepo struct {
	hunters map[string]*hunterdb.Hunter

	createErr error
	linked    map[string]string // discordID -> steamID
	lockCalls []string
}

func newFakeRepo(hunters ...*hunterdb.Hunter) *fakeRepo {
	r := &fakeRepo{
		hunters: make(map[string]*hunterdb.Hunter),
		linked:  make(map[string]string),
	}
	for _, h := range hunters {
		r.hunters[h.SteamID] = h
		if h.DiscordID != nil {
			r.linked[*h.DiscordID] = h.SteamID
		}
	}
	return r
}

func (r *fakeRepo) Create(_ context.Context, hunter *hunterdb.Hunter) error {
	if r.createErr != nil {
		return r.createErr
	}
	if _, exists := r.hunters[hunter.SteamID]; exists {
		return hunterdb.ErrHunterAlreadyExists
	}
	r.hunters[hunter.SteamID] = hunter
	return nil
}

func (r *fakeRepo) GetBySteamID(_ context.Context, steamID string) (*hunterdb.Hunter, error) {
	h, ok := r.hunters[steamID]
	if !ok {
		return nil, hunterdb.ErrHunterNotFound
	}
	return h, nil
}

func (r *fakeRepo) GetByDiscordID(_ context.Context, discordID string) (*hunterdb.Hunter, error) {
	steamID, ok := r.linked[discordID]
	if !ok {
		return nil, hunterdb.ErrHunterNotFound
	}
	return r.hunters[steamID], nil
}

func (r *fakeRepo) LinkDiscordID(_ context.Context, steamID, discordID string) error {
	if _, ok := r.hunters[steamID]; !ok {
		return hunterdb.ErrHunterNotFound
	}
	r.linked[discordID] = steamID
	return nil
}

func (r *fakeRepo) UpsertScore(_ context.Context, steamID string, score int64, totalAchievements, totalGames int, updatedAt time.Time) error {
	h, ok := r.hunters[steamID]
	if !ok {
		return hunterdb.ErrHunterNotFound
	}
	h.Score = score
	h.TotalAchievements = totalAchievements
	h.TotalGames = totalGames
	h.LastUpdated = &updatedAt
	return nil
}

func (r *fakeRepo) SetLocked(_ context.Context, steamID string, locked bool) error {
	h, ok := r.hunters[steamID]
	if !ok {
		return hunterdb.ErrHunterNotFound
	}
	h.Locked = locked
	r.lockCalls = append(r.lockCalls, steamID)
	return nil
}

func (r *fakeRepo) GetScoreboard(_ context.Context, limit, offset int, _ string) ([]hunterdb.HunterWithRank, error) {
	var out []hunterdb.HunterWithRank
	rank := 1
	for _, h := range r.hunters {
		out = append(out, hunterdb.HunterWithRank{Hunter: h, Rank: rank})
		rank++
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) GetRank(_ context.Context, steamID, _ string) (int, error) {
	if _, ok := r.hunters[steamID]; !ok {
		return 0, hunterdb.ErrHunterNotFound
	}
	return 1, nil
}

func (r *fakeRepo) GetAroundRank(ctx context.Context, steamID string, _ int, orderBy string) ([]hunterdb.HunterWithRank, int, error) {
	rank, err := r.GetRank(ctx, steamID, orderBy)
	if err != nil {
		return nil, 0, err
	}
	entries, err := r.GetScoreboard(ctx, 5, 0, orderBy)
	return entries, rank, err
}

func (r *fakeRepo) Count(context.Context) (int, error) {
	return len(r.hunters), nil
}

func (r *fakeRepo) GetRandomScored(context.Context) (*hunterdb.Hunter, error) {
	for _, h := range r.hunters {
		if h.Score > 0 {
			return h, nil
		}
	}
	return nil, hunterdb.ErrHunterNotFound
}

func (r *fakeRepo) ListStale(context.Context, time.Time, int) ([]string, error) {
	return nil, nil
}

var _ hunterdb.Repository = (*fakeRepo)(nil)

// fakeSteamProfiles resolves vanity names and serves summaries from a map.
type fakeSteamProfiles struct {
	vanities  map[string]string
	summaries map[string]*steamapi.PlayerSummary
}

func (f *fakeSteamProfiles) ResolveIdentifier(_ context.Context, identifier string) (string, error) {
	if isDigits(identifier) {
		return identifier, nil
	}
	steamID, ok := f.vanities[identifier]
	if !ok {
		return "", &steamapi.APIError{Classification: steamapi.ClassNotFound}
	}
	return steamID, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func (f *fakeSteamProfiles) GetPlayerSummary(_ context.Context, steamID string) (*steamapi.PlayerSummary, error) {
	summary, ok := f.summaries[steamID]
	if !ok {
		return nil, &steamapi.APIError{Classification: steamapi.ClassNotFound}
	}
	return summary, nil
}

// fakeQueue records enqueued steam ids and completes handles immediately.
type fakeQueue struct {
	enqueued   []string
	enqueueErr error
}

func (q *fakeQueue) Enqueue(_ context.Context, steamID string) (*updater.Handle, bool, error) {
	if q.enqueueErr != nil {
		return nil, false, q.enqueueErr
	}
	q.enqueued = append(q.enqueued, steamID)
	return &updater.Handle{SteamID: steamID}, false, nil
}

func (q *fakeQueue) Status() updater.Snapshot {
	return updater.Snapshot{Identities: map[string]updater.IdentityState{}}
}
