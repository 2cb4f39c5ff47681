package updater

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/achievement-hunters/hunter-bot/internal/observability/attr"
	"github.com/achievement-hunters/hunter-bot/internal/steamapi"

	hunterdb "github.com/achievement-hunters/hunter-bot/app/modules/hunter/infrastructure/repositories"
)

// run executes the fetch → score → commit sequence for one hunter. The
// hunter record is mutated only by the final atomic commit; any failure or
// cancellation before that point leaves it untouched.
func (q *Queue) run(ctx context.Context, t *task) *Outcome {
	hunter, err := q.store.GetBySteamID(ctx, t.steamID)
	if err != nil {
		if errors.Is(err, hunterdb.ErrHunterNotFound) {
			return &Outcome{Status: StatusNotFound, Err: err}
		}
		return &Outcome{Status: StatusTransientError, Err: err}
	}

	// The lock may have been set between admission and pickup.
	if hunter.Locked {
		return &Outcome{Status: StatusLocked}
	}

	games, err := q.steam.GetOwnedGames(ctx, t.steamID)
	if err != nil {
		if canceled(ctx, err) {
			return &Outcome{Status: StatusCanceled, Err: err}
		}
		// Identity-scope failure: abort the whole run, no store mutation.
		return &Outcome{Status: statusFromClassification(steamapi.ClassifyError(err)), Err: err}
	}

	results, failures, fetched := q.fetchGames(ctx, t.steamID, games)

	if ctx.Err() != nil {
		return &Outcome{Status: StatusCanceled, Err: ctx.Err(), FailedGames: failures}
	}

	// Partial success commits; total per-game failure does not.
	if len(games) > 0 && fetched == 0 && len(failures) > 0 {
		return &Outcome{
			Status:      statusFromClassification(failures[0].Classification),
			Err:         errors.New("every game in the library failed to fetch"),
			FailedGames: failures,
		}
	}

	summary := CalculateScore(results)

	// The commit is the one non-suspension point: it runs to completion even
	// if shutdown started while we were fetching.
	commitCtx := context.WithoutCancel(ctx)
	now := time.Now().UTC()
	if err := q.store.UpsertScore(commitCtx, t.steamID, summary.Score, summary.Achievements, summary.Games, now); err != nil {
		return &Outcome{Status: StatusTransientError, Err: err, FailedGames: failures}
	}

	return &Outcome{
		Status:       StatusSuccess,
		Score:        summary.Score,
		Achievements: summary.Achievements,
		Games:        summary.Games,
		FailedGames:  failures,
	}
}

// fetchGames pulls achievement state for every game with bounded parallelism.
// It returns the per-game results, the games that failed, and how many games
// were read successfully (including games that simply had nothing unlocked).
func (q *Queue) fetchGames(ctx context.Context, steamID string, games []steamapi.OwnedGame) ([]GameResult, []GameFailure, int) {
	var (
		mu       sync.Mutex
		results  []GameResult
		failures []GameFailure
		fetched  int
	)

	sem := make(chan struct{}, q.cfg.GameConcurrency)
	var wg sync.WaitGroup

	for _, game := range games {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(game steamapi.OwnedGame) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, failure, ok := q.fetchGame(ctx, steamID, game.AppID)

			mu.Lock()
			defer mu.Unlock()
			if failure != nil {
				failures = append(failures, *failure)
				return
			}
			fetched++
			if ok {
				results = append(results, result)
			}
		}(game)
	}

	wg.Wait()
	return results, failures, fetched
}

// fetchGame reads one game's unlock state and global rarity data. The bool
// reports whether the game contributes to scoring; games without achievement
// stats or without unlocks are read successfully but contribute nothing.
func (q *Queue) fetchGame(ctx context.Context, steamID string, appID int64) (GameResult, *GameFailure, bool) {
	achievements, err := q.steam.GetPlayerAchievements(ctx, steamID, appID)
	if err != nil {
		class := steamapi.ClassifyError(err)
		if class == steamapi.ClassNotFound {
			// The app has no achievement stats at all; not a failure.
			return GameResult{}, nil, false
		}
		if canceled(ctx, err) {
			return GameResult{}, nil, false
		}
		q.logger.DebugContext(ctx, "Skipping game after fetch failure",
			attr.String("steam_id", steamID),
			attr.Int64("app_id", appID),
			attr.String("classification", string(class)),
		)
		return GameResult{}, &GameFailure{AppID: appID, Classification: class}, false
	}

	unlocked := make([]string, 0, len(achievements))
	for _, a := range achievements {
		if a.Achieved {
			unlocked = append(unlocked, a.APIName)
		}
	}
	if len(unlocked) == 0 {
		return GameResult{}, nil, false
	}

	percentages, err := q.steam.GetGlobalAchievementPercentages(ctx, appID)
	if err != nil {
		if canceled(ctx, err) {
			return GameResult{}, nil, false
		}
		// Missing global data scores at the documented 0% default; the
		// failed call itself is already in the telemetry log.
		q.logger.DebugContext(ctx, "Global percentages unavailable, scoring at 0% default",
			attr.Int64("app_id", appID),
			attr.Error(err),
		)
		percentages = nil
	}

	return GameResult{AppID: appID, Unlocked: unlocked, GlobalPercent: percentages}, nil, true
}

// canceled distinguishes run-level cancellation from per-call timeouts: only
// the run context matters here, a timed-out call is an ordinary transient
// failure.
func canceled(ctx context.Context, _ error) bool {
	return ctx.Err() != nil
}
