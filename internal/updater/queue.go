// Package updater owns the update pipeline: a bounded worker pool drains a
// per-hunter queue, each run fetching owned games and achievement data from
// the Steam API, scoring them, and committing the result atomically. At most
// one run is in flight per Steam ID; duplicate requests coalesce onto the run
// already in progress.
package updater

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	hunterdb "github.com/achievement-hunters/hunter-bot/app/modules/hunter/infrastructure/repositories"
	"github.com/achievement-hunters/hunter-bot/internal/observability/attr"
	"github.com/achievement-hunters/hunter-bot/internal/steamapi"
)

// Status classifies the outcome of one pipeline run.
type Status string

const (
	StatusSuccess           Status = "success"
	StatusLocked            Status = "locked"
	StatusNotFound          Status = "not_found"
	StatusPrivateProfile    Status = "private_profile"
	StatusRateLimited       Status = "rate_limited"
	StatusTransientError    Status = "transient_error"
	StatusMalformedResponse Status = "malformed_response"
	StatusCanceled          Status = "canceled"
)

func statusFromClassification(class steamapi.Classification) Status {
	switch class {
	case steamapi.ClassNotFound:
		return StatusNotFound
	case steamapi.ClassPrivateProfile:
		return StatusPrivateProfile
	case steamapi.ClassRateLimited:
		return StatusRateLimited
	case steamapi.ClassMalformed:
		return StatusMalformedResponse
	default:
		return StatusTransientError
	}
}

// GameFailure records one game whose achievement data could not be read
// during an otherwise-continuing run.
type GameFailure struct {
	AppID          int64
	Classification steamapi.Classification
}

// Outcome is the result of one pipeline run, shared by every caller that
// coalesced onto it.
type Outcome struct {
	RunID        uuid.UUID
	SteamID      string
	Status       Status
	Score        int64
	Achievements int
	Games        int
	FailedGames  []GameFailure
	Err          error
	Duration     time.Duration
	FinishedAt   time.Time
}

// Succeeded reports whether the run committed a score.
func (o *Outcome) Succeeded() bool { return o.Status == StatusSuccess }

// Handle lets a caller observe the run its request was admitted to or
// coalesced onto.
type Handle struct {
	RunID   uuid.UUID
	SteamID string

	done    chan struct{}
	outcome atomic.Pointer[Outcome]
}

func newHandle(steamID string) *Handle {
	return &Handle{
		RunID:   uuid.New(),
		SteamID: steamID,
		done:    make(chan struct{}),
	}
}

// Done is closed once the run's outcome is available.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Outcome returns the run result, or nil while the run is still pending.
func (h *Handle) Outcome() *Outcome { return h.outcome.Load() }

// Await blocks until the run completes or ctx is done.
func (h *Handle) Await(ctx context.Context) (*Outcome, error) {
	select {
	case <-h.done:
		return h.outcome.Load(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Handle) complete(o *Outcome) {
	h.outcome.Store(o)
	close(h.done)
}

// IdentityState describes where a hunter's request currently sits.
type IdentityState string

const (
	StateQueued   IdentityState = "queued"
	StateInFlight IdentityState = "in_flight"
)

// Snapshot is a read-only view of the queue for operational visibility.
type Snapshot struct {
	Queued     int
	InFlight   int
	Identities map[string]IdentityState
}

// HunterStore is the persistence boundary the pipeline needs. Satisfied by
// the hunter repository.
type HunterStore interface {
	GetBySteamID(ctx context.Context, steamID string) (*hunterdb.Hunter, error)
	UpsertScore(ctx context.Context, steamID string, score int64, totalAchievements, totalGames int, updatedAt time.Time) error
}

// StatsFetcher is the subset of the Steam client the pipeline consumes.
type StatsFetcher interface {
	GetOwnedGames(ctx context.Context, steamID string) ([]steamapi.OwnedGame, error)
	GetPlayerAchievements(ctx context.Context, steamID string, appID int64) ([]steamapi.PlayerAchievement, error)
	GetGlobalAchievementPercentages(ctx context.Context, appID int64) (map[string]float64, error)
}

// EventPublisher receives outcome events after each run. May be nil.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Config holds queue tuning knobs.
type Config struct {
	// Workers bounds parallelism across distinct identities.
	Workers int
	// GameConcurrency bounds parallel per-game fetches within one run.
	GameConcurrency int
	// Capacity bounds how many distinct identities may wait for a worker.
	Capacity int
}

func (c Config) withDefaults() Config {
	if c.Workers < 1 {
		c.Workers = 2
	}
	if c.GameConcurrency < 1 {
		c.GameConcurrency = 10
	}
	if c.Capacity < 1 {
		c.Capacity = 1024
	}
	return c
}

// ErrQueueFull is returned when the waiting set is at capacity.
var ErrQueueFull = fmt.Errorf("update queue is full")

type task struct {
	steamID string
	handle  *Handle
	state   IdentityState
}

// Queue serializes update requests per hunter identity and drains them with
// a fixed worker pool.
type Queue struct {
	cfg       Config
	store     HunterStore
	steam     StatsFetcher
	publisher EventPublisher
	logger    *slog.Logger
	metrics   Metrics

	mu    sync.Mutex
	tasks map[string]*task
	work  chan *task

	wg sync.WaitGroup
}

// NewQueue creates an update queue. Call Start before enqueueing.
func NewQueue(cfg Config, store HunterStore, steam StatsFetcher, publisher EventPublisher, logger *slog.Logger, metrics Metrics) *Queue {
	cfg = cfg.withDefaults()
	if metrics == nil {
		metrics = NoOpMetrics{}
	}
	return &Queue{
		cfg:       cfg,
		store:     store,
		steam:     steam,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		tasks:     make(map[string]*task),
		work:      make(chan *task, cfg.Capacity),
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled; queued
// runs that never started complete with a canceled outcome.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}

	go func() {
		<-ctx.Done()
		q.wg.Wait()
		q.drainCanceled()
	}()

	q.logger.InfoContext(ctx, "Update queue started",
		attr.Int("workers", q.cfg.Workers),
		attr.Int("game_concurrency", q.cfg.GameConcurrency),
	)
}

// Wait blocks until every worker has exited.
func (q *Queue) Wait() { q.wg.Wait() }

// Enqueue admits an update request for a hunter. The returned bool reports
// whether the request coalesced onto a run already queued or in flight.
// Locked hunters get an immediately-completed handle with a locked outcome
// and trigger no API calls.
func (q *Queue) Enqueue(ctx context.Context, steamID string) (*Handle, bool, error) {
	if steamID == "" {
		return nil, false, fmt.Errorf("empty steam id")
	}

	q.mu.Lock()
	if existing, ok := q.tasks[steamID]; ok {
		q.mu.Unlock()
		q.metrics.RecordCoalesced(ctx)
		q.logger.InfoContext(ctx, "Update request coalesced onto in-progress run",
			attr.String("steam_id", steamID),
			attr.String("run_id", existing.handle.RunID.String()),
		)
		return existing.handle, true, nil
	}
	q.mu.Unlock()

	hunter, err := q.store.GetBySteamID(ctx, steamID)
	if err != nil {
		return nil, false, fmt.Errorf("enqueue %s: %w", steamID, err)
	}

	if hunter.Locked {
		handle := newHandle(steamID)
		handle.complete(&Outcome{
			RunID:      handle.RunID,
			SteamID:    steamID,
			Status:     StatusLocked,
			FinishedAt: time.Now().UTC(),
		})
		q.logger.InfoContext(ctx, "Update skipped: hunter is locked",
			attr.String("steam_id", steamID))
		return handle, false, nil
	}

	t := &task{steamID: steamID, handle: newHandle(steamID), state: StateQueued}

	q.mu.Lock()
	// Re-check under the lock; a concurrent enqueue may have won the race.
	if existing, ok := q.tasks[steamID]; ok {
		q.mu.Unlock()
		q.metrics.RecordCoalesced(ctx)
		return existing.handle, true, nil
	}
	q.tasks[steamID] = t
	q.mu.Unlock()

	select {
	case q.work <- t:
	default:
		q.mu.Lock()
		delete(q.tasks, steamID)
		q.mu.Unlock()
		return nil, false, ErrQueueFull
	}

	q.publishDepth(ctx)
	q.logger.InfoContext(ctx, "Update request queued",
		attr.String("steam_id", steamID),
		attr.String("run_id", t.handle.RunID.String()),
	)
	return t.handle, false, nil
}

// Status returns a point-in-time snapshot of the queue.
func (q *Queue) Status() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	snap := Snapshot{Identities: make(map[string]IdentityState, len(q.tasks))}
	for id, t := range q.tasks {
		snap.Identities[id] = t.state
		if t.state == StateInFlight {
			snap.InFlight++
		} else {
			snap.Queued++
		}
	}
	return snap
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-q.work:
			q.mu.Lock()
			t.state = StateInFlight
			q.mu.Unlock()
			q.publishDepth(ctx)

			q.metrics.RecordRunStart(ctx)
			started := time.Now()
			outcome := q.run(ctx, t)
			outcome.Duration = time.Since(started)
			outcome.FinishedAt = time.Now().UTC()
			outcome.RunID = t.handle.RunID
			outcome.SteamID = t.steamID

			// Outcome delivery must not be lost to the shutdown signal.
			q.finish(context.WithoutCancel(ctx), t, outcome)
		}
	}
}

// finish publishes the outcome, removes the identity from the in-flight set,
// and releases every coalesced waiter.
func (q *Queue) finish(ctx context.Context, t *task, outcome *Outcome) {
	q.mu.Lock()
	delete(q.tasks, t.steamID)
	q.mu.Unlock()

	q.metrics.RecordRunOutcome(ctx, outcome.Status, outcome.Duration)
	for _, f := range outcome.FailedGames {
		q.metrics.RecordGameFailure(ctx, f.Classification)
	}
	q.publishDepth(ctx)

	t.handle.complete(outcome)
	q.publishOutcome(ctx, outcome)

	if outcome.Succeeded() {
		q.logger.InfoContext(ctx, "Update run committed",
			attr.String("steam_id", t.steamID),
			attr.String("run_id", outcome.RunID.String()),
			attr.Int64("score", outcome.Score),
			attr.Int("achievements", outcome.Achievements),
			attr.Int("games", outcome.Games),
			attr.Int("failed_games", len(outcome.FailedGames)),
			attr.Duration("duration", outcome.Duration),
		)
		return
	}

	q.logger.WarnContext(ctx, "Update run did not commit",
		attr.String("steam_id", t.steamID),
		attr.String("run_id", outcome.RunID.String()),
		attr.String("status", string(outcome.Status)),
		attr.Error(outcome.Err),
		attr.Duration("duration", outcome.Duration),
	)
}

// drainCanceled completes handles of runs that never started after shutdown.
func (q *Queue) drainCanceled() {
	for {
		select {
		case t := <-q.work:
			q.mu.Lock()
			delete(q.tasks, t.steamID)
			q.mu.Unlock()
			t.handle.complete(&Outcome{
				RunID:      t.handle.RunID,
				SteamID:    t.steamID,
				Status:     StatusCanceled,
				Err:        context.Canceled,
				FinishedAt: time.Now().UTC(),
			})
		default:
			return
		}
	}
}

func (q *Queue) publishDepth(ctx context.Context) {
	snap := q.Status()
	q.metrics.SetQueueDepth(ctx, snap.Queued, snap.InFlight)
}

func (q *Queue) publishOutcome(ctx context.Context, outcome *Outcome) {
	if q.publisher == nil {
		return
	}
	// Locked and canceled runs are administrative no-ops, not outcomes worth
	// broadcasting.
	if outcome.Status == StatusLocked || outcome.Status == StatusCanceled {
		return
	}

	var topic string
	var payload any
	if outcome.Succeeded() {
		topic = TopicScoreUpdated
		payload = ScoreUpdatedPayload{
			RunID:        outcome.RunID,
			SteamID:      outcome.SteamID,
			Score:        outcome.Score,
			Achievements: outcome.Achievements,
			Games:        outcome.Games,
			FailedGames:  len(outcome.FailedGames),
			UpdatedAt:    outcome.FinishedAt,
		}
	} else {
		reason := ""
		if outcome.Err != nil {
			reason = outcome.Err.Error()
		}
		topic = TopicUpdateFailed
		payload = UpdateFailedPayload{
			RunID:   outcome.RunID,
			SteamID: outcome.SteamID,
			Status:  string(outcome.Status),
			Reason:  reason,
		}
	}

	if err := q.publisher.Publish(ctx, topic, payload); err != nil {
		q.logger.WarnContext(ctx, "Failed to publish outcome event",
			attr.String("topic", topic),
			attr.String("steam_id", outcome.SteamID),
			attr.Error(err),
		)
	}
}
