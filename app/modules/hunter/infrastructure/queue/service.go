package hunterqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	hunterdb "github.com/achievement-hunters/hunter-bot/app/modules/hunter/infrastructure/repositories"
	statisticsservice "github.com/achievement-hunters/hunter-bot/app/modules/statistics/application"
	"github.com/achievement-hunters/hunter-bot/internal/observability/attr"
	"github.com/achievement-hunters/hunter-bot/internal/updater"
)

const (
	defaultScanBatchSize = 100
	defaultLogRetention  = 90 * 24 * time.Hour
)

// UpdateEnqueuer is the slice of the update queue the scheduler needs.
type UpdateEnqueuer interface {
	Enqueue(ctx context.Context, steamID string) (*updater.Handle, bool, error)
}

// Config holds scheduler construction parameters.
type Config struct {
	DSN             string
	RefreshInterval time.Duration
	StaleAfter      time.Duration
	ScanBatchSize   int
	LogRetention    time.Duration
}

// Service drives background maintenance with River: the periodic stale-score
// refresh scan and api_call_log pruning.
type Service struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates the River-backed scheduler. River needs its own pgx
// pool; it does not share the bun connection.
func NewService(ctx context.Context, cfg Config, repo hunterdb.Repository, queue UpdateEnqueuer, stats *statisticsservice.StatsService, logger *slog.Logger) (*Service, error) {
	if cfg.ScanBatchSize <= 0 {
		cfg.ScanBatchSize = defaultScanBatchSize
	}
	if cfg.LogRetention <= 0 {
		cfg.LogRetention = defaultLogRetention
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &refreshScanWorker{
		repo:       repo,
		queue:      queue,
		staleAfter: cfg.StaleAfter,
		batchSize:  cfg.ScanBatchSize,
		logger:     logger,
	})
	river.AddWorker(workers, &logCleanupWorker{
		stats:     stats,
		retention: cfg.LogRetention,
		logger:    logger,
	})

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 5},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(cfg.RefreshInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return RefreshScanJob{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
			river.NewPeriodicJob(
				river.PeriodicInterval(24*time.Hour),
				func() (river.JobArgs, *river.InsertOpts) {
					return LogCleanupJob{}, nil
				},
				nil,
			),
		},
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &Service{
		client: riverClient,
		pool:   pool,
		logger: logger,
	}, nil
}

// Start begins processing periodic jobs.
func (s *Service) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	s.logger.InfoContext(ctx, "Refresh scheduler started")
	return nil
}

// Stop drains in-progress jobs and closes the pool.
func (s *Service) Stop(ctx context.Context) error {
	err := s.client.Stop(ctx)
	s.pool.Close()
	if err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	s.logger.InfoContext(ctx, "Refresh scheduler stopped")
	return nil
}

// refreshScanWorker finds unlocked hunters whose last update is older than
// the cutoff and queues them. Coalescing in the update queue absorbs hunters
// that are already pending.
type refreshScanWorker struct {
	river.WorkerDefaults[RefreshScanJob]

	repo       hunterdb.Repository
	queue      UpdateEnqueuer
	staleAfter time.Duration
	batchSize  int
	logger     *slog.Logger
}

func (w *refreshScanWorker) Work(ctx context.Context, _ *river.Job[RefreshScanJob]) error {
	cutoff := time.Now().UTC().Add(-w.staleAfter)
	steamIDs, err := w.repo.ListStale(ctx, cutoff, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list stale hunters: %w", err)
	}

	queued, coalesced := 0, 0
	for _, steamID := range steamIDs {
		_, wasCoalesced, err := w.queue.Enqueue(ctx, steamID)
		if errors.Is(err, updater.ErrQueueFull) {
			// The rest will be picked up by the next scan.
			w.logger.WarnContext(ctx, "Update queue full, stopping refresh scan",
				attr.Int("queued", queued),
				attr.Int("remaining", len(steamIDs)-queued-coalesced),
			)
			break
		}
		if err != nil {
			return fmt.Errorf("failed to queue refresh for %s: %w", steamID, err)
		}
		if wasCoalesced {
			coalesced++
		} else {
			queued++
		}
	}

	w.logger.InfoContext(ctx, "Refresh scan complete",
		attr.Int("stale", len(steamIDs)),
		attr.Int("queued", queued),
		attr.Int("coalesced", coalesced),
		attr.Time("cutoff", cutoff),
	)
	return nil
}

type logCleanupWorker struct {
	river.WorkerDefaults[LogCleanupJob]

	stats     *statisticsservice.StatsService
	retention time.Duration
	logger    *slog.Logger
}

func (w *logCleanupWorker) Work(ctx context.Context, _ *river.Job[LogCleanupJob]) error {
	deleted, err := w.stats.CleanupLogs(ctx, w.retention)
	if err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Api call log cleanup complete", attr.Int64("deleted", deleted))
	return nil
}
