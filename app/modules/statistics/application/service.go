package statisticsservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	statisticsdb "github.com/achievement-hunters/hunter-bot/app/modules/statistics/infrastructure/repositories"
	"github.com/achievement-hunters/hunter-bot/internal/observability/attr"
)

// Summary is the aggregate view served by the stats endpoints.
type Summary struct {
	Today               *statisticsdb.ApiCallStat    `json:"today"`
	TotalCalls          int64                        `json:"total_calls"`
	CallsLastHour       int64                        `json:"calls_last_hour"`
	AverageResponseMs   float64                      `json:"average_response_ms"`
	MostCalledEndpoints []statisticsdb.EndpointCount `json:"most_called_endpoints"`
}

// StatsService exposes read-side views over the telemetry tables.
type StatsService struct {
	repo   statisticsdb.Repository
	logger *slog.Logger
}

func NewStatsService(repo statisticsdb.Repository, logger *slog.Logger) *StatsService {
	return &StatsService{repo: repo, logger: logger}
}

// Summary assembles today's aggregate plus rolling figures from the call log.
func (s *StatsService) Summary(ctx context.Context) (*Summary, error) {
	today, err := s.repo.GetToday(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load today's statistics: %w", err)
	}

	total, err := s.repo.TotalCalls(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count total calls: %w", err)
	}

	now := time.Now().UTC()
	lastHour, err := s.repo.RecentCallCount(ctx, now.Add(-time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent calls: %w", err)
	}

	avg, err := s.repo.AverageResponseTime(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to compute average response time: %w", err)
	}

	top, err := s.repo.MostCalledEndpoints(ctx, now.Add(-24*time.Hour), 5)
	if err != nil {
		return nil, fmt.Errorf("failed to rank endpoints: %w", err)
	}

	return &Summary{
		Today:               today,
		TotalCalls:          total,
		CallsLastHour:       lastHour,
		AverageResponseMs:   avg,
		MostCalledEndpoints: top,
	}, nil
}

// Daily returns per-day aggregates for the last n days, newest first.
func (s *StatsService) Daily(ctx context.Context, days int) ([]statisticsdb.ApiCallStat, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	stats, err := s.repo.GetRange(ctx, since, days)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily statistics: %w", err)
	}
	return stats, nil
}

// CleanupLogs prunes call log rows older than the retention window.
func (s *StatsService) CleanupLogs(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	deleted, err := s.repo.CleanupOldLogs(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up call log: %w", err)
	}
	if deleted > 0 {
		s.logger.InfoContext(ctx, "pruned api call log",
			attr.Int64("deleted", deleted),
			attr.Time("cutoff", cutoff),
		)
	}
	return deleted, nil
}
