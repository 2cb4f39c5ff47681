package statisticsdb

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/achievement-hunters/hunter-bot/internal/observability/attr"
	"github.com/achievement-hunters/hunter-bot/internal/steamapi"
)

// endpointColumns whitelists the per-endpoint counter columns. Endpoints not
// listed here still land in the aggregate counters and the call log.
var endpointColumns = map[string]string{
	steamapi.EndpointResolveVanityURL:   "resolve_vanity_url",
	steamapi.EndpointPlayerSummaries:    "get_player_summaries",
	steamapi.EndpointOwnedGames:         "get_owned_games",
	steamapi.EndpointPlayerAchievements: "get_player_achievements",
	steamapi.EndpointGameSchema:         "get_schema_for_game",
	steamapi.EndpointGlobalPercentages:  "get_global_achievement_percentages",
	steamapi.EndpointRecentlyPlayed:     "get_recently_played_games",
}

// StatsRepository persists telemetry to Postgres via bun. It satisfies
// steamapi.CallRecorder, so it can be handed straight to the client.
type StatsRepository struct {
	DB     *bun.DB
	Logger *slog.Logger
}

var _ Repository = (*StatsRepository)(nil)
var _ steamapi.CallRecorder = (*StatsRepository)(nil)

func NewStatsRepository(db *bun.DB, logger *slog.Logger) *StatsRepository {
	return &StatsRepository{DB: db, Logger: logger}
}

// RecordCall appends one api_call_log row and bumps today's api_statistics
// aggregate in a single transaction. Telemetry failures are logged and
// swallowed; they must never fail the API call they describe.
func (r *StatsRepository) RecordCall(ctx context.Context, rec steamapi.CallRecord) {
	if err := r.recordCall(ctx, rec); err != nil {
		r.Logger.ErrorContext(ctx, "failed to record api call",
			attr.String("endpoint", rec.Endpoint),
			attr.Error(err),
		)
	}
}

func (r *StatsRepository) recordCall(ctx context.Context, rec steamapi.CallRecord) error {
	tx, err := r.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	failed := int64(0)
	rateLimited := int64(0)
	private := int64(0)
	if !rec.Success {
		failed = 1
	}
	switch rec.Classification {
	case steamapi.ClassRateLimited:
		rateLimited = 1
	case steamapi.ClassPrivateProfile:
		private = 1
	}

	upsert := tx.NewInsert().
		Model(&ApiCallStat{
			Date:                 time.Now().UTC().Truncate(24 * time.Hour),
			TotalCalls:           1,
			FailedCalls:          failed,
			RateLimitHits:        rateLimited,
			PrivateProfileErrors: private,
		}).
		On("CONFLICT (date) DO UPDATE").
		Set("total_calls = s.total_calls + 1").
		Set("failed_calls = s.failed_calls + EXCLUDED.failed_calls").
		Set("rate_limit_hits = s.rate_limit_hits + EXCLUDED.rate_limit_hits").
		Set("private_profile_errors = s.private_profile_errors + EXCLUDED.private_profile_errors")
	if column, ok := endpointColumns[rec.Endpoint]; ok {
		upsert = upsert.
			Value(column, "1").
			Set("? = s.? + 1", bun.Ident(column), bun.Ident(column))
	}
	if _, err := upsert.Exec(ctx); err != nil {
		return err
	}

	entry := &ApiCallLogEntry{
		Timestamp:      time.Now().UTC(),
		Endpoint:       rec.Endpoint,
		Success:        rec.Success,
		ResponseTimeMs: rec.Latency.Milliseconds(),
	}
	if rec.SteamID != "" {
		entry.SteamID = &rec.SteamID
	}
	if rec.AppID != 0 {
		appID := rec.AppID
		entry.AppID = &appID
	}
	if !rec.Success {
		errorType := string(rec.Classification)
		entry.ErrorType = &errorType
	}
	if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
		return err
	}

	return tx.Commit()
}

// GetToday returns today's aggregate, or a zero-valued row if no calls have
// been made yet today.
func (r *StatsRepository) GetToday(ctx context.Context) (*ApiCallStat, error) {
	stat := new(ApiCallStat)
	err := r.DB.NewSelect().
		Model(stat).
		Where("s.date = CURRENT_DATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return &ApiCallStat{Date: time.Now().UTC().Truncate(24 * time.Hour)}, nil
	}
	if err != nil {
		return nil, err
	}
	return stat, nil
}

// GetRange returns daily aggregates on or after since, newest first.
func (r *StatsRepository) GetRange(ctx context.Context, since time.Time, limit int) ([]ApiCallStat, error) {
	var stats []ApiCallStat
	query := r.DB.NewSelect().
		Model(&stats).
		Where("s.date >= ?", since).
		Order("date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *StatsRepository) TotalCalls(ctx context.Context) (int64, error) {
	var total int64
	err := r.DB.NewSelect().
		Model((*ApiCallStat)(nil)).
		ColumnExpr("COALESCE(SUM(total_calls), 0)").
		Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// MostCalledEndpoints ranks endpoints by call volume since the given time,
// derived from the log rather than the daily aggregates so it can cover
// partial days.
func (r *StatsRepository) MostCalledEndpoints(ctx context.Context, since time.Time, limit int) ([]EndpointCount, error) {
	var counts []EndpointCount
	err := r.DB.NewSelect().
		Model((*ApiCallLogEntry)(nil)).
		ColumnExpr("endpoint").
		ColumnExpr("COUNT(*) AS count").
		Where("l.timestamp >= ?", since).
		GroupExpr("endpoint").
		OrderExpr("count DESC").
		Limit(limit).
		Scan(ctx, &counts)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// AverageResponseTime returns the mean latency in milliseconds of calls made
// since the given time. No calls yields zero.
func (r *StatsRepository) AverageResponseTime(ctx context.Context, since time.Time) (float64, error) {
	var avg float64
	err := r.DB.NewSelect().
		Model((*ApiCallLogEntry)(nil)).
		ColumnExpr("COALESCE(AVG(response_time_ms), 0)").
		Where("l.timestamp >= ?", since).
		Scan(ctx, &avg)
	if err != nil {
		return 0, err
	}
	return avg, nil
}

func (r *StatsRepository) RecentCallCount(ctx context.Context, since time.Time) (int64, error) {
	count, err := r.DB.NewSelect().
		Model((*ApiCallLogEntry)(nil)).
		Where("l.timestamp >= ?", since).
		Count(ctx)
	if err != nil {
		return 0, err
	}
	return int64(count), nil
}

// CleanupOldLogs prunes api_call_log rows older than the cutoff. The daily
// aggregates are kept indefinitely.
func (r *StatsRepository) CleanupOldLogs(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.DB.NewDelete().
		Model((*ApiCallLogEntry)(nil)).
		Where("l.timestamp < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
