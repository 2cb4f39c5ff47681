package statisticsservice

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	statisticsdb "github.com/achievement-hunters/hunter-bot/app/modules/statistics/infrastructure/repositories"
	"github.com/achievement-hunters/hunter-bot/internal/steamapi"
)

type fakeStatsRepo struct {
	today      *statisticsdb.ApiCallStat
	daily      []statisticsdb.ApiCallStat
	total      int64
	recent     int64
	avg        float64
	top        []statisticsdb.EndpointCount
	deleted    int64
	err        error
	rangeSince time.Time
	cleanupCut time.Time
}

func (f *fakeStatsRepo) RecordCall(context.Context, steamapi.CallRecord) {}

func (f *fakeStatsRepo) GetToday(context.Context) (*statisticsdb.ApiCallStat, error) {
	return f.today, f.err
}

func (f *fakeStatsRepo) GetRange(_ context.Context, since time.Time, _ int) ([]statisticsdb.ApiCallStat, error) {
	f.rangeSince = since
	return f.daily, f.err
}

func (f *fakeStatsRepo) TotalCalls(context.Context) (int64, error) {
	return f.total, f.err
}

func (f *fakeStatsRepo) MostCalledEndpoints(context.Context, time.Time, int) ([]statisticsdb.EndpointCount, error) {
	return f.top, f.err
}

func (f *fakeStatsRepo) AverageResponseTime(context.Context, time.Time) (float64, error) {
	return f.avg, f.err
}

func (f *fakeStatsRepo) RecentCallCount(context.Context, time.Time) (int64, error) {
	return f.recent, f.err
}

func (f *fakeStatsRepo) CleanupOldLogs(_ context.Context, before time.Time) (int64, error) {
	f.cleanupCut = before
	return f.deleted, f.err
}

var _ statisticsdb.Repository = (*fakeStatsRepo)(nil)

func newTestService(repo *fakeStatsRepo) *StatsService {
	return NewStatsService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSummary(t *testing.T) {
	repo := &fakeStatsRepo{
		today:  &statisticsdb.ApiCallStat{TotalCalls: 123, RateLimitHits: 4},
		total:  4096,
		recent: 37,
		avg:    250.5,
		top: []statisticsdb.EndpointCount{
			{Endpoint: steamapi.EndpointPlayerAchievements, Count: 90},
		},
	}

	summary, err := newTestService(repo).Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(123), summary.Today.TotalCalls)
	assert.Equal(t, int64(4096), summary.TotalCalls)
	assert.Equal(t, int64(37), summary.CallsLastHour)
	assert.InDelta(t, 250.5, summary.AverageResponseMs, 0.001)
	require.Len(t, summary.MostCalledEndpoints, 1)
}

func TestSummaryPropagatesErrors(t *testing.T) {
	repo := &fakeStatsRepo{err: assert.AnError}

	_, err := newTestService(repo).Summary(context.Background())
	assert.Error(t, err)
}

func TestDailyDefaultsToAWeek(t *testing.T) {
	repo := &fakeStatsRepo{daily: []statisticsdb.ApiCallStat{{TotalCalls: 10}}}
	svc := newTestService(repo)

	stats, err := svc.Daily(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, stats, 1)

	wantSince := time.Now().UTC().AddDate(0, 0, -7)
	assert.WithinDuration(t, wantSince, repo.rangeSince, time.Minute)
}

func TestCleanupLogs(t *testing.T) {
	repo := &fakeStatsRepo{deleted: 42}
	svc := newTestService(repo)

	deleted, err := svc.CleanupLogs(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(42), deleted)

	wantCutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	assert.WithinDuration(t, wantCutoff, repo.cleanupCut, time.Minute)
}
