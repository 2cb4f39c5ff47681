package statisticsdb

import (
	"context"
	"time"

	"github.com/achievement-hunters/hunter-bot/internal/steamapi"
)

// Repository is the persistence surface for Steam API telemetry.
type Repository interface {
	RecordCall(ctx context.Context, rec steamapi.CallRecord)
	GetToday(ctx context.Context) (*ApiCallStat, error)
	GetRange(ctx context.Context, since time.Time, limit int) ([]ApiCallStat, error)
	TotalCalls(ctx context.Context) (int64, error)
	MostCalledEndpoints(ctx context.Context, since time.Time, limit int) ([]EndpointCount, error)
	AverageResponseTime(ctx context.Context, since time.Time) (float64, error)
	RecentCallCount(ctx context.Context, since time.Time) (int64, error)
	CleanupOldLogs(ctx context.Context, before time.Time) (int64, error)
}
