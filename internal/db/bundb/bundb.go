package bundb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	hunterdb "github.com/achievement-hunters/hunter-bot/app/modules/hunter/infrastructure/repositories"
	statisticsdb "github.com/achievement-hunters/hunter-bot/app/modules/statistics/infrastructure/repositories"
)

// New opens a bun.DB over pgdriver and verifies connectivity.
func New(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if err := sqldb.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	db.RegisterModel(
		(*hunterdb.Hunter)(nil),
		(*statisticsdb.ApiCallStat)(nil),
		(*statisticsdb.ApiCallLogEntry)(nil),
	)
	return db, nil
}
