package statisticsmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	if err := Migrations.DiscoverCaller(); err != nil {
		panic(err)
	}
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating api_statistics table...")

		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS api_statistics (
				date DATE PRIMARY KEY,
				total_calls BIGINT NOT NULL DEFAULT 0,
				failed_calls BIGINT NOT NULL DEFAULT 0,
				rate_limit_hits BIGINT NOT NULL DEFAULT 0,
				private_profile_errors BIGINT NOT NULL DEFAULT 0,
				resolve_vanity_url BIGINT NOT NULL DEFAULT 0,
				get_player_summaries BIGINT NOT NULL DEFAULT 0,
				get_owned_games BIGINT NOT NULL DEFAULT 0,
				get_player_achievements BIGINT NOT NULL DEFAULT 0,
				get_schema_for_game BIGINT NOT NULL DEFAULT 0,
				get_global_achievement_percentages BIGINT NOT NULL DEFAULT 0,
				get_recently_played_games BIGINT NOT NULL DEFAULT 0
			);
		`)
		if err != nil {
			return fmt.Errorf("failed to create api_statistics table: %w", err)
		}

		fmt.Println("Creating api_call_log table...")

		_, err = db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS api_call_log (
				id BIGSERIAL PRIMARY KEY,
				timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				endpoint TEXT NOT NULL,
				steam_id TEXT,
				app_id BIGINT,
				success BOOLEAN NOT NULL,
				error_type TEXT,
				response_time_ms BIGINT NOT NULL DEFAULT 0
			);
		`)
		if err != nil {
			return fmt.Errorf("failed to create api_call_log table: %w", err)
		}

		_, err = db.ExecContext(ctx, `
			CREATE INDEX IF NOT EXISTS api_call_log_timestamp_idx ON api_call_log (timestamp);
			CREATE INDEX IF NOT EXISTS api_call_log_endpoint_idx ON api_call_log (endpoint);
		`)
		if err != nil {
			return fmt.Errorf("failed to create api_call_log indexes: %w", err)
		}

		fmt.Println("Statistics tables created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping statistics tables...")

		_, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS api_call_log;
			DROP TABLE IF EXISTS api_statistics;
		`)
		if err != nil {
			return fmt.Errorf("failed to drop statistics tables: %w", err)
		}
		return nil
	})
}
