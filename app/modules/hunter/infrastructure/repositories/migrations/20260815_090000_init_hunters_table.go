package huntermigrations

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
		fmt.Println("Creating hunters table...")

		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS hunters (
				steam_id TEXT PRIMARY KEY,
				steam_name TEXT NOT NULL,
				discord_id TEXT UNIQUE,
				score BIGINT NOT NULL DEFAULT 0,
				total_achievements INTEGER NOT NULL DEFAULT 0,
				total_games INTEGER NOT NULL DEFAULT 0,
				last_updated TIMESTAMPTZ,
				locked BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`)
		if err != nil {
			return fmt.Errorf("failed to create hunters table: %w", err)
		}

		_, err = db.ExecContext(ctx, `
			CREATE INDEX IF NOT EXISTS hunters_score_idx ON hunters (score DESC);
			CREATE INDEX IF NOT EXISTS hunters_last_updated_idx ON hunters (last_updated);
		`)
		if err != nil {
			return fmt.Errorf("failed to create hunters indexes: %w", err)
		}

		fmt.Println("Hunters table created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping hunters table...")

		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS hunters;`)
		if err != nil {
			return fmt.Errorf("failed to drop hunters table: %w", err)
		}
		return nil
	})
}
