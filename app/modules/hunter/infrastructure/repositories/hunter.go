package hunterdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// HunterRepository is the bun-backed implementation of Repository.
type HunterRepository struct {
	DB *bun.DB
}

var _ Repository = (*HunterRepository)(nil)

// NewHunterRepository creates a hunter repository on the given database.
func NewHunterRepository(db *bun.DB) *HunterRepository {
	return &HunterRepository{DB: db}
}

// sortColumn whitelists leaderboard sort columns.
func sortColumn(orderBy string) string {
	switch orderBy {
	case "total_achievements", "last_updated":
		return orderBy
	default:
		return "score"
	}
}

// Create inserts a new hunter with a zero score.
func (r *HunterRepository) Create(ctx context.Context, hunter *Hunter) error {
	_, err := r.DB.NewInsert().Model(hunter).Exec(ctx)
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.Field('C') == "23505" {
			return ErrHunterAlreadyExists
		}
		return fmt.Errorf("failed to create hunter: %w", err)
	}
	return nil
}

// GetBySteamID retrieves a hunter by Steam ID.
func (r *HunterRepository) GetBySteamID(ctx context.Context, steamID string) (*Hunter, error) {
	hunter := &Hunter{}
	err := r.DB.NewSelect().Model(hunter).Where("steam_id = ?", steamID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHunterNotFound
		}
		return nil, err
	}
	return hunter, nil
}

// GetByDiscordID retrieves a hunter by linked Discord ID.
func (r *HunterRepository) GetByDiscordID(ctx context.Context, discordID string) (*Hunter, error) {
	hunter := &Hunter{}
	err := r.DB.NewSelect().Model(hunter).Where("discord_id = ?", discordID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHunterNotFound
		}
		return nil, err
	}
	return hunter, nil
}

// LinkDiscordID attaches a Discord identity to an existing hunter.
func (r *HunterRepository) LinkDiscordID(ctx context.Context, steamID, discordID string) error {
	result, err := r.DB.NewUpdate().
		Model((*Hunter)(nil)).
		Set("discord_id = ?", discordID).
		Where("steam_id = ?", steamID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to link discord id: %w", err)
	}
	return requireRow(result)
}

// UpsertScore commits the result of one completed update run. The single
// UPDATE keeps score, total_achievements, total_games and last_updated
// atomic: either the row gets all of them or none.
func (r *HunterRepository) UpsertScore(ctx context.Context, steamID string, score int64, totalAchievements, totalGames int, updatedAt time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.NewUpdate().
		Model((*Hunter)(nil)).
		Set("score = ?", score).
		Set("total_achievements = ?", totalAchievements).
		Set("total_games = ?", totalGames).
		Set("last_updated = ?", updatedAt).
		Where("steam_id = ?", steamID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to commit hunter score: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SetLocked toggles the administrative update lock.
func (r *HunterRepository) SetLocked(ctx context.Context, steamID string, locked bool) error {
	result, err := r.DB.NewUpdate().
		Model((*Hunter)(nil)).
		Set("locked = ?", locked).
		Where("steam_id = ?", steamID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set lock: %w", err)
	}
	return requireRow(result)
}

// GetScoreboard returns a page of hunters ordered by the given column,
// highest first, with their ranks.
func (r *HunterRepository) GetScoreboard(ctx context.Context, limit, offset int, orderBy string) ([]HunterWithRank, error) {
	column := sortColumn(orderBy)

	var hunters []HunterWithRank
	err := r.DB.NewSelect().
		Model((*Hunter)(nil)).
		ColumnExpr("h.*").
		ColumnExpr("ROW_NUMBER() OVER (ORDER BY ? DESC) AS rank", bun.Ident(column)).
		OrderExpr("? DESC", bun.Ident(column)).
		Limit(limit).
		Offset(offset).
		Scan(ctx, &hunters)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scoreboard: %w", err)
	}
	return hunters, nil
}

// GetRank returns the 1-based leaderboard position of a hunter.
func (r *HunterRepository) GetRank(ctx context.Context, steamID, orderBy string) (int, error) {
	column := sortColumn(orderBy)

	var rank int
	err := r.DB.NewRaw(`
		SELECT rank FROM (
			SELECT steam_id, ROW_NUMBER() OVER (ORDER BY ? DESC) AS rank
			FROM hunters
		) ranked WHERE steam_id = ?
	`, bun.Ident(column), steamID).Scan(ctx, &rank)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrHunterNotFound
		}
		return 0, fmt.Errorf("failed to fetch rank: %w", err)
	}
	return rank, nil
}

// GetAroundRank returns hunters surrounding the given hunter's position,
// contextSize entries on each side, plus the hunter's own rank.
func (r *HunterRepository) GetAroundRank(ctx context.Context, steamID string, contextSize int, orderBy string) ([]HunterWithRank, int, error) {
	rank, err := r.GetRank(ctx, steamID, orderBy)
	if err != nil {
		return nil, 0, err
	}

	column := sortColumn(orderBy)
	offset := rank - contextSize - 1
	if offset < 0 {
		offset = 0
	}
	limit := contextSize*2 + 1

	var hunters []HunterWithRank
	err = r.DB.NewSelect().
		Model((*Hunter)(nil)).
		ColumnExpr("h.*").
		ColumnExpr("ROW_NUMBER() OVER (ORDER BY ? DESC) AS rank", bun.Ident(column)).
		OrderExpr("? DESC", bun.Ident(column)).
		Limit(limit).
		Offset(offset).
		Scan(ctx, &hunters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch hunters around rank: %w", err)
	}
	return hunters, rank, nil
}

// Count returns the total number of registered hunters.
func (r *HunterRepository) Count(ctx context.Context) (int, error) {
	count, err := r.DB.NewSelect().Model((*Hunter)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count hunters: %w", err)
	}
	return count, nil
}

// GetRandomScored returns a random hunter with a positive score.
func (r *HunterRepository) GetRandomScored(ctx context.Context) (*Hunter, error) {
	hunter := &Hunter{}
	err := r.DB.NewSelect().
		Model(hunter).
		Where("score > 0").
		OrderExpr("RANDOM()").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHunterNotFound
		}
		return nil, err
	}
	return hunter, nil
}

// ListStale returns steam ids of unlocked hunters not updated since the
// cutoff, oldest first.
func (r *HunterRepository) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	var steamIDs []string
	err := r.DB.NewSelect().
		Model((*Hunter)(nil)).
		Column("steam_id").
		Where("locked = FALSE").
		Where("last_updated IS NULL OR last_updated < ?", olderThan).
		OrderExpr("last_updated ASC NULLS FIRST").
		Limit(limit).
		Scan(ctx, &steamIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale hunters: %w", err)
	}
	return steamIDs, nil
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrHunterNotFound
	}
	return nil
}
