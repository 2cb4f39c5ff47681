package updater

import (
	"time"

	"github.com/google/uuid"
)

// Topics for outcome events published after each completed run.
const (
	TopicScoreUpdated = "hunter.score.updated"
	TopicUpdateFailed = "hunter.update.failed"
)

// ScoreUpdatedPayload announces a committed score update.
type ScoreUpdatedPayload struct {
	RunID        uuid.UUID `json:"run_id"`
	SteamID      string    `json:"steam_id"`
	Score        int64     `json:"score"`
	Achievements int       `json:"achievements"`
	Games        int       `json:"games"`
	FailedGames  int       `json:"failed_games"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UpdateFailedPayload announces a run that terminated without a commit.
type UpdateFailedPayload struct {
	RunID   uuid.UUID `json:"run_id"`
	SteamID string    `json:"steam_id"`
	Status  string    `json:"status"`
	Reason  string    `json:"reason,omitempty"`
}
