package hunterhandlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	hunterservice "github.com/achievement-hunters/hunter-bot/app/modules/hunter/application"
	statisticsservice "github.com/achievement-hunters/hunter-bot/app/modules/statistics/application"
	"github.com/achievement-hunters/hunter-bot/internal/updater"
)

// Handlers serves the hunter module's HTTP API.
type Handlers struct {
	hunters hunterservice.Service
	stats   *statisticsservice.StatsService
}

func NewHandlers(hunters hunterservice.Service, stats *statisticsservice.StatsService) *Handlers {
	return &Handlers{hunters: hunters, stats: stats}
}

type registerRequest struct {
	Identifier string `json:"identifier"`
	DiscordID  string `json:"discord_id,omitempty"`
}

type linkDiscordRequest struct {
	DiscordID string `json:"discord_id"`
}

type updateResponse struct {
	RunID     string `json:"run_id"`
	SteamID   string `json:"steam_id"`
	Coalesced bool   `json:"coalesced"`
}

// RegisterHunter creates a hunter and queues the first score update.
func (h *Handlers) RegisterHunter(w http.ResponseWriter, r *http.Request) {
	var input registerRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, fmt.Sprintf("Failed to decode request body: %v", err), http.StatusBadRequest)
		return
	}
	if input.Identifier == "" {
		http.Error(w, "identifier is required", http.StatusBadRequest)
		return
	}

	hunter, _, err := h.hunters.Register(r.Context(), input.Identifier)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	if input.DiscordID != "" {
		hunter, err = h.hunters.LinkDiscord(r.Context(), hunter.SteamID, input.DiscordID)
		if err != nil {
			h.serviceError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, hunter)
}

// GetHunter returns a hunter by steam id, vanity name, or profile URL.
func (h *Handlers) GetHunter(w http.ResponseWriter, r *http.Request) {
	hunter, err := h.hunters.GetHunter(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hunter)
}

// RequestUpdate queues a score update and returns the run it was admitted to.
func (h *Handlers) RequestUpdate(w http.ResponseWriter, r *http.Request) {
	handle, coalesced, err := h.hunters.RequestUpdate(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		if errors.Is(err, updater.ErrQueueFull) {
			http.Error(w, "update queue is full, try again later", http.StatusServiceUnavailable)
			return
		}
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, updateResponse{
		RunID:     handle.RunID.String(),
		SteamID:   handle.SteamID,
		Coalesced: coalesced,
	})
}

// QueueStatus reports queue depth and per-identity states.
func (h *Handlers) QueueStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := h.hunters.QueueStatus()
	writeJSON(w, http.StatusOK, map[string]any{
		"queued":     snapshot.Queued,
		"in_flight":  snapshot.InFlight,
		"identities": snapshot.Identities,
	})
}

// LockHunter sets the operator lock.
func (h *Handlers) LockHunter(w http.ResponseWriter, r *http.Request) {
	h.setLocked(w, r, true)
}

// UnlockHunter clears the operator lock.
func (h *Handlers) UnlockHunter(w http.ResponseWriter, r *http.Request) {
	h.setLocked(w, r, false)
}

func (h *Handlers) setLocked(w http.ResponseWriter, r *http.Request, locked bool) {
	if err := h.hunters.SetLocked(r.Context(), chi.URLParam(r, "identifier"), locked); err != nil {
		h.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LinkDiscord associates a discord account with a hunter.
func (h *Handlers) LinkDiscord(w http.ResponseWriter, r *http.Request) {
	var input linkDiscordRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, fmt.Sprintf("Failed to decode request body: %v", err), http.StatusBadRequest)
		return
	}
	if input.DiscordID == "" {
		http.Error(w, "discord_id is required", http.StatusBadRequest)
		return
	}

	hunter, err := h.hunters.LinkDiscord(r.Context(), chi.URLParam(r, "identifier"), input.DiscordID)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hunter)
}

// GetScoreboard returns a page of ranked hunters.
func (h *Handlers) GetScoreboard(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 25)
	offset := queryInt(r, "offset", 0)
	orderBy := r.URL.Query().Get("order_by")

	entries, err := h.hunters.Scoreboard(r.Context(), limit, offset, orderBy)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetRank returns a hunter's position.
func (h *Handlers) GetRank(w http.ResponseWriter, r *http.Request) {
	rank, err := h.hunters.Rank(r.Context(), chi.URLParam(r, "identifier"), r.URL.Query().Get("order_by"))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"rank": rank})
}

// GetAroundRank returns the hunters ranked immediately around the given one.
func (h *Handlers) GetAroundRank(w http.ResponseWriter, r *http.Request) {
	contextSize := queryInt(r, "context", 2)
	entries, rank, err := h.hunters.AroundRank(r.Context(), chi.URLParam(r, "identifier"), contextSize, r.URL.Query().Get("order_by"))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rank":    rank,
		"entries": entries,
	})
}

// GetRandomHunter returns a random hunter with a nonzero score.
func (h *Handlers) GetRandomHunter(w http.ResponseWriter, r *http.Request) {
	hunter, err := h.hunters.RandomHunter(r.Context())
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hunter)
}

// GetStats returns the API usage summary.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	summary, err := h.stats.Summary(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load statistics: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetDailyStats returns per-day API usage aggregates.
func (h *Handlers) GetDailyStats(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	stats, err := h.stats.Daily(r.Context(), days)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load statistics: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// serviceError maps application errors onto HTTP statuses.
func (h *Handlers) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hunterservice.ErrNotRegistered):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, hunterservice.ErrProfileNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, hunterservice.ErrAlreadyRegistered):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, hunterservice.ErrDiscordAlreadyLinked):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, hunterservice.ErrProfilePrivate):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, fmt.Sprintf("Internal error: %v", err), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode response: %v", err), http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
