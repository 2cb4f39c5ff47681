package hunterrouter

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	hunterhandlers "github.com/achievement-hunters/hunter-bot/app/modules/hunter/infrastructure/handlers"
)

// New assembles the HTTP API: hunter registration and lookups, score update
// requests, scoreboard queries, and telemetry read-backs.
func New(h *hunterhandlers.Handlers, requestsPerSecond float64, burst int) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(hunterhandlers.RateLimitMiddleware(hunterhandlers.NewIPRateLimiter(rate.Limit(requestsPerSecond), burst)))

	r.Route("/hunters", func(r chi.Router) {
		r.Post("/", h.RegisterHunter)
		r.Get("/random", h.GetRandomHunter)
		r.Route("/{identifier}", func(r chi.Router) {
			r.Get("/", h.GetHunter)
			r.Post("/update", h.RequestUpdate)
			r.Post("/discord", h.LinkDiscord)
			r.Get("/rank", h.GetRank)
			r.Get("/around", h.GetAroundRank)
			// Lock endpoints are operator tools and take the canonical
			// steam id; no identifier resolution happens.
			r.Post("/lock", h.LockHunter)
			r.Delete("/lock", h.UnlockHunter)
		})
	})

	r.Get("/queue", h.QueueStatus)
	r.Get("/scoreboard", h.GetScoreboard)

	r.Route("/stats", func(r chi.Router) {
		r.Get("/", h.GetStats)
		r.Get("/daily", h.GetDailyStats)
	})

	return r
}
