package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

type RouterConfig struct {
	JWTSecret      []byte
	AllowedOrigins []string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

func NewHandler(cfg RouterConfig, pollHandler *PollHandler, voteHandler *VoteHandler, resultsHandler *ResultsHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", InviteeTokenHeader},
		AllowCredentials: true,
	}).Handler)

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	organizer := OrganizerAuth(cfg.JWTSecret)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("welcome"))
		})

		r.Route("/polls", func(r chi.Router) {
			r.With(organizer).Post("/", pollHandler.CreatePoll)
			r.Get("/{id}", pollHandler.GetPoll)
			r.With(organizer).Patch("/{id}/settings", pollHandler.UpdateSettings)
			r.Put("/{id}/votes", voteHandler.CastVote)
			r.Get("/{id}/results", resultsHandler.GetResults)
		})
	})

	return r
}
