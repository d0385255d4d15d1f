package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vncsmyrnk/stv/internal/core/endpoint"
	"github.com/vncsmyrnk/stv/internal/core/ports"
)

type Handlers struct {
	Auth      *AuthHandler
	Elections *ElectionHandler
	Ballots   *BallotHandler
	// Metrics is served on /metrics when set.
	Metrics http.Handler
}

func NewHandler(h Handlers, authService ports.AuthService, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.With(RequireAccount(authService, logger)).Post("/revoke", h.Auth.Revoke)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireAccount(authService, logger))
		r.Get("/me", h.Auth.Me)

		r.Route("/elections", func(r chi.Router) {
			r.Post("/", h.Elections.CreateElection)
			r.Get("/", h.Elections.ListElections)
			r.Get("/{id}", h.Elections.GetElection)
			r.Post("/{id}/close", h.Elections.CloseElection)
			r.Get("/{id}/results", h.Elections.GetResults)
		})
	})

	ballot := "/ballots/{endpoint:" + endpoint.Pattern + "}"
	r.Get(ballot, h.Ballots.GetBallot)
	r.Post(ballot, h.Ballots.Vote)

	return r
}
