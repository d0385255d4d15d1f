package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vncsmyrnk/stv/internal/core/ports"
)

type BallotHandler struct {
	service ports.BallotService
	logger  *slog.Logger
}

func NewBallotHandler(service ports.BallotService, logger *slog.Logger) *BallotHandler {
	return &BallotHandler{
		service: service,
		logger:  logger,
	}
}

// ballotResponse is what a voter sees. It leaves out the owner and ids.
type ballotResponse struct {
	Name           string   `json:"name"`
	Candidates     []string `json:"candidates"`
	AvailableSeats int      `json:"available_seats"`
	Closed         bool     `json:"closed"`
	Voted          bool     `json:"voted"`
}

type voteRequest struct {
	Ranking []string `json:"ranking"`
}

func (h *BallotHandler) GetBallot(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Open(r.Context(), chi.URLParam(r, "endpoint"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, ballotResponse{
		Name:           view.Election.Name,
		Candidates:     view.Election.Candidates,
		AvailableSeats: view.Election.AvailableSeats,
		Closed:         view.Election.Closed,
		Voted:          view.Ballot.Voted,
	})
}

func (h *BallotHandler) Vote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.Vote(r.Context(), chi.URLParam(r, "endpoint"), req.Ranking); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}
