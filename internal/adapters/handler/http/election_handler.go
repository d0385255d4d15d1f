package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/stv/internal/core/domain"
	"github.com/vncsmyrnk/stv/internal/core/ports"
)

type ElectionHandler struct {
	service ports.ElectionService
	logger  *slog.Logger
}

func NewElectionHandler(service ports.ElectionService, logger *slog.Logger) *ElectionHandler {
	return &ElectionHandler{
		service: service,
		logger:  logger,
	}
}

type createElectionRequest struct {
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Candidates     []string `json:"candidates"`
	AvailableSeats int      `json:"available_seats"`
	Voters         []string `json:"voters"`
}

type createElectionResponse struct {
	Election *domain.Election      `json:"election"`
	Dispatch *ports.DispatchReport `json:"dispatch"`
}

func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	owner, ok := accountID(r)
	if !ok {
		http.Error(w, "missing account context", http.StatusUnauthorized)
		return
	}

	var req createElectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	election, report, err := h.service.Create(r.Context(), ports.CreateElectionInput{
		OwnerID:    owner,
		Name:       req.Name,
		Type:       domain.ElectionType(req.Type),
		Candidates: req.Candidates,
		Seats:      req.AvailableSeats,
		Voters:     req.Voters,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, createElectionResponse{Election: election, Dispatch: report})
}

func (h *ElectionHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	owner, ok := accountID(r)
	if !ok {
		http.Error(w, "missing account context", http.StatusUnauthorized)
		return
	}

	elections, err := h.service.ListForOwner(r.Context(), owner)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, elections)
}

func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := h.params(w, r)
	if !ok {
		return
	}

	details, err := h.service.Get(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *ElectionHandler) CloseElection(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := h.params(w, r)
	if !ok {
		return
	}

	election, err := h.service.Close(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, election)
}

func (h *ElectionHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := h.params(w, r)
	if !ok {
		return
	}

	result, err := h.service.Results(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ElectionHandler) params(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	owner, ok := accountID(r)
	if !ok {
		http.Error(w, "missing account context", http.StatusUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid election id", http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}
	return owner, id, true
}
