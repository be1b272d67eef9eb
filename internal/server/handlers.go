package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nhle/inbox-calendar/internal/lifecycle"
	"github.com/nhle/inbox-calendar/internal/model"
	"github.com/nhle/inbox-calendar/internal/store"
)

// handlers holds the dependencies shared by all endpoints.
type handlers struct {
	coord *lifecycle.Coordinator
	store store.EventStore
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// scan triggers an immediate polling cycle and reports its stats.
func (h *handlers) scan(w http.ResponseWriter, r *http.Request) {
	stats, err := h.coord.RunCycle(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *handlers) listPending(w http.ResponseWriter, r *http.Request) {
	cands, err := h.store.ListPending(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, candidateList(cands))
}

func (h *handlers) listDeclined(w http.ResponseWriter, r *http.Request) {
	cands, err := h.store.ListDeclined(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, candidateList(cands))
}

func (h *handlers) listCreated(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.ListCreated(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if events == nil {
		events = []model.CreatedEvent{}
	}
	respondJSON(w, http.StatusOK, events)
}

// confirm accepts a pending candidate and commits it to the calendar.
func (h *handlers) confirm(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ref, err := h.coord.Accept(r.Context(), id)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "confirmed",
		"calendar_ref": ref,
	})
}

func (h *handlers) decline(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.coord.Decline(r.Context(), id); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "declined"})
}

func (h *handlers) recover(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.coord.Recover(r.Context(), id); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "pending"})
}

func (h *handlers) purgeDeclined(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.coord.PurgeDeclined(r.Context(), id); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// candidateList normalizes a nil slice to an empty JSON array.
func candidateList(cands []model.EventCandidate) []model.EventCandidate {
	if cands == nil {
		return []model.EventCandidate{}
	}
	return cands
}

// statusFor maps store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case store.IsNotFound(err):
		return http.StatusNotFound
	case store.IsDuplicate(err):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, errorResponse{Error: err.Error()})
}
