// Package server exposes the HTTP decision surface: pending and
// declined candidates are listed, confirmed, declined, recovered, or
// purged over a JSON API, with lifecycle changes streamed to UI
// clients over a websocket.
package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nhle/inbox-calendar/internal/lifecycle"
	"github.com/nhle/inbox-calendar/internal/store"
)

// NewRouter configures the HTTP router over the coordinator and
// store. The hub is optional; nil disables the websocket endpoint.
func NewRouter(
	coord *lifecycle.Coordinator,
	st store.EventStore,
	hub *Hub,
) *mux.Router {
	h := &handlers{coord: coord, store: st}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", h.health).Methods("GET")
	api.HandleFunc("/scan", h.scan).Methods("POST")

	api.HandleFunc("/events/pending", h.listPending).Methods("GET")
	api.HandleFunc("/events/declined", h.listDeclined).Methods("GET")
	api.HandleFunc("/events/created", h.listCreated).Methods("GET")

	api.HandleFunc("/events/{id}/confirm", h.confirm).Methods("POST")
	api.HandleFunc("/events/{id}/decline", h.decline).Methods("POST")
	api.HandleFunc("/events/{id}/recover", h.recover).Methods("POST")
	api.HandleFunc("/events/{id}", h.purgeDeclined).Methods("DELETE")

	if hub != nil {
		api.HandleFunc("/ws", hub.HandleUpgrade).Methods("GET")
	}

	return r
}

// NewServer wraps the router in an http.Server bound to addr.
func NewServer(addr string, router *mux.Router) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: router,
	}
}
