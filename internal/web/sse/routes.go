package sse

import (
	"github.com/go-chi/chi/v5"

	"github.com/hugo-lorenzo-mato/autorun/internal/events"
)

// RegisterRoutes mounts the stream at /events on r.
func RegisterRoutes(r chi.Router, bus *events.EventBus) *Handler {
	h := NewHandler(bus)
	r.Get("/events", h.ServeHTTP)
	return h
}
