// Package sse streams event bus traffic to HTTP clients as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/autorun/internal/events"
)

// Handler streams events from the EventBus to connected SSE clients.
type Handler struct {
	bus           *events.EventBus
	mu            sync.RWMutex
	clients       map[*client]struct{}
	heartbeatFreq time.Duration
	seq           uint64
}

type client struct {
	id     string
	done   chan struct{}
	topic  string // optional filter by topic id
	closed bool
}

// NewHandler creates a new SSE handler connected to the given EventBus.
func NewHandler(bus *events.EventBus) *Handler {
	return &Handler{
		bus:           bus,
		clients:       make(map[*client]struct{}),
		heartbeatFreq: 30 * time.Second,
	}
}

// SetHeartbeatFrequency sets the interval between heartbeat comments.
func (h *Handler) SetHeartbeatFrequency(d time.Duration) {
	h.heartbeatFreq = d
}

// ServeHTTP implements http.Handler. Query parameters: topic filters by
// topic id, types is a comma-separated list of event types.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	var types []string
	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}
	c := h.addClient(r.URL.Query().Get("topic"))
	defer h.removeClient(c)

	// regular subscription: a slow client loses old events instead of
	// blocking the control loop
	eventCh := h.bus.Subscribe(types...)
	defer h.bus.Unsubscribe(eventCh)

	h.sendEvent(w, flusher, "connected", map[string]string{
		"client_id": c.id,
		"topic":     c.topic,
	})

	heartbeat := time.NewTicker(h.heartbeatFreq)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			if c.topic != "" && event.TopicID() != c.topic {
				continue
			}
			h.sendEvent(w, flusher, event.EventType(), event)
		}
	}
}

func (h *Handler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, jsonData)
	flusher.Flush()
}

func (h *Handler) addClient(topic string) *client {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	c := &client{
		id:    fmt.Sprintf("%d-%d", time.Now().UnixNano(), h.seq),
		done:  make(chan struct{}),
		topic: topic,
	}
	h.clients[c] = struct{}{}
	return c
}

func (h *Handler) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

// ClientCount returns the number of connected clients.
func (h *Handler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects all clients.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if !c.closed {
			c.closed = true
			close(c.done)
		}
	}
	h.clients = make(map[*client]struct{})
}
