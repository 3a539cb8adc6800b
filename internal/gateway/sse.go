package gateway

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const sseHeartbeatEvery = 15 * time.Second

// handleEvents streams session events as server-sent events. The stream
// opens with a snapshot of the current state so a reconnecting client
// never misses where the pipeline stands.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, cancel := h.session.Watch()
	defer cancel()

	snapshot := h.session.Result()
	writeSSE(w, map[string]any{
		"type":   "state",
		"state":  h.session.State(),
		"result": snapshot,
	})
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeatEvery)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("sse encode: %v", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", b)
}
