package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dserban/dern/core/logger"
	"github.com/dserban/dern/internal/eventbus"
)

// NewStreamHandler adapts the event bus to server-sent events. Each event
// is one JSON envelope {kind, payload}. The subscription ends when the
// client disconnects; a disconnected or slow client never blocks anyone
// else because bus delivery is drop-on-full.
func NewStreamHandler(bus eventbus.EventBus, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		flusher.Flush()

		sub := bus.Subscribe()
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				b, err := json.Marshal(ev)
				if err != nil {
					log.Errorf("stream encode: %v", err)
					continue
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	})
}
