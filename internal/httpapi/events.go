package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// handleEvents streams appended turns as server-sent events. Each event is
// named "turn" with the turn JSON as data. The stream ends when the client
// disconnects.
func handleEvents(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			httpError(w, http.StatusInternalServerError, "api_error", "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		turns, cancel := deps.Store.Subscribe()
		defer cancel()

		for {
			select {
			case <-r.Context().Done():
				return
			case turn, open := <-turns:
				if !open {
					return
				}
				data, err := json.Marshal(turn)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: turn\ndata: %s\n\n", data)
				flusher.Flush()
			}
		}
	}
}
