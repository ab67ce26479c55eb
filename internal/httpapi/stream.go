package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Stream pushes assignment transition events to the subscriber as
// Server-Sent Events. Frames are named `event: assignment` and carry
// the assignment id as the SSE event id so dashboards can correlate
// frames with the rows they already display.
func (a *API) Stream(w http.ResponseWriter, r *http.Request) {
	if a.stream == nil {
		http.Error(w, "streaming disabled", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := a.stream.Subscribe(r.Context())

	// The preamble reaches the client before any transition happens,
	// confirming the subscription is live.
	_, _ = fmt.Fprint(w, "retry: 5000\n: assignment transitions\n\n")
	flusher.Flush()

	for event := range ch {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "id: %s\nevent: assignment\ndata: %s\n\n", event.AssignmentID, payload)
		flusher.Flush()
	}
}
