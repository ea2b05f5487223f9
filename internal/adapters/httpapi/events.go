package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/w2w-movies/w2w/internal/ports"
)

const sseHeartbeat = 15 * time.Second

type topicSubscriber interface {
	SubscribeTopics(prefixes ...string) (<-chan ports.Event, func())
}

// handleEvents relaie le bus en Server-Sent Events.
// ?topics=feed.,search. restreint les topics reçus.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	if s.svc.Bus == nil {
		http.Error(w, "events unavailable", http.StatusServiceUnavailable)
		return
	}

	var prefixes []string
	for _, p := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	var (
		events <-chan ports.Event
		cancel func()
	)
	if ts, ok := s.svc.Bus.(topicSubscriber); ok {
		events, cancel = ts.SubscribeTopics(prefixes...)
	} else {
		events, cancel = s.svc.Bus.Subscribe()
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	fmt.Fprintf(w, "event: hello\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			data := evt.Payload
			if len(data) == 0 {
				data = []byte("{}")
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Topic, data)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}
