package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/ytdash/internal/dashboard"
)

type sessionEvent struct {
	SignedIn  bool      `json:"signedIn"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
	Error     string    `json:"error,omitempty"`
}

type signOutEvent struct {
	Redirect string `json:"redirect"`
}

// Events streams dashboard state as server-sent events until the session is
// signed out or the client goes away.
//
//	event: session   the session changed and is still usable
//	event: feed      a periodic refresh loaded a new feed
//	event: signout   re-evaluation failed; data carries the login path
func (s *Server) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	d, ok := s.open(w, r)
	if !ok {
		return
	}
	defer d.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates := make(chan dashboard.State)
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, updates) }()

	var lastFeed time.Time
	for {
		select {
		case <-done:
			return
		case st := <-updates:
			if err := writeState(w, st, &lastFeed); err != nil {
				s.logger.Debug("event stream closed", "error", err)
				cancel()
				<-done
				return
			}
			flusher.Flush()
			if st.SignedOut {
				<-done
				return
			}
		}
	}
}

func writeState(w http.ResponseWriter, st dashboard.State, lastFeed *time.Time) error {
	switch {
	case st.SignedOut:
		return writeEvent(w, "signout", signOutEvent{Redirect: st.Redirect})
	case st.Feed != nil && st.UpdatedAt.After(*lastFeed) && st.Err == nil:
		*lastFeed = st.UpdatedAt
		return writeEvent(w, "feed", sessionEvent{SignedIn: true, UpdatedAt: st.UpdatedAt})
	default:
		ev := sessionEvent{SignedIn: true, UpdatedAt: st.UpdatedAt}
		if st.Err != nil {
			ev.Error = describe(st.Err)
		}
		return writeEvent(w, "session", ev)
	}
}

func writeEvent(w http.ResponseWriter, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
