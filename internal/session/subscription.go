package session

import (
	"sync"

	"github.com/desertthunder/ytdash/internal/models"
)

// Subscription receives the state of one session each time it changes.
//
// A nil value means the session was signed out. The channel holds at most one
// pending state; a newer state replaces one that has not been received yet.
type Subscription struct {
	sid  string
	ch   chan *models.Session
	hub  *hub
	once sync.Once
}

// C returns the channel delivering session states. It is closed by [Subscription.Unsubscribe].
func (s *Subscription) C() <-chan *models.Session {
	return s.ch
}

// SessionID returns the id of the session being watched.
func (s *Subscription) SessionID() string {
	return s.sid
}

// Unsubscribe stops delivery and closes the channel. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

type hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[*Subscription]struct{})}
}

func (h *hub) subscribe(sid string) *Subscription {
	sub := &Subscription{sid: sid, ch: make(chan *models.Session, 1), hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[sid] == nil {
		h.subs[sid] = make(map[*Subscription]struct{})
	}
	h.subs[sid][sub] = struct{}{}
	return sub
}

func (h *hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[sub.sid]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.sid)
		}
	}
	close(sub.ch)
}

// publish hands s to every subscriber of sid without blocking. Each
// subscriber gets its own copy.
func (h *hub) publish(sid string, s *models.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[sid] {
		state := s.Clone()
		select {
		case sub.ch <- state:
			continue
		default:
		}

		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- state
	}
}

func (h *hub) count(sid string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sid])
}
