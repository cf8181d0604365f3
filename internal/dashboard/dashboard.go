package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdash/internal/gate"
	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/services"
	"github.com/desertthunder/ytdash/internal/session"
	"github.com/desertthunder/ytdash/internal/shared"
)

// Sessions is the part of [session.Manager] a dashboard needs.
type Sessions interface {
	Get(ctx context.Context, sid string) (*models.Session, error)
	Refresh(ctx context.Context, sid string) (*models.Session, error)
	SignOut(ctx context.Context, w http.ResponseWriter, sid string) error
	Subscribe(sid string) *session.Subscription
}

// State is what a dashboard shows after an update.
type State struct {
	Feed      *models.Feed
	Err       error // retryable content failure, shown inline
	SignedOut bool
	Redirect  string
	UpdatedAt time.Time
}

// Retryable reports whether the state carries an error the user can retry.
func (s State) Retryable() bool {
	return s.Err != nil && !s.SignedOut
}

// Options configures a [Dashboard].
type Options struct {
	LoginPath       string
	RefreshInterval time.Duration
	Logger          *log.Logger
}

// Dashboard owns one session handle and keeps the feed for it current.
//
// The handle is dropped as soon as re-evaluation fails. Once signed out a
// dashboard stays signed out.
type Dashboard struct {
	sessions  Sessions
	content   services.ContentService
	loginPath string
	interval  time.Duration
	logger    *log.Logger

	mu    sync.Mutex
	sess  *models.Session
	sub   *session.Subscription
	state State
}

// New creates a dashboard for s, subscribing to its changes.
func New(sessions Sessions, content services.ContentService, s *models.Session, opts Options) *Dashboard {
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	d := &Dashboard{
		sessions:  sessions,
		content:   content,
		loginPath: opts.LoginPath,
		interval:  opts.RefreshInterval,
		logger:    shared.WithLogger(opts.Logger, "component", "dashboard"),
	}

	if s != nil {
		d.sess = s.Clone()
		d.sub = sessions.Subscribe(s.ID)
	} else {
		d.state = d.signedOutState(nil)
	}
	return d
}

// Session returns a copy of the current handle, or nil after sign-out.
func (d *Dashboard) Session() *models.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sess.Clone()
}

// State returns the last computed state.
func (d *Dashboard) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Load re-evaluates the session and fetches the feed.
func (d *Dashboard) Load(ctx context.Context) State {
	sid, ok := d.sessionID()
	if !ok {
		return d.State()
	}

	current, err := d.sessions.Get(ctx, sid)
	if err != nil {
		d.logger.Warn("session lookup failed", "error", err)
		return d.reset(err)
	}
	if current == nil {
		return d.reset(nil)
	}

	d.mu.Lock()
	if d.sess == nil {
		d.mu.Unlock()
		return d.State()
	}
	d.sess = current.Clone()
	d.mu.Unlock()

	if gate.Reevaluate(current) != gate.Allow {
		return d.signOut(ctx, shared.ErrMissingProviderToken)
	}

	feed, err := d.content.Feed(ctx, current.ProviderToken)
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		d.logger.Warn("content API rejected token, signing out", "error", err)
		return d.signOut(ctx, fmt.Errorf("%w: %w", shared.ErrMissingProviderToken, err))
	case err != nil:
		d.logger.Error("failed to fetch feed", "error", err)
		d.mu.Lock()
		prev := d.state
		d.mu.Unlock()
		return d.setState(State{Feed: prev.Feed, Err: err, UpdatedAt: prev.UpdatedAt})
	}

	d.logger.Debug("feed loaded", "channel", feed.Channel.ID, "videos", len(feed.Videos))
	return d.setState(State{Feed: feed, UpdatedAt: feed.FetchedAt})
}

// Retry repeats a failed load.
func (d *Dashboard) Retry(ctx context.Context) State {
	return d.Load(ctx)
}

// RefreshSession forces a token refresh and then reloads the feed.
func (d *Dashboard) RefreshSession(ctx context.Context) State {
	sid, ok := d.sessionID()
	if !ok {
		return d.State()
	}

	if _, err := d.sessions.Refresh(ctx, sid); err != nil {
		d.logger.Warn("manual refresh failed", "error", err)
		if errors.Is(err, shared.ErrSessionLookup) {
			return d.reset(err)
		}
	}
	return d.Load(ctx)
}

// Apply re-evaluates a session state pushed by the manager. A nil state means
// the session was signed out elsewhere.
func (d *Dashboard) Apply(ctx context.Context, s *models.Session) State {
	d.mu.Lock()
	if d.sess == nil {
		d.mu.Unlock()
		return d.State()
	}
	if s != nil {
		d.sess = s.Clone()
	}
	d.mu.Unlock()

	if s == nil {
		return d.reset(nil)
	}
	if gate.Reevaluate(s) != gate.Allow {
		return d.signOut(ctx, shared.ErrMissingProviderToken)
	}
	return d.State()
}

// Run processes session notifications in arrival order and reloads the feed
// every refresh interval, sending each new state to updates. The current
// session is re-evaluated first, so an unusable one is signed out before any
// notification arrives. It returns once the dashboard is signed out, closed or
// ctx is done.
func (d *Dashboard) Run(ctx context.Context, updates chan<- State) error {
	d.mu.Lock()
	sub, sess, signedOut := d.sub, d.sess.Clone(), d.state.SignedOut
	d.mu.Unlock()
	if sub == nil {
		if sess == nil || signedOut {
			return shared.ErrNotAuthenticated
		}
		// closed before the loop started
		return nil
	}

	if gate.Reevaluate(sess) != gate.Allow {
		state := d.signOut(ctx, shared.ErrMissingProviderToken)
		select {
		case updates <- state:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}

	var tick <-chan time.Time
	if d.interval > 0 {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		var state State
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-sub.C():
			if !ok {
				// closed by Close or by a sign-out in another call
				state = d.State()
				if !state.SignedOut {
					return nil
				}
				break
			}
			state = d.Apply(ctx, s)
		case <-tick:
			state = d.Load(ctx)
		}

		select {
		case updates <- state:
		case <-ctx.Done():
			return ctx.Err()
		}

		if state.SignedOut {
			return nil
		}
	}
}

// Close releases the subscription without signing out.
func (d *Dashboard) Close() {
	d.mu.Lock()
	sub := d.sub
	d.sub = nil
	d.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func (d *Dashboard) sessionID() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sess == nil {
		return "", false
	}
	return d.sess.ID, true
}

func (d *Dashboard) setState(s State) State {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s
	return s
}

func (d *Dashboard) signedOutState(err error) State {
	return State{SignedOut: true, Redirect: d.loginPath, Err: err}
}

// signOut ends the session with the accessor and resets the handle.
func (d *Dashboard) signOut(ctx context.Context, reason error) State {
	d.mu.Lock()
	sess, sub := d.sess, d.sub
	d.sess, d.sub = nil, nil
	d.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if sess != nil {
		if err := d.sessions.SignOut(ctx, nil, sess.ID); err != nil {
			d.logger.Error("sign out failed", "error", err)
		}
	}

	d.logger.Info("signed out", "reason", reason)
	return d.setState(d.signedOutState(reason))
}

// reset drops the handle without contacting the accessor.
func (d *Dashboard) reset(reason error) State {
	d.mu.Lock()
	sub := d.sub
	d.sess, d.sub = nil, nil
	d.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	return d.setState(d.signedOutState(reason))
}
