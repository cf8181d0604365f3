package gate

import (
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/session"
	"github.com/desertthunder/ytdash/internal/shared"
)

// Accessor resolves the session of a request. See [session.Manager.Lookup].
type Accessor interface {
	Lookup(r *http.Request) (*models.Session, error)
}

// AccessorFunc adapts a function to [Accessor].
type AccessorFunc func(r *http.Request) (*models.Session, error)

func (f AccessorFunc) Lookup(r *http.Request) (*models.Session, error) {
	return f(r)
}

// Options configures a [Gate]. Empty paths fall back to /login and /dashboard.
type Options struct {
	LoginPath string
	HomePath  string
	Logger    *log.Logger
	Metrics   *Metrics
}

// Gate runs the access decision for every request before the wrapped handler.
type Gate struct {
	accessor  Accessor
	routes    *Routes
	loginPath string
	homePath  string
	logger    *log.Logger
	metrics   *Metrics
}

// New creates a gate deciding with routes and looking sessions up through accessor.
func New(accessor Accessor, routes *Routes, opts Options) *Gate {
	if routes == nil {
		routes = DefaultRoutes()
	}
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	if opts.HomePath == "" {
		opts.HomePath = "/dashboard"
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &Gate{
		accessor:  accessor,
		routes:    routes,
		loginPath: opts.LoginPath,
		homePath:  opts.HomePath,
		logger:    shared.WithLogger(opts.Logger, "component", "gate"),
		metrics:   opts.Metrics,
	}
}

// LoginPath returns the redirect target for unauthenticated requests.
func (g *Gate) LoginPath() string { return g.loginPath }

// HomePath returns the redirect target for signed-in requests to public routes.
func (g *Gate) HomePath() string { return g.homePath }

// Handle wraps next. It has the shape of server.Middleware.
func (g *Gate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.routes.Excluded(r.URL.Path) {
			if g.metrics != nil {
				g.metrics.Bypassed.Inc()
			}
			next.ServeHTTP(w, r)
			return
		}

		decision, s := g.decide(r)

		switch decision {
		case RedirectToLogin:
			http.Redirect(w, r, g.loginPath, http.StatusFound)
		case RedirectToHome:
			http.Redirect(w, r, g.homePath, http.StatusFound)
		default:
			NoCache(w.Header())
			if s != nil {
				r = r.WithContext(session.WithSession(r.Context(), s))
			}
			next.ServeHTTP(w, r)
		}
	})
}

// decide performs the lookup and decision for r. A panic anywhere in here
// becomes RedirectToLogin.
func (g *Gate) decide(r *http.Request) (decision Decision, s *models.Session) {
	defer func() {
		if p := recover(); p != nil {
			g.logger.Error("recovered panic in gate", "path", r.URL.Path, "panic", p)
			if g.metrics != nil {
				g.metrics.Panics.Inc()
			}
			decision, s = RedirectToLogin, nil
		}
	}()

	start := time.Now()
	found, err := g.accessor.Lookup(r)
	if g.metrics != nil {
		g.metrics.LookupDuration.Observe(time.Since(start).Seconds())
	}

	class := g.routes.Classify(r.URL.Path)
	decision, reason := evaluate(SessionResult{Session: found, Err: err}, class)

	if err != nil {
		g.logger.Warn("session lookup failed", "path", r.URL.Path, "class", class, "decision", decision, "error", err)
		found = nil
	} else {
		g.logger.Debug("gate", "path", r.URL.Path, "class", class, "decision", decision, "reason", reason)
	}

	if g.metrics != nil {
		g.metrics.Decisions.WithLabelValues(class.String(), decision.String(), reason).Inc()
	}

	return decision, found
}

// NoCache sets the headers that keep authenticated responses out of caches.
func NoCache(h http.Header) {
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}
