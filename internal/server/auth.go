package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdash/internal/gate"
	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/session"
	"github.com/desertthunder/ytdash/internal/shared"
	"golang.org/x/oauth2"
)

// StateCookieName holds the OAuth state between the start and callback requests.
const StateCookieName = "ytdash_oauth_state"

// Sessions is the part of [session.Manager] the auth handlers write to.
type Sessions interface {
	Create(ctx context.Context, info *session.UserInfo, token *oauth2.Token) (*models.Session, error)
	WriteCookie(w http.ResponseWriter, s *models.Session) error
	SignOut(ctx context.Context, w http.ResponseWriter, sid string) error
}

// AuthOptions configures an [AuthHandler]. Empty paths use the gate defaults.
type AuthOptions struct {
	StartPath    string
	CallbackPath string
	SignOutPath  string
	LoginPath    string
	HomePath     string
	Secure       bool
	Logger       *log.Logger
}

// AuthHandler serves the browser sign-in flow: start, callback and sign-out.
type AuthHandler struct {
	provider session.Provider
	sessions Sessions
	opts     AuthOptions
	logger   *log.Logger
}

// NewAuthHandler creates the web OAuth handler.
func NewAuthHandler(provider session.Provider, sessions Sessions, opts AuthOptions) *AuthHandler {
	if opts.StartPath == "" {
		opts.StartPath = "/auth/google"
	}
	if opts.CallbackPath == "" {
		opts.CallbackPath = "/auth/callback"
	}
	if opts.SignOutPath == "" {
		opts.SignOutPath = "/auth/signout"
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

	return &AuthHandler{
		provider: provider,
		sessions: sessions,
		opts:     opts,
		logger:   shared.WithLogger(opts.Logger, "component", "auth"),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{h.opts.StartPath, h.opts.CallbackPath, h.opts.SignOutPath}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case h.opts.StartPath:
		h.only(http.MethodGet, h.Start)(w, r)
	case h.opts.CallbackPath:
		h.only(http.MethodGet, h.Callback)(w, r)
	case h.opts.SignOutPath:
		h.only(http.MethodPost, h.SignOut)(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *AuthHandler) only(method string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowed(method, r.Method) {
			w.Header().Set("Allow", method)
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fn(w, r)
	}
}

// Start stores a fresh state in a short-lived cookie and redirects to the consent page.
func (h *AuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	state, err := shared.GenerateState()
	if err != nil {
		h.logger.Error("failed to generate state", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// Callback completes sign-in. Every failure sends the browser back to the
// login page; a callback without a code goes home and lets the gate decide.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	h.clearState(w)

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Warn("authorization denied", "error", errParam, "description", query.Get("error_description"))
		h.redirect(w, r, h.opts.LoginPath)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.redirect(w, r, h.opts.HomePath)
		return
	}

	cookie, err := r.Cookie(StateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != query.Get("state") {
		h.logger.Warn("callback rejected", "error", shared.ErrInvalidState)
		h.redirect(w, r, h.opts.LoginPath)
		return
	}

	ctx := r.Context()
	token, err := h.provider.Exchange(ctx, code)
	if err != nil {
		h.logger.Warn("code exchange failed", "error", err)
		h.redirect(w, r, h.opts.LoginPath)
		return
	}

	info, err := h.provider.UserInfo(ctx, token)
	if err != nil {
		h.logger.Warn("userinfo lookup failed", "error", err)
		h.redirect(w, r, h.opts.LoginPath)
		return
	}

	s, err := h.sessions.Create(ctx, info, token)
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		h.redirect(w, r, h.opts.LoginPath)
		return
	}

	if err := h.sessions.WriteCookie(w, s); err != nil {
		h.logger.Error("failed to write session cookie", "error", err)
		h.redirect(w, r, h.opts.LoginPath)
		return
	}

	h.redirect(w, r, h.opts.HomePath)
}

// SignOut ends the request's session and redirects to the login page.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	var sid string
	if s, ok := session.FromContext(r.Context()); ok {
		sid = s.ID
	}

	if err := h.sessions.SignOut(r.Context(), w, sid); err != nil {
		h.logger.Error("sign out failed", "error", err)
	}
	h.redirect(w, r, h.opts.LoginPath)
}

func (h *AuthHandler) redirect(w http.ResponseWriter, r *http.Request, path string) {
	gate.NoCache(w.Header())
	http.Redirect(w, r, path, http.StatusFound)
}

func (h *AuthHandler) clearState(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
