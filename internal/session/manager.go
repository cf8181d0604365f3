package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/shared"
	"golang.org/x/oauth2"
)

const DefaultCookieName = "ytdash_session"

// Options configures a [Manager].
type Options struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Secure     bool
	Logger     *log.Logger
}

// OptionsFromConfig builds manager options from the [session] config section.
func OptionsFromConfig(cfg *shared.Config, logger *log.Logger) Options {
	return Options{
		Secret:     cfg.Session.Secret,
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.SessionTTL(),
		Secure:     cfg.Session.Secure,
		Logger:     logger,
	}
}

// Manager looks up, creates, refreshes and signs out sessions.
type Manager struct {
	backend    Backend
	provider   Provider
	codec      *Codec
	cookieName string
	ttl        time.Duration
	secure     bool
	logger     *log.Logger
	hub        *hub
}

// NewManager creates a manager storing sessions in backend and refreshing tokens through provider.
func NewManager(backend Backend, provider Provider, opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &Manager{
		backend:    backend,
		provider:   provider,
		codec:      NewCodec(opts.Secret, opts.TTL),
		cookieName: opts.CookieName,
		ttl:        opts.TTL,
		secure:     opts.Secure,
		logger:     shared.WithLogger(opts.Logger, "component", "session"),
		hub:        newHub(),
	}
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Lookup resolves the session cookie of r.
//
// It returns (nil, nil) when the request carries no live session and a
// non-nil error when the outcome cannot be known.
func (m *Manager) Lookup(r *http.Request) (*models.Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if errors.Is(err, http.ErrNoCookie) || (err == nil && cookie.Value == "") {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrMalformedSession, err)
	}

	sid, err := m.codec.Decode(cookie.Value)
	if err != nil {
		return nil, err
	}
	if sid == "" {
		return nil, nil
	}

	return m.Get(r.Context(), sid)
}

// Get loads the session sid, refreshing its access token once if it has expired.
func (m *Manager) Get(ctx context.Context, sid string) (*models.Session, error) {
	s, err := m.backend.Get(ctx, sid)
	if errors.Is(err, shared.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrSessionLookup, err)
	}

	if !s.HasProviderToken() || s.RefreshToken == "" || s.Token().Valid() {
		return s, nil
	}

	m.logger.Debug("access token expired, refreshing", "sequence", s.Sequence)
	return m.refresh(ctx, s)
}

// Refresh forces a token refresh for sid, used by the manual refresh action.
func (m *Manager) Refresh(ctx context.Context, sid string) (*models.Session, error) {
	s, err := m.backend.Get(ctx, sid)
	if errors.Is(err, shared.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrSessionLookup, err)
	}
	if s.RefreshToken == "" {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, shared.ErrNoRefreshToken)
	}
	return m.refresh(ctx, s)
}

// refresh makes exactly one refresh attempt. A rejected grant clears the
// provider token and notifies subscribers before the error is returned.
func (m *Manager) refresh(ctx context.Context, s *models.Session) (*models.Session, error) {
	token, err := m.provider.Refresh(ctx, s.Token())
	if err != nil {
		if grantRevoked(err) {
			m.logger.Warn("refresh grant rejected, clearing provider token", "sequence", s.Sequence, "error", err)
			s.ClearProviderToken()
			if uerr := m.backend.Update(ctx, s); uerr != nil {
				m.logger.Error("failed to persist cleared token", "sequence", s.Sequence, "error", uerr)
			}
			m.hub.publish(s.ID, s)
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	s.ApplyToken(token)
	if err := m.backend.Update(ctx, s); err != nil {
		m.logger.Warn("failed to persist refreshed token", "sequence", s.Sequence, "error", err)
	}

	m.logger.Debug("access token refreshed", "sequence", s.Sequence, "token", shared.MaskToken(s.ProviderToken))
	m.hub.publish(s.ID, s)
	return s, nil
}

// Create stores a new session for the token owner.
func (m *Manager) Create(ctx context.Context, info *UserInfo, token *oauth2.Token) (*models.Session, error) {
	if info == nil || info.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", shared.ErrAuthFailed)
	}

	s := models.NewSession(info.Subject, info.Email, token, m.ttl)
	if err := m.backend.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	m.logger.Info("session created", "sequence", s.Sequence, "email", s.Email)
	return s, nil
}

// WriteCookie sets the signed session cookie for s on w.
func (m *Manager) WriteCookie(w http.ResponseWriter, s *models.Session) error {
	value, err := m.codec.Encode(s.ID)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie expires the session cookie on w.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SignOut deletes the session sid and tells its subscribers. w may be nil
// when there is no cookie to clear.
func (m *Manager) SignOut(ctx context.Context, w http.ResponseWriter, sid string) error {
	if w != nil {
		m.ClearCookie(w)
	}
	if sid == "" {
		return nil
	}

	err := m.backend.Delete(ctx, sid)
	m.hub.publish(sid, nil)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	m.logger.Info("session signed out")
	return nil
}

// Subscribe watches the session sid for changes.
func (m *Manager) Subscribe(sid string) *Subscription {
	return m.hub.subscribe(sid)
}

// grantRevoked reports whether the token endpoint rejected the refresh token
// itself, as opposed to failing transiently.
func grantRevoked(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return false
	}
	if retrieveErr.ErrorCode == "invalid_grant" {
		return true
	}
	if retrieveErr.Response == nil {
		return false
	}
	switch retrieveErr.Response.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized:
		return true
	}
	return false
}
