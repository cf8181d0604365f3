package models

import (
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// Session is an authenticated identity established by the OAuth callback.
type Session struct {
	ID            string    `json:"id"`
	Sequence      int       `json:"sequence"`
	Subject       string    `json:"subject"`
	Email         string    `json:"email"`
	ProviderToken string    `json:"provider_token,omitempty"`
	RefreshToken  string    `json:"refresh_token,omitempty"`
	TokenType     string    `json:"token_type,omitempty"`
	TokenExpiry   time.Time `json:"token_expiry"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// NewSession creates a session for subject from a freshly exchanged token, valid for ttl.
func NewSession(subject, email string, token *oauth2.Token, ttl time.Duration) *Session {
	now := time.Now().UTC()
	s := &Session{
		Subject:   subject,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	s.ApplyToken(token)
	return s
}

// HasProviderToken reports whether the session carries an access token usable against the content API.
func (s *Session) HasProviderToken() bool {
	return s != nil && s.ProviderToken != ""
}

// Expired reports whether the session lifetime has elapsed at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Token returns the stored credentials as an [oauth2.Token].
func (s *Session) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.ProviderToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		Expiry:       s.TokenExpiry,
	}
}

// ApplyToken copies token into the session. A refresh response without a
// refresh token keeps the one already stored.
func (s *Session) ApplyToken(token *oauth2.Token) {
	if token == nil {
		return
	}
	s.ProviderToken = token.AccessToken
	s.TokenType = token.TokenType
	s.TokenExpiry = token.Expiry.UTC()
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	s.UpdatedAt = time.Now().UTC()
}

// ClearProviderToken drops the access and refresh tokens, leaving a session
// that exists but can no longer reach the content API.
func (s *Session) ClearProviderToken() {
	s.ProviderToken = ""
	s.RefreshToken = ""
	s.TokenExpiry = time.Time{}
	s.UpdatedAt = time.Now().UTC()
}

// Clone returns a copy safe to hand to another goroutine.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Validate checks the fields every stored session must have.
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	if s.Subject == "" {
		return errors.New("session subject is required")
	}
	if s.ExpiresAt.IsZero() {
		return errors.New("session expiry is required")
	}
	return nil
}
