package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/desertthunder/ytdash/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	youtubeReadOnly   = "https://www.googleapis.com/auth/youtube.readonly"
)

// UserInfo is the identity returned by the provider after a code exchange.
type UserInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// Provider is the OAuth identity provider.
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	UserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error)
	Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
}

// OAuthProvider implements [Provider] with an [oauth2.Config].
type OAuthProvider struct {
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewGoogleProvider creates a provider for Google sign-in with read-only YouTube access.
func NewGoogleProvider(creds shared.GoogleConfig) *OAuthProvider {
	return NewOAuthProvider(&oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       []string{"openid", "email", youtubeReadOnly},
		Endpoint:     google.Endpoint,
	}, googleUserInfoURL, nil)
}

// NewOAuthProvider creates a provider from an arbitrary config. A nil client uses [http.DefaultClient].
func NewOAuthProvider(config *oauth2.Config, userInfoURL string, client *http.Client) *OAuthProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &OAuthProvider{config: config, userInfoURL: userInfoURL, httpClient: client}
}

// Config returns the underlying OAuth configuration.
func (p *OAuthProvider) Config() *oauth2.Config {
	return p.config
}

// WithRedirectURL returns a copy of p that redirects to url after consent.
func (p *OAuthProvider) WithRedirectURL(url string) *OAuthProvider {
	config := *p.config
	config.RedirectURL = url
	return &OAuthProvider{config: &config, userInfoURL: p.userInfoURL, httpClient: p.httpClient}
}

// AuthCodeURL returns the consent page URL. Offline access and forced consent
// make Google issue a refresh token on every sign-in.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for a token.
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(p.context(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange failed: %w", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// UserInfo fetches the OpenID Connect profile of the token owner.
func (p *OAuthProvider) UserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: userinfo status %d: %s", shared.ErrAuthFailed, resp.StatusCode, body)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	if info.Subject == "" {
		return nil, fmt.Errorf("%w: userinfo has no subject", shared.ErrAuthFailed)
	}
	return &info, nil
}

// Refresh exchanges the refresh token of token for a new access token,
// regardless of whether the current one has expired.
//
// Errors from the token endpoint are returned as [*oauth2.RetrieveError].
func (p *OAuthProvider) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	if token.RefreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	stale := *token
	stale.Expiry = time.Now().Add(-time.Minute)

	return p.config.TokenSource(p.context(ctx), &stale).Token()
}

func (p *OAuthProvider) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}
