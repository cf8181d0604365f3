package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/ytdash/internal/server"
	"github.com/desertthunder/ytdash/internal/session"
	"github.com/desertthunder/ytdash/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// authStatus is the JSON shape of auth status.
type authStatus struct {
	SignedIn  bool      `json:"signed_in"`
	Email     string    `json:"email,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	HasToken  bool      `json:"has_provider_token"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Reason    string    `json:"reason,omitempty"`
}

// AuthLogin signs in through the browser and saves the new session id.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}

	google := r.config.Credentials.Google
	if google.ClientID == "" || google.ClientSecret == "" {
		return fmt.Errorf("%w: credentials.google client_id and client_secret", shared.ErrMissingCredentials)
	}

	manager, err := r.sessions(ctx)
	if err != nil {
		return err
	}
	provider := r.oauthProvider()

	token, err := r.doOAuth(ctx, provider, google.RedirectURI, cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	info, err := provider.UserInfo(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}

	s, err := manager.Create(ctx, info, token)
	if err != nil {
		return err
	}
	if err := r.writeSessionID(s.ID); err != nil {
		return err
	}

	r.logger.Info("authentication successful", "email", info.Email, "sequence", s.Sequence)
	r.writePlain("✓ Signed in as %s\n", info.Email)
	r.writePlain("Session saved to: %s\n", r.sessionFile)
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
// listening on the host and path of redirectURI.
func (r *Runner) doOAuth(ctx context.Context, provider session.Provider, redirectURI string, timeout time.Duration) (*oauth2.Token, error) {
	redirect, err := url.Parse(redirectURI)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("%w: credentials.google.redirect_uri %q", shared.ErrInvalidConfig, redirectURI)
	}

	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	oauthHandler := server.NewOAuthHandler(provider, redirect.Path, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}

	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", redirect.Host)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := provider.AuthCodeURL(state)
	r.writePlain("→ Opening browser for Google sign-in...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%v timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}

// AuthStatus reports whether the saved session is still usable.
//
// A session that no longer exists is forgotten locally.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}

	status, err := r.authStatus(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	switch {
	case !status.SignedIn:
		r.writePlain("✗ Not signed in: %s\n", status.Reason)
		return r.writePlain("Run 'ytdash auth login' to sign in\n")
	case !status.HasToken:
		r.writePlain("⚠ Signed in as %s but Google access was revoked\n", status.Email)
		return r.writePlain("Run 'ytdash auth login' to sign in again\n")
	}

	r.writePlain("✓ Signed in as %s\n", status.Email)
	return r.writePlain("Session expires: %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
}

func (r *Runner) authStatus(ctx context.Context) (authStatus, error) {
	sid, err := r.readSessionID()
	if err != nil {
		return authStatus{}, err
	}
	if sid == "" {
		return authStatus{Reason: "no saved session"}, nil
	}

	manager, err := r.sessions(ctx)
	if err != nil {
		return authStatus{}, err
	}

	s, err := manager.Get(ctx, sid)
	if err != nil {
		return authStatus{}, err
	}
	if s == nil {
		r.removeSessionID()
		return authStatus{Reason: "session expired or signed out"}, nil
	}

	return authStatus{
		SignedIn:  true,
		Email:     s.Email,
		Subject:   s.Subject,
		HasToken:  s.HasProviderToken(),
		ExpiresAt: s.ExpiresAt,
	}, nil
}

// AuthLogout deletes the saved session and its local id.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}

	sid, err := r.readSessionID()
	if err != nil {
		return err
	}
	if sid == "" {
		return r.writePlain("Not signed in\n")
	}

	manager, err := r.sessions(ctx)
	if err != nil {
		return err
	}
	if err := manager.SignOut(ctx, nil, sid); err != nil {
		return err
	}
	r.removeSessionID()

	return r.writePlain("✓ Signed out\n")
}
