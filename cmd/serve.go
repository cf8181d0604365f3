package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/desertthunder/ytdash/internal/shared"
	"github.com/desertthunder/ytdash/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve runs the web dashboard until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	manager, err := r.sessions(ctx)
	if err != nil {
		return err
	}

	srv, err := web.New(web.Deps{
		Config:   r.config,
		Manager:  manager,
		Provider: r.oauthProvider(),
		Content:  r.contentService(),
		Logger:   r.logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseURL := r.baseURL()
	r.writePlain("→ Serving dashboard at %s\n", baseURL)
	if addr := r.config.Server.MetricsAddr; addr != "" {
		r.writePlain("→ Metrics at http://%s/metrics\n", addr)
	}

	if cmd.Bool("open") {
		if err := shared.OpenBrowser(baseURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
		}
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (r *Runner) baseURL() string {
	if base := r.config.Server.BaseURL; base != "" {
		return strings.TrimSuffix(base, "/")
	}
	return "http://" + r.config.Server.Addr()
}
