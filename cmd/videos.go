package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytdash/internal/dashboard"
	"github.com/desertthunder/ytdash/internal/formatter"
	"github.com/desertthunder/ytdash/internal/shared"
	"github.com/urfave/cli/v3"
)

// Videos fetches the feed of the saved session and prints or exports it.
func (r *Runner) Videos(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	output := cmd.String("output")
	thumbnails := cmd.Bool("thumbnails")
	if thumbnails && format != formatter.FormatMarkdown {
		return fmt.Errorf("%w: --thumbnails requires --format markdown", shared.ErrInvalidArgument)
	}

	d, err := r.openDashboard(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	var st dashboard.State
	if cmd.Bool("refresh") {
		st = d.RefreshSession(ctx)
	} else {
		st = d.Load(ctx)
	}

	if st.SignedOut {
		r.removeSessionID()
		return fmt.Errorf("%w: run 'ytdash auth login' to sign in again", shared.ErrNotAuthenticated)
	}
	if st.Err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, st.Err)
	}

	feed := st.Feed
	r.logger.Debug("feed fetched", "channel", feed.Channel.ID, "videos", len(feed.Videos))

	switch {
	case thumbnails:
		result, err := formatter.WriteMarkdownExport(ctx, feed, output, r.httpClient)
		if err != nil {
			return err
		}
		for _, f := range result.Failures {
			r.logger.Warn("failed to download thumbnail", "video", f.VideoID, "error", f.Error)
		}
		r.writePlain("✓ Exported %d videos to %s\n", len(feed.Videos), result.Directory)
		return r.writePlain("  Thumbnails: %d\n", result.Thumbnails)

	case output != "":
		path, err := formatter.WriteFile(feed, format, output)
		if err != nil {
			return err
		}
		r.logger.Infof("feed exported to %v", path)
		return r.writePlain("✓ Exported %d videos to %s\n", len(feed.Videos), path)
	}

	return formatter.Write(r.output, feed, format)
}

// openDashboard resolves the saved session into a dashboard. The caller must Close it.
func (r *Runner) openDashboard(ctx context.Context) (*dashboard.Dashboard, error) {
	sid, err := r.readSessionID()
	if err != nil {
		return nil, err
	}
	if sid == "" {
		return nil, fmt.Errorf("%w: run 'ytdash auth login' first", shared.ErrNotAuthenticated)
	}

	manager, err := r.sessions(ctx)
	if err != nil {
		return nil, err
	}

	s, err := manager.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	if s == nil {
		r.removeSessionID()
		return nil, fmt.Errorf("%w: session expired, run 'ytdash auth login'", shared.ErrNotAuthenticated)
	}

	return dashboard.New(manager, r.contentService(), s, dashboard.Options{
		LoginPath:       r.config.Gate.LoginPath,
		RefreshInterval: r.config.RefreshInterval(),
		Logger:          r.logger,
	}), nil
}
