package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytdash/internal/shared"
	"github.com/desertthunder/ytdash/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal dashboard for the saved session.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	d, err := r.openDashboard(ctx)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, d)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if model.SignedOut() {
		r.removeSessionID()
		return r.writePlain("Signed out. Run 'ytdash auth login' to sign in again.\n")
	}
	return nil
}
