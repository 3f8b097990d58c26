package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/shffl/internal/shared"
	"github.com/desertthunder/shffl/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// TUI launches the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	a, err := r.App(ctx)
	if err != nil {
		return err
	}

	model := ui.NewModel(a, func(ctx context.Context) (*oauth2.Token, error) {
		return r.awaitLogin(ctx, loginTimeout)
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
