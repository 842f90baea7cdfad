package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/driveclone/internal/shared"
	"github.com/desertthunder/driveclone/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive clone dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.useConfig(cmd); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/driveclone-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	st, err := r.openStore()
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, ui.ModelOpts{
		Store:        st,
		Orchestrator: r.newOrchestrator(st, nil),
		Resolver:     r.resolver(),
	})
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
