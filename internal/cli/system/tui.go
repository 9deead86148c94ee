package system

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	a := ctx.App

	// Every change made in the TUI reconciles reminders in the background.
	a.Scheduler.Start(context.Background())
	defer a.Scheduler.Stop()
	unwatch := a.Scheduler.Watch(a.Habits, a.Settings)
	defer unwatch()

	if _, err := a.Scheduler.RefreshIfStale(context.Background()); err != nil {
		return err
	}

	p := tea.NewProgram(tui.NewModel(a.Habits, a.Settings, a.Scheduler), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui exited with error: %w", err)
	}
	return nil
}
