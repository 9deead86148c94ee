package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/habitual/internal/cli"
	apperrors "github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/settings"
	"github.com/julianstephens/habitual/internal/tui"
)

type SettingsCmd struct {
	List            bool   `help:"List current reminder settings." short:"l"`
	GlobalEnabled   *bool  `help:"Enable or disable the global daily reminder."`
	GlobalTime      string `help:"Global reminder time (HH:MM)."`
	ClearGlobalTime bool   `help:"Unset the global reminder time."`
	EveningEnabled  *bool  `help:"Enable or disable the evening summary reminder."`
	EveningTime     string `help:"Evening summary time (HH:MM)."`
	Interactive     bool   `short:"i" help:"Edit settings with a form."`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	var update settings.Update
	var err error

	if c.Interactive {
		update, err = c.runForm(ctx)
	} else {
		update, err = c.flagsUpdate()
	}
	if err != nil {
		return err
	}

	if c.List || update.IsEmpty() {
		return printSettings(ctx)
	}

	if err := ctx.App.Scheduler.UpdateSettings(context.Background(), update); err != nil {
		if errors.Is(err, apperrors.ErrPermissionDenied) {
			fmt.Println("Notifications are not permitted, settings were not changed.")
			if hint := apperrors.Hint(err); hint != "" {
				fmt.Println("  " + hint)
			}
		}
		return err
	}
	if _, err := ctx.Sync(context.Background()); err != nil {
		return err
	}

	fmt.Println("Settings updated successfully.")
	return printSettings(ctx)
}

func (c *SettingsCmd) flagsUpdate() (settings.Update, error) {
	update := settings.Update{
		GlobalEnabled:   c.GlobalEnabled,
		ClearGlobalTime: c.ClearGlobalTime,
		EveningEnabled:  c.EveningEnabled,
	}
	if c.GlobalTime != "" {
		if c.ClearGlobalTime {
			return settings.Update{}, apperrors.Validation("update", "settings", "--global-time and --clear-global-time are mutually exclusive")
		}
		t, err := models.ParseTimeOfDay(c.GlobalTime)
		if err != nil {
			return settings.Update{}, err
		}
		update.GlobalTime = &t
	}
	if c.EveningTime != "" {
		t, err := models.ParseTimeOfDay(c.EveningTime)
		if err != nil {
			return settings.Update{}, err
		}
		update.EveningTime = &t
	}
	return update, nil
}

func (c *SettingsCmd) runForm(ctx *cli.Context) (settings.Update, error) {
	current, err := ctx.App.Settings.Snapshot()
	if err != nil {
		return settings.Update{}, err
	}
	fm := tui.NewSettingsFormModel(current)
	if err := tui.NewSettingsForm(fm).Run(); err != nil {
		return settings.Update{}, err
	}
	return fm.Update(current)
}

func printSettings(ctx *cli.Context) error {
	cfg, err := ctx.App.Settings.Snapshot()
	if err != nil {
		return err
	}

	globalTime := "unset"
	if cfg.GlobalTime != nil {
		globalTime = cfg.GlobalTime.String()
	}

	fmt.Println("Reminder Settings:")
	fmt.Printf("  Global reminder:  %s\n", cli.OnOff(cfg.GlobalEnabled))
	fmt.Printf("  Global time:      %s\n", globalTime)
	fmt.Printf("  Evening summary:  %s\n", cli.OnOff(cfg.EveningEnabled))
	fmt.Printf("  Evening time:     %s\n", cfg.EveningTime.String())
	if cfg.GlobalEnabled && cfg.GlobalTime == nil {
		fmt.Println("  (global reminder has no time yet, individual reminders stay in effect)")
	}
	return nil
}
