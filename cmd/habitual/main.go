package main

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/habitual/internal/app"
	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/cli/habits"
	"github.com/julianstephens/habitual/internal/cli/reminders"
	"github.com/julianstephens/habitual/internal/cli/settings"
	"github.com/julianstephens/habitual/internal/cli/system"
	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/constants"
	apperrors "github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"path" default:"${config_path}"`
	DB      string `name:"db" help:"SQLite path, PostgreSQL connection string or 'keyring' (overrides the config file)."`
	Debug   bool   `help:"Enable debug logging."`

	Init      system.InitCmd         `cmd:"" help:"Initialize habitual storage."`
	Tui       system.TuiCmd          `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Today     habits.TodayCmd        `cmd:"" help:"Show today's checklist."`
	Stats     habits.StatsCmd        `cmd:"" help:"Show completion history and streaks."`
	Habit     habits.HabitCmd        `cmd:"" help:"Manage habits and habit tracking."`
	Settings  settings.SettingsCmd   `cmd:"" help:"Manage reminder settings."`
	Reminders reminders.RemindersCmd `cmd:"" help:"Inspect and reconcile scheduled reminders."`
	Notify    system.NotifyCmd       `cmd:"" help:"Deliver reminders that are due now (for cron or launchd)."`
	Respond   system.RespondCmd      `cmd:"" hidden:"" help:"Apply a notification action (used by the tray app)."`
	Serve     system.ServeCmd        `cmd:"" help:"Run the action listener and reminder dispatcher."`
	Keyring   system.KeyringCmd      `cmd:"" help:"Manage secrets in the OS keyring."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Daily habit tracker with reminders"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"config_path": config.DefaultPath(),
		},
	)

	if err := config.LoadDotEnv(); err != nil {
		apperrors.Fatal(err)
	}
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		apperrors.Fatal(err)
	}
	if CLI.DB != "" {
		cfg.Database = config.ExpandHome(CLI.DB)
	}
	cfg.Debug = cfg.Debug || CLI.Debug

	command := ctx.Command()
	if err := logger.Init(logger.Config{
		Debug:     cfg.Debug,
		ConfigDir: filepath.Dir(CLI.Config),
		Quiet:     command == "tui",
	}); err != nil {
		apperrors.Fatal(err)
	}

	// Keyring commands manage the credentials needed to open storage.
	if strings.HasPrefix(command, "keyring") {
		apperrors.Fatal(ctx.Run(&cli.Context{ConfigPath: CLI.Config}))
		return
	}

	provider, err := app.OpenProvider(cfg.Database)
	if err != nil {
		apperrors.Fatal(err)
	}
	if command != "init" {
		if err := provider.Load(); err != nil {
			apperrors.Fatal(err)
		}
	}

	a, err := app.New(cfg, provider)
	if err != nil {
		apperrors.Fatal(err)
	}

	err = ctx.Run(&cli.Context{App: a, ConfigPath: CLI.Config})
	if closeErr := a.Close(); closeErr != nil {
		logger.Warn("Failed to close storage", "error", closeErr)
	}
	apperrors.Fatal(err)
}
