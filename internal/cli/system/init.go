package system

import (
	"context"
	"fmt"
	"os"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/storage/sqlite"
)

type InitCmd struct {
	Force bool `help:"Force reset by deleting the existing SQLite database before initialization."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	provider := ctx.App.Provider

	if c.Force {
		if _, ok := provider.(*sqlite.Store); !ok {
			return fmt.Errorf("--force only applies to SQLite databases")
		}
		dbPath := provider.GetConfigPath()
		if _, err := os.Stat(dbPath); err == nil {
			// Close first so the file is not held open.
			if err := provider.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := provider.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized habitual storage at: %s\n", provider.GetConfigPath())

	if ctx.ConfigPath != "" {
		if _, err := os.Stat(ctx.ConfigPath); os.IsNotExist(err) {
			if err := config.Save(ctx.ConfigPath, ctx.App.Config); err != nil {
				return err
			}
			fmt.Printf("Wrote default config to: %s\n", ctx.ConfigPath)
		}
	}

	// Seed the evening summary so the first run has a pending reminder.
	if _, err := ctx.Sync(context.Background()); err != nil {
		return err
	}
	return nil
}
