// Package app builds the services behind every habitual entry point. There
// are no package-level singletons; each command gets its own App.
package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/habits"
	"github.com/julianstephens/habitual/internal/keyring"
	"github.com/julianstephens/habitual/internal/notifier"
	"github.com/julianstephens/habitual/internal/reminders"
	"github.com/julianstephens/habitual/internal/settings"
	"github.com/julianstephens/habitual/internal/storage"
	"github.com/julianstephens/habitual/internal/storage/postgres"
	"github.com/julianstephens/habitual/internal/storage/sqlite"
)

// ConnectionEnvVar overrides the keyring for the PostgreSQL connection string.
const ConnectionEnvVar = "HABITUAL_DB_CONNECTION"

var getConnectionString = keyring.ConnectionString.Get

// App holds the wired services.
type App struct {
	Config     *config.Config
	Provider   storage.Provider
	Location   *time.Location
	Habits     *habits.Store
	Settings   *settings.Store
	Backend    notifier.Backend
	Dispatcher *notifier.Dispatcher
	Scheduler  *reminders.Scheduler
}

// OpenProvider picks the storage backend for a database setting: a SQLite
// path, a PostgreSQL connection string, or "keyring".
func OpenProvider(database string) (storage.Provider, error) {
	if database == config.KeyringDatabase {
		connStr := os.Getenv(ConnectionEnvVar)
		if connStr == "" {
			var err error
			connStr, err = getConnectionString()
			if err != nil {
				if errors.Is(err, keyring.ErrNotFound) {
					return nil, errors.New("no connection string found in keyring, use 'habitual keyring set' to store one")
				}
				return nil, err
			}
		}
		// Credentials from the keyring or environment are trusted as-is.
		return postgres.New(connStr), nil
	}

	if postgres.IsConnString(database) || strings.Contains(database, "host=") {
		if _, err := postgres.ValidateConnString(database); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, fmt.Errorf("%w: store it with 'habitual keyring set' or export %s and use --db keyring", err, ConnectionEnvVar)
			}
			return nil, err
		}
		return postgres.New(database), nil
	}

	return sqlite.NewStore(config.ExpandHome(database)), nil
}

// New wires the services over an opened provider.
func New(cfg *config.Config, provider storage.Provider) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	habitStore := habits.New(provider, habits.WithLocation(loc))
	settingsStore := settings.New(provider)

	tray := notifier.NewTray(
		notifier.WithRetry(cfg.Notify.MaxRetries, cfg.RetryPolicy().Delay),
		notifier.WithDuration(uint32(cfg.Notify.DurationMs)),
		notifier.WithCallbackURL(cfg.CallbackURL()),
	)
	center := notifier.NewCenter(provider, tray)
	dispatcher := notifier.NewDispatcher(provider, tray,
		notifier.WithGracePeriod(cfg.GracePeriod()),
		notifier.WithDispatchLocation(loc),
	)
	scheduler := reminders.New(habitStore, settingsStore, center, reminders.WithRetry(cfg.RetryPolicy()))

	return &App{
		Config:     cfg,
		Provider:   provider,
		Location:   loc,
		Habits:     habitStore,
		Settings:   settingsStore,
		Backend:    center,
		Dispatcher: dispatcher,
		Scheduler:  scheduler,
	}, nil
}

// CallbackSecret returns the shared secret for the action listener, from
// the config file or else the keyring. Empty means unauthenticated.
func (a *App) CallbackSecret() string {
	if a.Config.Server.Secret != "" {
		return a.Config.Server.Secret
	}
	secret, err := keyring.CallbackSecret.Get()
	if err != nil {
		return ""
	}
	return secret
}

// Close stops background work and releases storage.
func (a *App) Close() error {
	a.Scheduler.Stop()
	return a.Provider.Close()
}
