// Package clitest builds command contexts over a throwaway SQLite database.
package clitest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/julianstephens/habitual/internal/app"
	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/notifier"
	"github.com/julianstephens/habitual/internal/reminders"
	"github.com/julianstephens/habitual/internal/storage/sqlite"
)

// Deliverer records deliveries in place of the tray app.
type Deliverer struct {
	mu          sync.Mutex
	delivered   []models.NotificationRequest
	Unavailable error
}

func (d *Deliverer) Available(ctx context.Context) error {
	return d.Unavailable
}

func (d *Deliverer) Deliver(ctx context.Context, req models.NotificationRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered = append(d.delivered, req)
	return nil
}

// Delivered returns the IDs delivered so far.
func (d *Deliverer) Delivered() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, len(d.delivered))
	for i, r := range d.delivered {
		ids[i] = r.ID
	}
	return ids
}

// NewContext returns an initialized context and the deliverer standing in
// for the tray. The database is closed when the test ends.
func NewContext(t *testing.T) (*cli.Context, *Deliverer) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Database = filepath.Join(dir, "test.db")

	store := sqlite.NewStore(cfg.Database)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}

	a, err := app.New(cfg, store)
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}

	deliverer := &Deliverer{}
	center := notifier.NewCenter(store, deliverer)
	a.Backend = center
	a.Dispatcher = notifier.NewDispatcher(store, deliverer, notifier.WithDispatchLocation(a.Location))
	a.Scheduler = reminders.New(a.Habits, a.Settings, center)

	t.Cleanup(func() {
		if err := a.Close(); err != nil {
			t.Errorf("failed to close app: %v", err)
		}
	})

	return &cli.Context{App: a, ConfigPath: filepath.Join(dir, "config.yaml")}, deliverer
}

// Pending returns the IDs of the pending reminders.
func Pending(t *testing.T, ctx *cli.Context) []string {
	t.Helper()
	reqs, err := ctx.App.Backend.PendingRequests(context.Background())
	if err != nil {
		t.Fatalf("PendingRequests() error: %v", err)
	}
	ids := make([]string, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ID
	}
	return ids
}

// Contains reports whether id is in ids.
func Contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
