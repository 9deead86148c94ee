package settings

import (
	"errors"
	"testing"

	"github.com/julianstephens/habitual/internal/cli/clitest"
	"github.com/julianstephens/habitual/internal/constants"
	apperrors "github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/models"
)

func boolPtr(b bool) *bool { return &b }

func TestSettingsCmd_List(t *testing.T) {
	ctx, _ := clitest.NewContext(t)

	cmd := &SettingsCmd{List: true}
	if err := cmd.Run(ctx); err != nil {
		t.Errorf("settings list failed: %v", err)
	}
}

func TestSettingsCmd_EnableGlobalReminder(t *testing.T) {
	ctx, _ := clitest.NewContext(t)

	cmd := &SettingsCmd{GlobalEnabled: boolPtr(true), GlobalTime: "07:30"}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("settings update failed: %v", err)
	}

	cfg, err := ctx.App.Settings.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if !cfg.GlobalEnabled || cfg.GlobalTime == nil || *cfg.GlobalTime != models.MustTimeOfDay(7, 30) {
		t.Errorf("unexpected settings: %+v", cfg)
	}
}

func TestSettingsCmd_GlobalReminderScheduledWithHabit(t *testing.T) {
	ctx, _ := clitest.NewContext(t)
	if _, err := ctx.App.Habits.Create("Read"); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	cmd := &SettingsCmd{GlobalEnabled: boolPtr(true), GlobalTime: "07:30"}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("settings update failed: %v", err)
	}
	if !clitest.Contains(clitest.Pending(t, ctx), constants.GlobalReminderID) {
		t.Error("expected the global reminder to be pending")
	}
}

func TestSettingsCmd_PermissionDenied(t *testing.T) {
	ctx, deliverer := clitest.NewContext(t)
	deliverer.Unavailable = errors.New("tray not running")

	cmd := &SettingsCmd{GlobalEnabled: boolPtr(true), GlobalTime: "07:30"}
	err := cmd.Run(ctx)
	if !apperrors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}

	cfg, err := ctx.App.Settings.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if cfg.GlobalEnabled || cfg.GlobalTime != nil {
		t.Errorf("denied update must not be saved: %+v", cfg)
	}
}

func TestSettingsCmd_DisableNeedsNoPermission(t *testing.T) {
	ctx, deliverer := clitest.NewContext(t)
	deliverer.Unavailable = errors.New("tray not running")

	cmd := &SettingsCmd{EveningEnabled: boolPtr(false)}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("settings update failed: %v", err)
	}
	cfg, _ := ctx.App.Settings.Snapshot()
	if cfg.EveningEnabled {
		t.Error("expected evening reminder to be disabled")
	}
	if clitest.Contains(clitest.Pending(t, ctx), constants.EveningReminderID) {
		t.Error("evening reminder should not be pending once disabled")
	}
}

func TestSettingsCmd_InvalidInput(t *testing.T) {
	ctx, _ := clitest.NewContext(t)

	tests := []struct {
		name string
		cmd  SettingsCmd
	}{
		{"bad global time", SettingsCmd{GlobalTime: "7pm"}},
		{"bad evening time", SettingsCmd{EveningTime: "21:75"}},
		{"set and clear", SettingsCmd{GlobalTime: "08:00", ClearGlobalTime: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cmd.Run(ctx); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
