package reminders

import (
	"testing"

	"github.com/julianstephens/habitual/internal/cli/clitest"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/reminders"
)

func TestRemindersSyncPreviewPending(t *testing.T) {
	ctx, _ := clitest.NewContext(t)

	if err := (&RemindersPendingCmd{}).Run(ctx); err != nil {
		t.Fatalf("reminders pending failed: %v", err)
	}

	h, err := ctx.App.Habits.CreateWith("Read", models.HabitUpdate{ReminderTime: models.MustTimeOfDay(8, 0).Ptr()})
	if err != nil {
		t.Fatalf("CreateWith() error: %v", err)
	}

	// Preview never touches the backend.
	if err := (&RemindersPreviewCmd{}).Run(ctx); err != nil {
		t.Fatalf("reminders preview failed: %v", err)
	}
	if len(clitest.Pending(t, ctx)) != 0 {
		t.Error("preview scheduled reminders")
	}

	if err := (&RemindersSyncCmd{}).Run(ctx); err != nil {
		t.Fatalf("reminders sync failed: %v", err)
	}
	pending := clitest.Pending(t, ctx)
	for _, id := range []string{reminders.HabitReminderID(h.ID), constants.EveningReminderID} {
		if !clitest.Contains(pending, id) {
			t.Errorf("expected %s to be pending, got %v", id, pending)
		}
	}

	if err := (&RemindersPendingCmd{}).Run(ctx); err != nil {
		t.Fatalf("reminders pending failed: %v", err)
	}
}
