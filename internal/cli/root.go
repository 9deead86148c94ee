package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/habitual/internal/app"
	apperrors "github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/reminders"
)

// Context is handed to every command's Run method.
type Context struct {
	App *app.App
	// ConfigPath is the config.yaml the App was loaded from.
	ConfigPath string
}

// Sync reconciles pending reminders right away. Commands exit as soon as they
// return, so the detached pass used by long-running processes would be lost.
func (c *Context) Sync(ctx context.Context) (reminders.Result, error) {
	result, err := c.App.Scheduler.Reconcile(ctx)
	if err != nil {
		return result, err
	}
	if len(result.Failed) > 0 {
		logger.Warn("Some reminders could not be scheduled", "failed", strings.Join(result.Failed, ","))
	}
	return result, nil
}

// ResolveHabit finds a habit by exact ID or case-insensitive title.
// Archived habits are matched only when includeArchived is set.
func (c *Context) ResolveHabit(ref string, includeArchived bool) (models.Habit, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.Habit{}, apperrors.Validation("resolve", "habit", "habit reference cannot be empty")
	}

	list := c.App.Habits.ListActive
	if includeArchived {
		list = c.App.Habits.ListAll
	}
	all, err := list()
	if err != nil {
		return models.Habit{}, err
	}

	var matches []models.Habit
	for _, h := range all {
		if h.ID == ref {
			return h, nil
		}
		if strings.EqualFold(h.Title, ref) {
			matches = append(matches, h)
		}
	}

	switch len(matches) {
	case 0:
		return models.Habit{}, apperrors.NotFound("resolve", "habit", ref)
	case 1:
		return matches[0], nil
	default:
		return models.Habit{}, apperrors.Validation("resolve", "habit",
			fmt.Sprintf("%d habits are titled %q, use the ID instead", len(matches), ref))
	}
}

// FormatReminder describes the reminder that applies to a habit.
func FormatReminder(h models.Habit, cfg models.ReminderSettings) string {
	switch {
	case h.HasGlobalReminder && cfg.GlobalActive():
		return "global " + cfg.GlobalTime.String()
	case h.HasGlobalReminder:
		return "global (off)"
	case cfg.GlobalActive() && h.ReminderTime != nil:
		return h.ReminderTime.String() + " (overridden by global)"
	case h.ReminderTime != nil:
		return h.ReminderTime.String()
	default:
		return "-"
	}
}

// FormatPercent renders a 0..1 rate as a whole percentage.
func FormatPercent(rate float64) string {
	return fmt.Sprintf("%d%%", int(rate*100+0.5))
}

// ShortID trims a UUID for table output.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// OnOff renders a boolean setting.
func OnOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
