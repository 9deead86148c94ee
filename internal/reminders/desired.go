package reminders

import (
	"fmt"
	"time"

	"github.com/julianstephens/habitual/internal/completion"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/utils"
)

// HabitReminderID is the request id of a habit's individual reminder.
func HabitReminderID(habitID string) string {
	return constants.HabitReminderPrefix + habitID
}

// SnoozeReminderID is the request id of a habit's snoozed reminder.
func SnoozeReminderID(habitID string) string {
	return constants.SnoozeReminderPrefix + habitID
}

// BuildRequests derives the reminder set for the active habits and settings.
// When the global reminder is enabled with a time, it replaces every
// individual reminder. The evening body reflects completions on today.
func BuildRequests(active []models.Habit, cfg models.ReminderSettings, today, now time.Time) []models.NotificationRequest {
	var reqs []models.NotificationRequest

	if cfg.GlobalActive() {
		if len(active) > 0 {
			reqs = append(reqs, models.NotificationRequest{
				ID:        constants.GlobalReminderID,
				Title:     constants.GlobalReminderTitle,
				Body:      constants.GlobalReminderBody,
				Category:  constants.CategoryHabitReminder,
				Trigger:   models.CalendarTrigger(*cfg.GlobalTime, true),
				CreatedAt: now,
			})
		}
	} else {
		for _, h := range active {
			if !h.HasIndividualReminder() {
				continue
			}
			reqs = append(reqs, models.NotificationRequest{
				ID:        HabitReminderID(h.ID),
				Title:     constants.HabitReminderTitle,
				Body:      fmt.Sprintf(constants.HabitReminderBodyFmt, h.Title),
				Category:  constants.CategoryHabitReminder,
				UserInfo:  map[string]string{constants.HabitIDKey: h.ID},
				Trigger:   models.CalendarTrigger(*h.ReminderTime, true),
				CreatedAt: now,
			})
		}
	}

	if cfg.EveningEnabled {
		reqs = append(reqs, models.NotificationRequest{
			ID:        constants.EveningReminderID,
			Title:     constants.EveningReminderTitle,
			Body:      EveningBody(completion.IncompleteForDay(active, today)),
			Category:  constants.CategoryEveningReminder,
			UserInfo:  map[string]string{constants.EveningComputedForKey: utils.FormatDate(today)},
			Trigger:   models.CalendarTrigger(cfg.EveningTime, true),
			CreatedAt: now,
		})
	}

	return reqs
}

// EveningBody is the evening summary text for the habits still open today.
func EveningBody(incomplete []models.Habit) string {
	switch len(incomplete) {
	case 0:
		return constants.EveningBodyAllDone
	case 1:
		return fmt.Sprintf(constants.EveningBodyOneFmt, incomplete[0].Title)
	default:
		return fmt.Sprintf(constants.EveningBodyManyFmt, len(incomplete))
	}
}
