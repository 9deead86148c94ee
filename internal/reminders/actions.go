package reminders

import (
	"context"

	"github.com/julianstephens/habitual/internal/constants"
	apperrors "github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/utils"
)

// ActionState is where a delivered reminder ends up after the user responds.
type ActionState int

const (
	ActionPending ActionState = iota
	ActionCompleted
	ActionSnoozed
	ActionDismissed
)

func (s ActionState) String() string {
	switch s {
	case ActionCompleted:
		return "completed"
	case ActionSnoozed:
		return "snoozed"
	case ActionDismissed:
		return "dismissed"
	}
	return "pending"
}

// HandleAction applies a notification response. Responses that name a
// missing or archived habit, or an action with no effect, leave the
// reminder pending and return no error.
func (s *Scheduler) HandleAction(ctx context.Context, resp models.ActionResponse) (ActionState, error) {
	habitID := resp.UserInfo[constants.HabitIDKey]

	switch resp.ActionID {
	case constants.ActionMarkDone:
		if habitID == "" {
			return ActionPending, nil
		}
		if _, err := s.habits.RecordCompletion(habitID, s.habits.Now()); err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				logger.Debug("Ignoring action for unknown habit", "action", resp.ActionID, "id", habitID)
				return ActionPending, nil
			}
			return ActionPending, err
		}
		if err := s.backend.RemoveRequests(ctx, SnoozeReminderID(habitID)); err != nil {
			logger.Warn("Failed to clear snooze", "id", habitID, "error", err)
		}
		s.ScheduleHabitReminders()
		return ActionCompleted, nil

	case constants.ActionSnooze:
		if habitID == "" {
			return ActionPending, nil
		}
		habit, err := s.habits.Get(habitID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				return ActionPending, nil
			}
			return ActionPending, err
		}
		if habit.IsArchived {
			return ActionPending, nil
		}

		req := models.NotificationRequest{
			ID:        SnoozeReminderID(habitID),
			Title:     constants.HabitReminderTitle,
			Body:      constants.SnoozeReminderBody,
			Category:  constants.CategoryHabitReminder,
			UserInfo:  map[string]string{constants.HabitIDKey: habitID},
			Trigger:   models.IntervalTrigger(constants.SnoozeDelay),
			CreatedAt: s.habits.Now(),
		}
		err = utils.Retry(ctx, s.retry, func() error { return s.backend.AddRequest(ctx, req) })
		if err != nil {
			return ActionPending, apperrors.Storage("snooze", "notification", req.ID, err)
		}
		return ActionSnoozed, nil

	case constants.ActionDismiss:
		return ActionDismissed, nil
	}

	logger.Debug("No-op notification action", "action", resp.ActionID, "identifier", resp.Identifier)
	return ActionPending, nil
}
