package constants

import "time"

// Notification identifiers. Per-habit identifiers are formed by appending the habit id.
const (
	GlobalReminderID      = "global_habit_reminder"
	EveningReminderID     = "evening_completion_reminder"
	HabitReminderPrefix   = "habit_"
	SnoozeReminderPrefix  = "snooze_"
	HabitIDKey            = "habitId"
	EveningComputedForKey = "computedFor"
)

// Notification categories and their actions.
const (
	CategoryHabitReminder   = "HABIT_REMINDER"
	CategoryEveningReminder = "EVENING_REMINDER"

	ActionMarkDone = "MARK_DONE"
	ActionSnooze   = "SNOOZE"
	ActionOpenApp  = "OPEN_APP"
	// ActionDismiss is reported when the user dismisses a notification without choosing an action.
	ActionDismiss = "DISMISS"
	// ActionDefault is reported when the notification body itself is tapped.
	ActionDefault = "DEFAULT"

	SnoozeDelay = 15 * time.Minute
)

// Notification copy.
const (
	HabitReminderTitle       = "Habit Reminder"
	HabitReminderBodyFmt     = "Time to work on: %s"
	GlobalReminderTitle      = "Daily Habit Reminder"
	GlobalReminderBody       = "Don't forget to complete your habits today!"
	EveningReminderTitle     = "Complete All Tasks"
	EveningBodyAllDone       = "Great job! All your habits are completed for today. Keep it up!"
	EveningBodyOneFmt        = "You have 1 incomplete habit: %s"
	EveningBodyManyFmt       = "You have %d incomplete habits for today. Don't forget to finish them!"
	SnoozeReminderBody       = "Don't forget to complete your habit!"
	MarkDoneActionTitle      = "Mark Done"
	SnoozeActionTitle        = "Snooze 15m"
	OpenAppActionTitle       = "Open App"
	PermissionDeniedHint     = "enable notifications for habitual (start the tray app) and try again"
	NotificationsUnavailable = "notifications are not available"
)
