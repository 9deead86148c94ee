package constants

const (
	// Reminder Settings
	SettingGlobalReminderEnabled  = "is_global_reminder_enabled"
	SettingGlobalReminderTime     = "global_reminder_time"
	SettingEveningReminderEnabled = "is_evening_reminder_enabled"
	SettingEveningReminderTime    = "evening_reminder_time"

	// Default Settings Values
	DefaultGlobalReminderEnabled      = false
	DefaultEveningReminderEnabled     = true
	DefaultEveningReminderHour        = 21
	DefaultEveningReminderMinute      = 0
	DefaultNotificationGracePeriodMin = 10
	DefaultTimezone                   = "Local" // Use system local timezone by default

	// DefaultCompletionWindowDays is the window used for the headline completion rate.
	DefaultCompletionWindowDays = 30
	// DefaultHistoryDays is the number of days shown in the stats history chart.
	DefaultHistoryDays = 7
)
