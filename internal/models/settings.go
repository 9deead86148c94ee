package models

// ReminderSettings is a snapshot of the reminder-related settings.
type ReminderSettings struct {
	GlobalEnabled  bool       `json:"is_global_reminder_enabled"`
	GlobalTime     *TimeOfDay `json:"global_reminder_time,omitempty"`
	EveningEnabled bool       `json:"is_evening_reminder_enabled"`
	EveningTime    TimeOfDay  `json:"evening_reminder_time"`
}

// GlobalActive reports whether the single app-wide reminder takes precedence.
func (s ReminderSettings) GlobalActive() bool {
	return s.GlobalEnabled && s.GlobalTime != nil
}
