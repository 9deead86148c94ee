package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/settings"
)

// HabitFormModel backs the add and edit habit forms.
type HabitFormModel struct {
	Title    string
	Reminder string
	Global   bool
}

// SettingsFormModel backs the reminder settings form.
type SettingsFormModel struct {
	GlobalEnabled  bool
	GlobalTime     string
	EveningEnabled bool
	EveningTime    string
}

// ValidateTitle rejects blank habit titles.
func ValidateTitle(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("habit title cannot be empty")
	}
	return nil
}

// ValidateTimeOfDay accepts an empty value or HH:MM.
func ValidateTimeOfDay(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := models.ParseTimeOfDay(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("invalid time format, use HH:MM")
	}
	return nil
}

func parseOptionalTime(s string) (*models.TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := models.ParseTimeOfDay(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// HabitFormFor pre-fills the form from an existing habit.
func HabitFormFor(h models.Habit) *HabitFormModel {
	fm := &HabitFormModel{Title: h.Title, Global: h.HasGlobalReminder}
	if h.ReminderTime != nil {
		fm.Reminder = h.ReminderTime.String()
	}
	return fm
}

// Update converts the form into a habit update. An empty reminder clears it.
func (fm *HabitFormModel) Update() (models.HabitUpdate, error) {
	if err := ValidateTitle(fm.Title); err != nil {
		return models.HabitUpdate{}, err
	}
	reminder, err := parseOptionalTime(fm.Reminder)
	if err != nil {
		return models.HabitUpdate{}, err
	}

	title := strings.TrimSpace(fm.Title)
	global := fm.Global
	update := models.HabitUpdate{
		Title:             &title,
		ReminderTime:      reminder,
		HasGlobalReminder: &global,
	}
	if reminder == nil {
		update.ClearReminder = true
	}
	return update, nil
}

// NewSettingsFormModel pre-fills the form from the current settings.
func NewSettingsFormModel(cfg models.ReminderSettings) *SettingsFormModel {
	fm := &SettingsFormModel{
		GlobalEnabled:  cfg.GlobalEnabled,
		EveningEnabled: cfg.EveningEnabled,
		EveningTime:    cfg.EveningTime.String(),
	}
	if cfg.GlobalTime != nil {
		fm.GlobalTime = cfg.GlobalTime.String()
	}
	return fm
}

// Update returns the changes between the form and current. Unchanged fields
// stay nil so enabling checks only fire for switches the user flipped on.
func (fm *SettingsFormModel) Update(current models.ReminderSettings) (settings.Update, error) {
	var u settings.Update

	if fm.GlobalEnabled != current.GlobalEnabled {
		enabled := fm.GlobalEnabled
		u.GlobalEnabled = &enabled
	}
	if fm.EveningEnabled != current.EveningEnabled {
		enabled := fm.EveningEnabled
		u.EveningEnabled = &enabled
	}

	globalTime, err := parseOptionalTime(fm.GlobalTime)
	if err != nil {
		return settings.Update{}, err
	}
	switch {
	case globalTime == nil && current.GlobalTime != nil:
		u.ClearGlobalTime = true
	case globalTime != nil && (current.GlobalTime == nil || *globalTime != *current.GlobalTime):
		u.GlobalTime = globalTime
	}

	eveningTime, err := parseOptionalTime(fm.EveningTime)
	if err != nil {
		return settings.Update{}, err
	}
	if eveningTime != nil && *eveningTime != current.EveningTime {
		u.EveningTime = eveningTime
	}
	return u, nil
}

// NewHabitForm creates the form for adding or editing a habit.
func NewHabitForm(fm *HabitFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Habit Title").
				Value(&fm.Title).
				Validate(ValidateTitle),
			huh.NewInput().
				Title("Reminder (HH:MM)").
				Description("Leave empty for no individual reminder").
				Value(&fm.Reminder).
				Validate(ValidateTimeOfDay),
			huh.NewConfirm().
				Title("Use global reminder").
				Description("Remind with the app-wide daily reminder instead").
				Value(&fm.Global),
		),
	).WithTheme(huh.ThemeDracula())
}

// NewSettingsForm creates the form for reminder settings.
func NewSettingsForm(fm *SettingsFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Global daily reminder").
				Value(&fm.GlobalEnabled),
			huh.NewInput().
				Title("Global reminder time (HH:MM)").
				Value(&fm.GlobalTime).
				Validate(ValidateTimeOfDay),
			huh.NewConfirm().
				Title("Evening summary").
				Value(&fm.EveningEnabled),
			huh.NewInput().
				Title("Evening summary time (HH:MM)").
				Value(&fm.EveningTime).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("evening time cannot be empty")
					}
					return ValidateTimeOfDay(s)
				}),
		),
	).WithTheme(huh.ThemeDracula())
}
