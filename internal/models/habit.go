package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Habit represents a recurring practice to track
type Habit struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	CreatedAt  time.Time  `json:"created_at"`
	IsArchived bool       `json:"is_archived"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	// CompletionDates holds one local-midnight timestamp per completed day, sorted ascending.
	CompletionDates   []time.Time `json:"completion_dates"`
	ReminderTime      *TimeOfDay  `json:"reminder_time,omitempty"`
	HasGlobalReminder bool        `json:"has_global_reminder"`
}

func (h *Habit) Validate() error {
	if strings.TrimSpace(h.Title) == "" {
		return fmt.Errorf("habit title cannot be empty")
	}
	if h.ReminderTime != nil {
		if err := h.ReminderTime.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy so callers never share the completion slice.
func (h Habit) Clone() Habit {
	c := h
	if h.CompletionDates != nil {
		c.CompletionDates = make([]time.Time, len(h.CompletionDates))
		copy(c.CompletionDates, h.CompletionDates)
	}
	if h.ReminderTime != nil {
		rt := *h.ReminderTime
		c.ReminderTime = &rt
	}
	if h.ArchivedAt != nil {
		at := *h.ArchivedAt
		c.ArchivedAt = &at
	}
	return c
}

// HasIndividualReminder reports whether the habit carries its own reminder time.
func (h *Habit) HasIndividualReminder() bool {
	return !h.HasGlobalReminder && h.ReminderTime != nil
}

// ShowsReminder reports whether a reminder badge applies to the habit given
// whether the app-wide reminder is currently enabled.
func (h *Habit) ShowsReminder(globalEnabled bool) bool {
	if h.HasGlobalReminder {
		return globalEnabled
	}
	return h.ReminderTime != nil
}

// SortCompletions orders completion dates ascending in place.
func (h *Habit) SortCompletions() {
	sort.Slice(h.CompletionDates, func(i, j int) bool {
		return h.CompletionDates[i].Before(h.CompletionDates[j])
	})
}

// HabitUpdate carries the mutable fields of a habit. Nil fields are left unchanged.
type HabitUpdate struct {
	Title             *string
	ReminderTime      *TimeOfDay
	ClearReminder     bool
	HasGlobalReminder *bool
}

// IsEmpty reports whether the update changes nothing.
func (u HabitUpdate) IsEmpty() bool {
	return u.Title == nil && u.ReminderTime == nil && !u.ClearReminder && u.HasGlobalReminder == nil
}
