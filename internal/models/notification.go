package models

import (
	"fmt"
	"time"
)

// TriggerKind selects how a notification request fires.
type TriggerKind string

const (
	// TriggerCalendar fires at a time of day, optionally every day.
	TriggerCalendar TriggerKind = "calendar"
	// TriggerInterval fires once after a delay from creation.
	TriggerInterval TriggerKind = "interval"
)

// Trigger describes when a notification request fires.
type Trigger struct {
	Kind         TriggerKind `json:"kind"`
	Time         TimeOfDay   `json:"time,omitempty"`
	DelaySeconds int         `json:"delay_seconds,omitempty"`
	Repeats      bool        `json:"repeats"`
}

// CalendarTrigger fires at t, every day when repeats is set.
func CalendarTrigger(t TimeOfDay, repeats bool) Trigger {
	return Trigger{Kind: TriggerCalendar, Time: t, Repeats: repeats}
}

// IntervalTrigger fires once after delay.
func IntervalTrigger(delay time.Duration) Trigger {
	return Trigger{Kind: TriggerInterval, DelaySeconds: int(delay / time.Second)}
}

func (t Trigger) Validate() error {
	switch t.Kind {
	case TriggerCalendar:
		return t.Time.Validate()
	case TriggerInterval:
		if t.DelaySeconds <= 0 {
			return fmt.Errorf("interval trigger delay must be positive, got %d", t.DelaySeconds)
		}
		if t.Repeats {
			return fmt.Errorf("interval triggers cannot repeat")
		}
		return nil
	default:
		return fmt.Errorf("unknown trigger kind %q", t.Kind)
	}
}

func (t Trigger) String() string {
	switch t.Kind {
	case TriggerCalendar:
		if t.Repeats {
			return "daily at " + t.Time.String()
		}
		return "at " + t.Time.String()
	case TriggerInterval:
		return fmt.Sprintf("in %s", time.Duration(t.DelaySeconds)*time.Second)
	}
	return string(t.Kind)
}

// NotificationRequest is a pending notification held by the notification backend.
type NotificationRequest struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Category  string            `json:"category,omitempty"`
	UserInfo  map[string]string `json:"user_info,omitempty"`
	Trigger   Trigger           `json:"trigger"`
	CreatedAt time.Time         `json:"created_at"`
}

func (r *NotificationRequest) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("notification request id cannot be empty")
	}
	if r.Title == "" && r.Body == "" {
		return fmt.Errorf("notification request %s has no content", r.ID)
	}
	return r.Trigger.Validate()
}

// FireTimeOn returns the instant the request fires on the calendar day of day,
// and whether it fires on that day at all.
func (r *NotificationRequest) FireTimeOn(day time.Time) (time.Time, bool) {
	switch r.Trigger.Kind {
	case TriggerCalendar:
		at := r.Trigger.Time.On(day)
		if !r.Trigger.Repeats && at.Before(r.CreatedAt) {
			return time.Time{}, false
		}
		return at, true
	case TriggerInterval:
		at := r.CreatedAt.Add(time.Duration(r.Trigger.DelaySeconds) * time.Second).In(day.Location())
		y1, m1, d1 := at.Date()
		y2, m2, d2 := day.Date()
		return at, y1 == y2 && m1 == m2 && d1 == d2
	}
	return time.Time{}, false
}

// NotificationAction is a button offered on a delivered notification.
type NotificationAction struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ActionResponse is the user's response to a delivered notification.
type ActionResponse struct {
	Identifier string            `json:"identifier"`
	ActionID   string            `json:"action_id"`
	UserInfo   map[string]string `json:"user_info,omitempty"`
}
