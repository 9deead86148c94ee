// Package storagetest holds behaviour checks shared by every storage.Provider.
package storagetest

import (
	"errors"
	"testing"
	"time"

	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage"
)

// Factory returns an initialized, empty provider. Cleanup is the factory's responsibility.
type Factory func(t *testing.T) storage.Provider

// Run exercises the Provider contract against fresh stores from newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("SaveAndGetHabit", func(t *testing.T) { testSaveAndGetHabit(t, newStore(t)) })
	t.Run("FetchHabitsOrderAndFilter", func(t *testing.T) { testFetchHabits(t, newStore(t)) })
	t.Run("SaveReplacesCompletions", func(t *testing.T) { testSaveReplacesCompletions(t, newStore(t)) })
	t.Run("GetHabitNotFound", func(t *testing.T) { testGetHabitNotFound(t, newStore(t)) })
	t.Run("Settings", func(t *testing.T) { testSettings(t, newStore(t)) })
	t.Run("NotificationRequests", func(t *testing.T) { testNotificationRequests(t, newStore(t)) })
	t.Run("Deliveries", func(t *testing.T) { testDeliveries(t, newStore(t)) })
}

var base = time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(2024, 6, 1+offset, 0, 0, 0, 0, time.UTC)
}

func testSaveAndGetHabit(t *testing.T, store storage.Provider) {
	archivedAt := base.Add(time.Hour)
	habit := models.Habit{
		ID:                "h1",
		Title:             "Read",
		CreatedAt:         base,
		IsArchived:        true,
		ArchivedAt:        &archivedAt,
		CompletionDates:   []time.Time{day(0), day(1)},
		ReminderTime:      models.MustTimeOfDay(9, 15).Ptr(),
		HasGlobalReminder: true,
	}

	if err := store.SaveHabits(habit); err != nil {
		t.Fatalf("failed to save habit: %v", err)
	}

	got, err := store.GetHabit("h1")
	if err != nil {
		t.Fatalf("failed to get habit: %v", err)
	}

	if got.Title != "Read" || !got.IsArchived || !got.HasGlobalReminder {
		t.Errorf("unexpected habit fields: %+v", got)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("expected created_at %v, got %v", base, got.CreatedAt)
	}
	if got.ArchivedAt == nil || !got.ArchivedAt.Equal(archivedAt) {
		t.Errorf("expected archived_at %v, got %v", archivedAt, got.ArchivedAt)
	}
	if got.ReminderTime == nil || *got.ReminderTime != models.MustTimeOfDay(9, 15) {
		t.Errorf("expected reminder 09:15, got %v", got.ReminderTime)
	}
	if len(got.CompletionDates) != 2 {
		t.Fatalf("expected 2 completions, got %d", len(got.CompletionDates))
	}
	for i, want := range []time.Time{day(0), day(1)} {
		if !got.CompletionDates[i].Equal(want) {
			t.Errorf("completion %d: expected %v, got %v", i, want, got.CompletionDates[i])
		}
	}
}

func testFetchHabits(t *testing.T, store storage.Provider) {
	habits := []models.Habit{
		{ID: "c", Title: "Third", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "a", Title: "First", CreatedAt: base},
		{ID: "b", Title: "Second", CreatedAt: base.Add(time.Minute), IsArchived: true},
	}
	if err := store.SaveHabits(habits...); err != nil {
		t.Fatalf("failed to save habits: %v", err)
	}

	active, err := store.FetchHabits(storage.HabitQuery{})
	if err != nil {
		t.Fatalf("failed to fetch habits: %v", err)
	}
	if ids := habitIDs(active); !equal(ids, []string{"a", "c"}) {
		t.Errorf("expected active [a c], got %v", ids)
	}

	all, err := store.FetchHabits(storage.HabitQuery{IncludeArchived: true})
	if err != nil {
		t.Fatalf("failed to fetch habits: %v", err)
	}
	if ids := habitIDs(all); !equal(ids, []string{"a", "b", "c"}) {
		t.Errorf("expected all [a b c], got %v", ids)
	}

	some, err := store.FetchHabits(storage.HabitQuery{IncludeArchived: true, IDs: []string{"c", "b"}})
	if err != nil {
		t.Fatalf("failed to fetch habits: %v", err)
	}
	if ids := habitIDs(some); !equal(ids, []string{"b", "c"}) {
		t.Errorf("expected [b c], got %v", ids)
	}
}

func testSaveReplacesCompletions(t *testing.T, store storage.Provider) {
	habit := models.Habit{ID: "h1", Title: "Run", CreatedAt: base, CompletionDates: []time.Time{day(0), day(1), day(2)}}
	if err := store.SaveHabits(habit); err != nil {
		t.Fatalf("failed to save habit: %v", err)
	}

	habit.Title = "Run 5k"
	habit.CompletionDates = []time.Time{day(2)}
	if err := store.SaveHabits(habit); err != nil {
		t.Fatalf("failed to update habit: %v", err)
	}

	got, err := store.GetHabit("h1")
	if err != nil {
		t.Fatalf("failed to get habit: %v", err)
	}
	if got.Title != "Run 5k" {
		t.Errorf("expected updated title, got %q", got.Title)
	}
	if len(got.CompletionDates) != 1 || !got.CompletionDates[0].Equal(day(2)) {
		t.Errorf("expected only %v, got %v", day(2), got.CompletionDates)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("created_at changed on update: %v", got.CreatedAt)
	}
}

func testGetHabitNotFound(t *testing.T, store storage.Provider) {
	_, err := store.GetHabit("missing")
	if !errors.Is(err, storage.ErrHabitNotFound) {
		t.Errorf("expected ErrHabitNotFound, got %v", err)
	}
}

func testSettings(t *testing.T, store storage.Provider) {
	if _, ok, err := store.GetSetting("missing"); err != nil || ok {
		t.Errorf("expected missing setting, got ok=%v err=%v", ok, err)
	}

	if err := store.SetSetting("evening_reminder_time", "21:00"); err != nil {
		t.Fatalf("failed to set setting: %v", err)
	}
	if err := store.SetSetting("evening_reminder_time", "20:30"); err != nil {
		t.Fatalf("failed to overwrite setting: %v", err)
	}

	value, ok, err := store.GetSetting("evening_reminder_time")
	if err != nil || !ok {
		t.Fatalf("expected setting, got ok=%v err=%v", ok, err)
	}
	if value != "20:30" {
		t.Errorf("expected 20:30, got %q", value)
	}

	all, err := store.GetAllSettings()
	if err != nil {
		t.Fatalf("failed to list settings: %v", err)
	}
	if len(all) != 1 || all["evening_reminder_time"] != "20:30" {
		t.Errorf("unexpected settings: %v", all)
	}

	if err := store.SetSettings(map[string]string{
		"is_global_reminder_enabled": "true",
		"global_reminder_time":       "08:00",
		"evening_reminder_time":      "21:15",
	}); err != nil {
		t.Fatalf("failed to set settings: %v", err)
	}
	all, err = store.GetAllSettings()
	if err != nil {
		t.Fatalf("failed to list settings: %v", err)
	}
	want := map[string]string{
		"is_global_reminder_enabled": "true",
		"global_reminder_time":       "08:00",
		"evening_reminder_time":      "21:15",
	}
	if len(all) != len(want) {
		t.Errorf("expected %d settings, got %v", len(want), all)
	}
	for k, v := range want {
		if all[k] != v {
			t.Errorf("setting %s = %q, want %q", k, all[k], v)
		}
	}
	if err := store.SetSettings(nil); err != nil {
		t.Errorf("empty batch should be a no-op, got %v", err)
	}
}

func testNotificationRequests(t *testing.T, store storage.Provider) {
	requests := []models.NotificationRequest{
		{
			ID:        "habit_h1",
			Title:     "Habit Reminder",
			Body:      "Time to work on: Read",
			Category:  "HABIT_REMINDER",
			UserInfo:  map[string]string{"habitId": "h1"},
			Trigger:   models.CalendarTrigger(models.MustTimeOfDay(9, 0), true),
			CreatedAt: base,
		},
		{
			ID:        "snooze_h1",
			Title:     "Habit Reminder",
			Body:      "Don't forget to complete your habit!",
			Category:  "HABIT_REMINDER",
			UserInfo:  map[string]string{"habitId": "h1"},
			Trigger:   models.IntervalTrigger(15 * time.Minute),
			CreatedAt: base.Add(time.Minute),
		},
	}
	for _, req := range requests {
		if err := store.SaveNotificationRequest(req); err != nil {
			t.Fatalf("failed to save request %s: %v", req.ID, err)
		}
	}

	got, err := store.GetNotificationRequests()
	if err != nil {
		t.Fatalf("failed to get requests: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(got))
	}
	if got[0].ID != "habit_h1" || got[0].Trigger != requests[0].Trigger || got[0].UserInfo["habitId"] != "h1" {
		t.Errorf("unexpected first request: %+v", got[0])
	}
	if got[1].Trigger.Kind != models.TriggerInterval || got[1].Trigger.DelaySeconds != 900 {
		t.Errorf("unexpected snooze trigger: %+v", got[1].Trigger)
	}

	if err := store.DeleteNotificationRequests("snooze_h1"); err != nil {
		t.Fatalf("failed to delete request: %v", err)
	}
	got, _ = store.GetNotificationRequests()
	if len(got) != 1 || got[0].ID != "habit_h1" {
		t.Errorf("expected only habit_h1 to remain, got %v", got)
	}

	if err := store.DeleteAllNotificationRequests(); err != nil {
		t.Fatalf("failed to delete all requests: %v", err)
	}
	got, _ = store.GetNotificationRequests()
	if len(got) != 0 {
		t.Errorf("expected no requests, got %d", len(got))
	}
}

func testDeliveries(t *testing.T, store storage.Provider) {
	if ok, err := store.HasDelivery("habit_h1", "2024-06-01T09:00"); err != nil || ok {
		t.Fatalf("expected no delivery, got ok=%v err=%v", ok, err)
	}

	if err := store.RecordDelivery("habit_h1", "2024-06-01T09:00", base); err != nil {
		t.Fatalf("failed to record delivery: %v", err)
	}
	// Recording twice is harmless.
	if err := store.RecordDelivery("habit_h1", "2024-06-01T09:00", base); err != nil {
		t.Fatalf("failed to record duplicate delivery: %v", err)
	}
	if err := store.RecordDelivery("habit_h1", "2024-06-09T09:00", base.AddDate(0, 0, 8)); err != nil {
		t.Fatalf("failed to record delivery: %v", err)
	}

	if ok, err := store.HasDelivery("habit_h1", "2024-06-01T09:00"); err != nil || !ok {
		t.Fatalf("expected delivery, got ok=%v err=%v", ok, err)
	}

	pruned, err := store.PruneDeliveries(base.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("failed to prune deliveries: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned delivery, got %d", pruned)
	}
	if ok, _ := store.HasDelivery("habit_h1", "2024-06-09T09:00"); !ok {
		t.Error("expected recent delivery to survive pruning")
	}
}

func habitIDs(habits []models.Habit) []string {
	ids := make([]string, len(habits))
	for i, h := range habits {
		ids[i] = h.ID
	}
	return ids
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
