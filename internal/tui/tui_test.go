package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/habitual/internal/completion"
	apperrors "github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/habits"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/settings"
	"github.com/julianstephens/habitual/internal/storage/sqlite"
)

var fixedNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

type fakeUpdater struct {
	updates []settings.Update
	err     error
}

func (f *fakeUpdater) UpdateSettings(_ context.Context, u settings.Update) error {
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, u)
	return nil
}

func setupModel(t *testing.T, titles ...string) (Model, *habits.Store, *fakeUpdater) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hs := habits.New(store, habits.WithClock(func() time.Time { return fixedNow }), habits.WithLocation(time.UTC))
	for _, title := range titles {
		if _, err := hs.Create(title); err != nil {
			t.Fatalf("failed to create habit: %v", err)
		}
	}
	updater := &fakeUpdater{}
	return NewModel(hs, settings.New(store), updater), hs, updater
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(keyPress(k))
		m = next.(Model)
	}
	return m
}

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"Read", false},
		{"  Meditate ", false},
		{"", true},
		{"   ", true},
	}
	for _, tt := range tests {
		if err := ValidateTitle(tt.input); (err != nil) != tt.wantErr {
			t.Errorf("ValidateTitle(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidateTimeOfDay(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"", false},
		{"08:00", false},
		{"23:59", false},
		{"24:00", true},
		{"8am", true},
		{"12:60", true},
	}
	for _, tt := range tests {
		if err := ValidateTimeOfDay(tt.input); (err != nil) != tt.wantErr {
			t.Errorf("ValidateTimeOfDay(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestHabitFormUpdate(t *testing.T) {
	fm := &HabitFormModel{Title: " Read ", Reminder: "07:45"}
	u, err := fm.Update()
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if *u.Title != "Read" {
		t.Errorf("title = %q, want %q", *u.Title, "Read")
	}
	if u.ReminderTime == nil || *u.ReminderTime != models.MustTimeOfDay(7, 45) {
		t.Errorf("reminder = %v, want 07:45", u.ReminderTime)
	}
	if u.ClearReminder {
		t.Error("expected reminder to be kept")
	}

	fm.Reminder = ""
	u, err = fm.Update()
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if !u.ClearReminder || u.ReminderTime != nil {
		t.Error("expected an empty reminder to clear the reminder")
	}

	fm.Title = ""
	if _, err := fm.Update(); err == nil {
		t.Error("expected error for empty title")
	}
}

func TestSettingsFormUpdateOnlyCarriesChanges(t *testing.T) {
	current := models.ReminderSettings{
		EveningEnabled: true,
		EveningTime:    models.MustTimeOfDay(21, 0),
	}

	fm := NewSettingsFormModel(current)
	u, err := fm.Update(current)
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if !u.IsEmpty() {
		t.Errorf("unchanged form produced update %+v", u)
	}

	fm.GlobalEnabled = true
	fm.GlobalTime = "08:00"
	fm.EveningTime = "20:30"
	u, err = fm.Update(current)
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if u.GlobalEnabled == nil || !*u.GlobalEnabled {
		t.Error("expected global reminder to be enabled")
	}
	if u.GlobalTime == nil || *u.GlobalTime != models.MustTimeOfDay(8, 0) {
		t.Errorf("global time = %v, want 08:00", u.GlobalTime)
	}
	if u.EveningEnabled != nil {
		t.Error("evening enabled did not change and should stay nil")
	}
	if u.EveningTime == nil || *u.EveningTime != models.MustTimeOfDay(20, 30) {
		t.Errorf("evening time = %v, want 20:30", u.EveningTime)
	}

	withGlobal := current
	withGlobal.GlobalTime = models.MustTimeOfDay(8, 0).Ptr()
	fm = NewSettingsFormModel(withGlobal)
	fm.GlobalTime = ""
	u, err = fm.Update(withGlobal)
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if !u.ClearGlobalTime {
		t.Error("expected clearing the global time")
	}
}

func TestTabNavigation(t *testing.T) {
	m, _, _ := setupModel(t)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	if m.state != StateStats {
		t.Errorf("state = %v, want StateStats", m.state)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = next.(Model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = next.(Model)
	if m.state != StateSettings {
		t.Errorf("state = %v, want StateSettings after wrapping", m.state)
	}
}

func TestToggleMarksSelectedHabit(t *testing.T) {
	m, hs, _ := setupModel(t, "Read", "Run")

	m = press(t, m, "j", "x")

	run, err := hs.Get(m.items[1].ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !completion.IsCompleted(run, fixedNow) {
		t.Error("expected the second habit to be completed today")
	}
	if completion.IsCompleted(m.items[0], fixedNow) {
		t.Error("first habit should be untouched")
	}
	if !strings.Contains(m.View(), "1/2 done") {
		t.Errorf("view does not show the summary:\n%s", m.View())
	}

	m = press(t, m, "x")
	if completion.IsCompleted(m.items[1], fixedNow) {
		t.Error("second toggle should clear the completion")
	}
}

func TestCursorStaysInRange(t *testing.T) {
	m, _, _ := setupModel(t, "Read")

	m = press(t, m, "k", "k", "j", "j")
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}

	empty, _, _ := setupModel(t)
	empty = press(t, empty, "x", "e", "d")
	if empty.state != StateToday {
		t.Errorf("actions on an empty list changed state to %v", empty.state)
	}
}

func TestArchiveRequiresConfirmation(t *testing.T) {
	m, hs, _ := setupModel(t, "Read", "Run")

	m = press(t, m, "d")
	if m.state != StateConfirmArchive {
		t.Fatalf("state = %v, want StateConfirmArchive", m.state)
	}
	m = press(t, m, "n")
	if m.state != StateToday || len(m.items) != 2 {
		t.Fatalf("cancel should keep both habits, got %d in state %v", len(m.items), m.state)
	}

	archived, kept := m.items[0], m.items[1]
	m = press(t, m, "d", "y")
	if m.state != StateToday {
		t.Errorf("state = %v, want StateToday", m.state)
	}
	active, err := hs.ListActive()
	if err != nil {
		t.Fatalf("ListActive() error: %v", err)
	}
	if len(active) != 1 || active[0].ID != kept.ID {
		t.Errorf("active = %v, want only %q after archiving %q", active, kept.Title, archived.Title)
	}
	if len(m.items) != 1 {
		t.Errorf("model items = %d, want 1", len(m.items))
	}
}

func TestAddOpensHabitForm(t *testing.T) {
	m, _, _ := setupModel(t)

	m = press(t, m, "a")
	if m.state != StateAddHabit || m.form == nil {
		t.Fatalf("state = %v, want StateAddHabit with a form", m.state)
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	if m.state != StateToday {
		t.Errorf("esc should return to the list, got %v", m.state)
	}
}

func TestSaveHabitFormCreatesAndEdits(t *testing.T) {
	m, hs, _ := setupModel(t)

	m.habitForm = &HabitFormModel{Title: "Stretch", Reminder: "07:00"}
	if err := m.saveHabitForm(); err != nil {
		t.Fatalf("saveHabitForm() error: %v", err)
	}
	m.refresh()
	if len(m.items) != 1 || m.items[0].ReminderTime == nil {
		t.Fatalf("expected one habit with a reminder, got %+v", m.items)
	}

	m.editingID = m.items[0].ID
	m.habitForm = &HabitFormModel{Title: "Stretch more", Global: true}
	if err := m.saveHabitForm(); err != nil {
		t.Fatalf("saveHabitForm() error: %v", err)
	}
	h, err := hs.Get(m.editingID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if h.Title != "Stretch more" || !h.HasGlobalReminder || h.ReminderTime != nil {
		t.Errorf("unexpected habit after edit: %+v", h)
	}
}

func TestSaveSettingsForm(t *testing.T) {
	m, _, updater := setupModel(t)

	m.settingsForm = NewSettingsFormModel(m.cfg)
	m.settingsForm.GlobalEnabled = true
	if msg := m.saveSettingsForm(); msg != "" {
		t.Fatalf("saveSettingsForm() = %q", msg)
	}
	if len(updater.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(updater.updates))
	}

	updater.err = apperrors.PermissionDenied("update settings", "enable notifications")
	m.settingsForm.EveningEnabled = !m.cfg.EveningEnabled
	msg := m.saveSettingsForm()
	if !strings.Contains(msg, "enable notifications") {
		t.Errorf("expected the permission hint in %q", msg)
	}
}

func TestQuit(t *testing.T) {
	m, _, _ := setupModel(t)
	next, cmd := m.Update(keyPress("q"))
	m = next.(Model)
	if !m.quitting || cmd == nil {
		t.Error("expected quit")
	}
	if m.View() != "" {
		t.Error("quitting model should render nothing")
	}
}
