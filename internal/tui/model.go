package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/settings"
)

type SessionState int

const (
	StateToday SessionState = iota
	StateStats
	StateSettings
	StateAddHabit
	StateEditHabit
	StateEditSettings
	StateConfirmArchive
)

const tabCount = 3

var tabTitles = []string{"Today", "Stats", "Settings"}

// Habits is the habit store surface the TUI drives.
type Habits interface {
	ListActive() ([]models.Habit, error)
	CreateWith(title string, init models.HabitUpdate) (models.Habit, error)
	Update(id string, update models.HabitUpdate) (models.Habit, error)
	Archive(id string) (models.Habit, error)
	ToggleCompletion(id string, date time.Time) (models.Habit, bool, error)
	Today() time.Time
	Location() *time.Location
}

// Settings reads the reminder configuration.
type Settings interface {
	Snapshot() (models.ReminderSettings, error)
}

// SettingsUpdater applies settings changes, asking for notification
// permission when a reminder is switched on.
type SettingsUpdater interface {
	UpdateSettings(ctx context.Context, u settings.Update) error
}

type Model struct {
	habits   Habits
	settings Settings
	updater  SettingsUpdater

	state         SessionState
	previousState SessionState
	keys          KeyMap
	help          help.Model

	items    []models.Habit
	cursor   int
	cfg      models.ReminderSettings
	today    time.Time
	status   string
	errMsg   string
	quitting bool
	width    int
	height   int

	form         *huh.Form
	habitForm    *HabitFormModel
	settingsForm *SettingsFormModel
	editingID    string
	archiveID    string
}

func NewModel(h Habits, st Settings, updater SettingsUpdater) Model {
	m := Model{
		habits:   h,
		settings: st,
		updater:  updater,
		state:    StateToday,
		keys:     DefaultKeyMap(),
		help:     help.New(),
	}
	m.refresh()
	return m
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	switch m.state {
	case StateToday:
		keys = append(keys, m.keys.Toggle, m.keys.Add)
	case StateSettings:
		keys = append(keys, m.keys.Edit)
	case StateConfirmArchive:
		return []key.Binding{m.keys.Confirm, m.keys.Cancel}
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}

	var actions []key.Binding
	switch m.state {
	case StateToday:
		actions = []key.Binding{m.keys.Up, m.keys.Down, m.keys.Toggle, m.keys.Add, m.keys.Edit, m.keys.Archive, m.keys.Refresh}
	case StateStats:
		actions = []key.Binding{m.keys.Refresh}
	case StateSettings:
		actions = []key.Binding{m.keys.Edit}
	}
	return [][]key.Binding{global, actions}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Selected returns the habit under the cursor.
func (m Model) Selected() (models.Habit, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return models.Habit{}, false
	}
	return m.items[m.cursor], true
}

// refresh reloads habits and settings, keeping the cursor in range.
func (m *Model) refresh() {
	m.today = m.habits.Today()

	items, err := m.habits.ListActive()
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.items = items

	cfg, err := m.settings.Snapshot()
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.cfg = cfg
	m.errMsg = ""

	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
