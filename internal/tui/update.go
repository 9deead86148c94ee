package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	apperrors "github.com/julianstephens/habitual/internal/errors"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	}

	switch m.state {
	case StateAddHabit, StateEditHabit:
		return m.updateHabitForm(msg)
	case StateEditSettings:
		return m.updateSettingsForm(msg)
	case StateConfirmArchive:
		return m.updateConfirmArchive(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Tab):
		m.state = (m.state + 1) % tabCount
		return m, nil
	case key.Matches(keyMsg, m.keys.ShiftTab):
		m.state = (m.state - 1 + tabCount) % tabCount
		return m, nil
	case key.Matches(keyMsg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(keyMsg, m.keys.Refresh):
		m.refresh()
		m.status = ""
		return m, nil
	}

	switch m.state {
	case StateToday:
		return m.updateToday(keyMsg)
	case StateSettings:
		if key.Matches(keyMsg, m.keys.Edit) {
			m.settingsForm = NewSettingsFormModel(m.cfg)
			m.form = NewSettingsForm(m.settingsForm)
			m.previousState = m.state
			m.state = StateEditSettings
			return m, m.form.Init()
		}
	}
	return m, nil
}

func (m Model) updateToday(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		h, ok := m.Selected()
		if !ok {
			return m, nil
		}
		_, done, err := m.habits.ToggleCompletion(h.ID, m.today)
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		if done {
			m.status = fmt.Sprintf("Marked %q done", h.Title)
		} else {
			m.status = fmt.Sprintf("Cleared %q", h.Title)
		}
		m.refresh()
	case key.Matches(msg, m.keys.Add):
		m.habitForm = &HabitFormModel{}
		m.editingID = ""
		m.form = NewHabitForm(m.habitForm)
		m.previousState = m.state
		m.state = StateAddHabit
		return m, m.form.Init()
	case key.Matches(msg, m.keys.Edit):
		h, ok := m.Selected()
		if !ok {
			return m, nil
		}
		m.habitForm = HabitFormFor(h)
		m.editingID = h.ID
		m.form = NewHabitForm(m.habitForm)
		m.previousState = m.state
		m.state = StateEditHabit
		return m, m.form.Init()
	case key.Matches(msg, m.keys.Archive):
		h, ok := m.Selected()
		if !ok {
			return m, nil
		}
		m.archiveID = h.ID
		m.previousState = m.state
		m.state = StateConfirmArchive
	}
	return m, nil
}

func (m Model) updateConfirmArchive(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Confirm):
		h, err := m.habits.Archive(m.archiveID)
		if err != nil {
			m.errMsg = err.Error()
		} else {
			m.status = fmt.Sprintf("Archived %q", h.Title)
		}
		m.archiveID = ""
		m.state = m.previousState
		m.refresh()
	case key.Matches(keyMsg, m.keys.Cancel):
		m.archiveID = ""
		m.state = m.previousState
	}
	return m, nil
}

func (m Model) updateHabitForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = m.previousState
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		if err := m.saveHabitForm(); err != nil {
			// Stay on the form so the user can correct it or press esc.
			m.errMsg = err.Error()
			m.form.State = huh.StateNormal
			return m, cmd
		}
		m.state = m.previousState
		m.refresh()
	case huh.StateAborted:
		m.state = m.previousState
	}
	return m, cmd
}

func (m *Model) saveHabitForm() error {
	update, err := m.habitForm.Update()
	if err != nil {
		return err
	}
	if m.editingID == "" {
		h, err := m.habits.CreateWith(m.habitForm.Title, update)
		if err != nil {
			return err
		}
		m.status = fmt.Sprintf("Added %q", h.Title)
		return nil
	}
	h, err := m.habits.Update(m.editingID, update)
	if err != nil {
		return err
	}
	m.status = fmt.Sprintf("Updated %q", h.Title)
	return nil
}

func (m Model) updateSettingsForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = m.previousState
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.state = m.previousState
		failure := m.saveSettingsForm()
		m.refresh()
		if failure != "" {
			m.errMsg = failure
		}
	case huh.StateAborted:
		m.state = m.previousState
	}
	return m, cmd
}

// saveSettingsForm applies the form and returns a message for the user on failure.
func (m *Model) saveSettingsForm() string {
	update, err := m.settingsForm.Update(m.cfg)
	if err != nil {
		return err.Error()
	}
	if update.IsEmpty() {
		return ""
	}
	if err := m.updater.UpdateSettings(context.Background(), update); err != nil {
		if hint := apperrors.Hint(err); hint != "" {
			return fmt.Sprintf("%v (%s)", err, hint)
		}
		return err.Error()
	}
	m.status = "Settings saved"
	return ""
}
