package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitual/internal/completion"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/utils"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateToday:
		content = m.viewToday()
	case StateStats:
		content = m.viewStats()
	case StateSettings:
		content = m.viewSettings()
	case StateAddHabit, StateEditHabit, StateEditSettings:
		content = docStyle.Render(m.form.View())
	case StateConfirmArchive:
		content = m.viewConfirmArchive()
	}

	footer := []string{}
	if m.errMsg != "" {
		footer = append(footer, dangerStyle.Render("✗ "+m.errMsg))
	} else if m.status != "" {
		footer = append(footer, mutedStyle.Render(m.status))
	}
	footer = append(footer, m.help.View(m))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		content,
		lipgloss.JoinVertical(lipgloss.Left, footer...),
	)
}

func (m Model) viewTabs() string {
	active := m.state
	if active >= tabCount {
		active = m.previousState
	}
	var tabs []string
	for i, title := range tabTitles {
		if active == SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewToday() string {
	summary := completion.TodaysSummary(m.items, m.today)
	header := summaryStyle.Render(fmt.Sprintf("%s  %d/%d done (%d%%)",
		utils.FormatDate(m.today), summary.Completed, summary.Total, int(summary.Rate*100+0.5)))

	if len(m.items) == 0 {
		return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			header, "", mutedStyle.Render("No habits yet. Press 'a' to add one.")))
	}

	rows := []string{header, ""}
	for i, h := range m.items {
		prefix := "  "
		if i == m.cursor {
			prefix = cursorStyle.Render("› ")
		}

		line := pendingStyle.Render("[ ] " + h.Title)
		if completion.IsCompleted(h, m.today) {
			line = doneStyle.Render("[x] " + h.Title)
		}
		if n := completion.Streak(h, m.today); n > 0 {
			line += streakStyle.Render(fmt.Sprintf("  %d🔥", n))
		}
		if h.ShowsReminder(m.cfg.GlobalEnabled) {
			line += mutedStyle.Render("  ⏰")
		}
		rows = append(rows, prefix+line)
	}
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) viewStats() string {
	history := completion.History(m.items, m.today, constants.DefaultHistoryDays)
	rows := []string{summaryStyle.Render(fmt.Sprintf("Last %d days", constants.DefaultHistoryDays)), ""}
	for _, d := range history {
		bar := strings.Repeat("█", d.Completed) + strings.Repeat("░", max(len(m.items)-d.Completed, 0))
		rows = append(rows, fmt.Sprintf("%s  %s %d", d.Day.Format("Mon 01/02"), doneStyle.Render(bar), d.Completed))
	}

	if len(m.items) > 0 {
		rows = append(rows, "", summaryStyle.Render(fmt.Sprintf("%-24s %6s %7s %5s", "Habit", "Streak", "Longest", "Rate")))
		for _, h := range m.items {
			rate := completion.CompletionRate(h, constants.DefaultCompletionWindowDays, m.today)
			rows = append(rows, fmt.Sprintf("%-24s %6d %7d %4d%%",
				truncate(h.Title, 24),
				completion.Streak(h, m.today),
				completion.LongestStreak(h, m.habits.Location()),
				int(rate*100+0.5)))
		}
	}
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) viewSettings() string {
	globalTime := "unset"
	if m.cfg.GlobalTime != nil {
		globalTime = m.cfg.GlobalTime.String()
	}
	rows := []string{
		summaryStyle.Render("Reminders"),
		"",
		fmt.Sprintf("Global reminder:  %s", onOff(m.cfg.GlobalEnabled)),
		fmt.Sprintf("Global time:      %s", globalTime),
		fmt.Sprintf("Evening summary:  %s", onOff(m.cfg.EveningEnabled)),
		fmt.Sprintf("Evening time:     %s", m.cfg.EveningTime.String()),
		"",
		mutedStyle.Render("Press 'e' to edit"),
	}
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) viewConfirmArchive() string {
	title := m.archiveID
	for _, h := range m.items {
		if h.ID == m.archiveID {
			title = h.Title
		}
	}
	return lipgloss.Place(m.width, max(m.height-4, 0),
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(fmt.Sprintf("Archive %q?", title)),
			mutedStyle.Render("Its history is kept."),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}

func onOff(b bool) string {
	if b {
		return doneStyle.Render("on")
	}
	return mutedStyle.Render("off")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
