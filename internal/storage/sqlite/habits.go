package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage"
)

// timestampFormat is fixed-width so TEXT columns sort chronologically.
const timestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

func parseTimestamp(column, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return t, nil
}

func (s *Store) SaveHabits(habits ...models.Habit) error {
	if len(habits) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	upsert, err := tx.Prepare(`
		INSERT INTO habits (id, title, created_at, is_archived, archived_at, reminder_time, has_global_reminder)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			is_archived = excluded.is_archived,
			archived_at = excluded.archived_at,
			reminder_time = excluded.reminder_time,
			has_global_reminder = excluded.has_global_reminder
	`)
	if err != nil {
		return err
	}
	defer upsert.Close()

	insertCompletion, err := tx.Prepare(`
		INSERT INTO habit_completions (habit_id, day, completed_on) VALUES (?, ?, ?)
		ON CONFLICT(habit_id, day) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer insertCompletion.Close()

	for _, h := range habits {
		var archivedAt, reminderTime sql.NullString
		if h.ArchivedAt != nil {
			archivedAt = sql.NullString{String: formatTimestamp(*h.ArchivedAt), Valid: true}
		}
		if h.ReminderTime != nil {
			reminderTime = sql.NullString{String: h.ReminderTime.String(), Valid: true}
		}

		if _, err := upsert.Exec(h.ID, h.Title, formatTimestamp(h.CreatedAt), h.IsArchived, archivedAt, reminderTime, h.HasGlobalReminder); err != nil {
			return fmt.Errorf("failed to save habit %s: %w", h.ID, err)
		}

		if _, err := tx.Exec("DELETE FROM habit_completions WHERE habit_id = ?", h.ID); err != nil {
			return fmt.Errorf("failed to clear completions for %s: %w", h.ID, err)
		}
		for _, day := range h.CompletionDates {
			if _, err := insertCompletion.Exec(h.ID, day.Format(constants.DateFormat), day.Format(time.RFC3339)); err != nil {
				return fmt.Errorf("failed to save completion for %s: %w", h.ID, err)
			}
		}
	}

	return tx.Commit()
}

func (s *Store) GetHabit(id string) (models.Habit, error) {
	habits, err := s.FetchHabits(storage.HabitQuery{IncludeArchived: true, IDs: []string{id}})
	if err != nil {
		return models.Habit{}, err
	}
	if len(habits) == 0 {
		return models.Habit{}, storage.ErrHabitNotFound
	}
	return habits[0], nil
}

func (s *Store) FetchHabits(query storage.HabitQuery) ([]models.Habit, error) {
	var (
		where []string
		args  []interface{}
	)
	if !query.IncludeArchived {
		where = append(where, "is_archived = 0")
	}
	if len(query.IDs) > 0 {
		where = append(where, "id IN ("+placeholders(len(query.IDs))+")")
		for _, id := range query.IDs {
			args = append(args, id)
		}
	}

	stmt := `SELECT id, title, created_at, is_archived, archived_at, reminder_time, has_global_reminder FROM habits`
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.Query(stmt, args...)
	if err != nil {
		return nil, err
	}

	var habits []models.Habit
	index := make(map[string]int)
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[h.ID] = len(habits)
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(habits) == 0 {
		return habits, nil
	}

	if err := s.attachCompletions(habits, index, query.IDs); err != nil {
		return nil, err
	}
	return habits, nil
}

func (s *Store) attachCompletions(habits []models.Habit, index map[string]int, ids []string) error {
	stmt := "SELECT habit_id, day FROM habit_completions"
	var args []interface{}
	if len(ids) > 0 {
		stmt += " WHERE habit_id IN (" + placeholders(len(ids)) + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	}
	stmt += " ORDER BY habit_id, day"

	rows, err := s.db.Query(stmt, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var habitID, dayValue string
		if err := rows.Scan(&habitID, &dayValue); err != nil {
			return err
		}
		i, ok := index[habitID]
		if !ok {
			continue
		}
		day, err := storage.ParseDay(dayValue)
		if err != nil {
			return err
		}
		habits[i].CompletionDates = append(habits[i].CompletionDates, day)
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanHabit(row scanner) (models.Habit, error) {
	var h models.Habit
	var createdAt string
	var archivedAt, reminderTime sql.NullString

	if err := row.Scan(&h.ID, &h.Title, &createdAt, &h.IsArchived, &archivedAt, &reminderTime, &h.HasGlobalReminder); err != nil {
		return models.Habit{}, err
	}

	var err error
	h.CreatedAt, err = parseTimestamp("created_at", createdAt)
	if err != nil {
		return models.Habit{}, err
	}
	if archivedAt.Valid {
		t, err := parseTimestamp("archived_at", archivedAt.String)
		if err != nil {
			return models.Habit{}, err
		}
		h.ArchivedAt = &t
	}
	if reminderTime.Valid {
		rt, err := models.ParseTimeOfDay(reminderTime.String)
		if err != nil {
			return models.Habit{}, fmt.Errorf("failed to parse reminder_time: %w", err)
		}
		h.ReminderTime = &rt
	}

	return h, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
