package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage"
)

type habitRow struct {
	ID                string         `db:"id"`
	Title             string         `db:"title"`
	CreatedAt         time.Time      `db:"created_at"`
	IsArchived        bool           `db:"is_archived"`
	ArchivedAt        sql.NullTime   `db:"archived_at"`
	ReminderTime      sql.NullString `db:"reminder_time"`
	HasGlobalReminder bool           `db:"has_global_reminder"`
}

type completionRow struct {
	HabitID string `db:"habit_id"`
	Day     string `db:"day"`
}

func toHabitRow(h models.Habit) habitRow {
	row := habitRow{
		ID:                h.ID,
		Title:             h.Title,
		CreatedAt:         h.CreatedAt,
		IsArchived:        h.IsArchived,
		HasGlobalReminder: h.HasGlobalReminder,
	}
	if h.ArchivedAt != nil {
		row.ArchivedAt = sql.NullTime{Time: *h.ArchivedAt, Valid: true}
	}
	if h.ReminderTime != nil {
		row.ReminderTime = sql.NullString{String: h.ReminderTime.String(), Valid: true}
	}
	return row
}

func (r habitRow) toModel() (models.Habit, error) {
	h := models.Habit{
		ID:                r.ID,
		Title:             r.Title,
		CreatedAt:         r.CreatedAt,
		IsArchived:        r.IsArchived,
		HasGlobalReminder: r.HasGlobalReminder,
	}
	if r.ArchivedAt.Valid {
		t := r.ArchivedAt.Time
		h.ArchivedAt = &t
	}
	if r.ReminderTime.Valid {
		rt, err := models.ParseTimeOfDay(r.ReminderTime.String)
		if err != nil {
			return models.Habit{}, fmt.Errorf("failed to parse reminder_time for %s: %w", r.ID, err)
		}
		h.ReminderTime = &rt
	}
	return h, nil
}

func (s *Store) SaveHabits(habits ...models.Habit) error {
	if len(habits) == 0 {
		return nil
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, h := range habits {
		if _, err := tx.NamedExec(`
			INSERT INTO habits (id, title, created_at, is_archived, archived_at, reminder_time, has_global_reminder)
			VALUES (:id, :title, :created_at, :is_archived, :archived_at, :reminder_time, :has_global_reminder)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				is_archived = EXCLUDED.is_archived,
				archived_at = EXCLUDED.archived_at,
				reminder_time = EXCLUDED.reminder_time,
				has_global_reminder = EXCLUDED.has_global_reminder
		`, toHabitRow(h)); err != nil {
			return fmt.Errorf("failed to save habit %s: %w", h.ID, err)
		}

		if _, err := tx.Exec("DELETE FROM habit_completions WHERE habit_id = $1", h.ID); err != nil {
			return fmt.Errorf("failed to clear completions for %s: %w", h.ID, err)
		}
		for _, day := range h.CompletionDates {
			if _, err := tx.Exec(`
				INSERT INTO habit_completions (habit_id, day, completed_on) VALUES ($1, $2, $3)
				ON CONFLICT (habit_id, day) DO NOTHING
			`, h.ID, day.Format(constants.DateFormat), day); err != nil {
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
	stmt := `SELECT id, title, created_at, is_archived, archived_at, reminder_time, has_global_reminder FROM habits WHERE TRUE`
	var args []interface{}
	if !query.IncludeArchived {
		stmt += " AND is_archived = FALSE"
	}
	if len(query.IDs) > 0 {
		stmt += " AND id IN (?)"
		args = append(args, query.IDs)
	}
	stmt += " ORDER BY created_at ASC, id ASC"

	stmt, args, err := s.expand(stmt, args)
	if err != nil {
		return nil, err
	}

	var rows []habitRow
	if err := s.db.Select(&rows, stmt, args...); err != nil {
		return nil, err
	}

	habits := make([]models.Habit, 0, len(rows))
	index := make(map[string]int, len(rows))
	for _, row := range rows {
		h, err := row.toModel()
		if err != nil {
			return nil, err
		}
		index[h.ID] = len(habits)
		habits = append(habits, h)
	}
	if len(habits) == 0 {
		return habits, nil
	}

	completionStmt := "SELECT habit_id, day FROM habit_completions"
	var completionArgs []interface{}
	if len(query.IDs) > 0 {
		completionStmt += " WHERE habit_id IN (?)"
		completionArgs = append(completionArgs, query.IDs)
	}
	completionStmt += " ORDER BY habit_id, day"

	completionStmt, completionArgs, err = s.expand(completionStmt, completionArgs)
	if err != nil {
		return nil, err
	}

	var completions []completionRow
	if err := s.db.Select(&completions, completionStmt, completionArgs...); err != nil {
		return nil, err
	}
	for _, c := range completions {
		i, ok := index[c.HabitID]
		if !ok {
			continue
		}
		day, err := storage.ParseDay(c.Day)
		if err != nil {
			return nil, err
		}
		habits[i].CompletionDates = append(habits[i].CompletionDates, day)
	}

	return habits, nil
}

// expand rewrites IN (?) clauses for slice arguments and rebinds to $n placeholders.
func (s *Store) expand(stmt string, args []interface{}) (string, []interface{}, error) {
	if len(args) > 0 {
		var err error
		stmt, args, err = sqlx.In(stmt, args...)
		if err != nil {
			return "", nil, err
		}
	}
	return s.db.Rebind(stmt), args, nil
}
