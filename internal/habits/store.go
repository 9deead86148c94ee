// Package habits owns habit records and their completion history. It is the
// only writer of habit state; every mutation is persisted before it returns.
package habits

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage"
	"github.com/julianstephens/habitual/internal/utils"
)

const resource = "habit"

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the calendar used to normalize completion days.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithIDGenerator overrides how new habit ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// Store serializes habit mutations behind a single writer lock. Reads share
// the lock and always return copies.
type Store struct {
	mu       sync.RWMutex
	provider storage.Provider
	now      func() time.Time
	loc      *time.Location
	newID    func() string
	events   *broadcaster
}

func New(provider storage.Provider, opts ...Option) *Store {
	s := &Store{
		provider: provider,
		now:      time.Now,
		loc:      time.Local,
		newID:    func() string { return uuid.New().String() },
		events:   &broadcaster{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the calendar location used for day boundaries.
func (s *Store) Location() *time.Location {
	return s.loc
}

// Now returns the current time in the store's location.
func (s *Store) Now() time.Time {
	return s.now().In(s.loc)
}

// Today returns midnight of the current day.
func (s *Store) Today() time.Time {
	return utils.StartOfDay(s.now(), s.loc)
}

// Subscribe registers fn for change events and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	return s.events.subscribe(fn)
}

// Create adds a new active habit with the given title.
func (s *Store) Create(title string) (models.Habit, error) {
	return s.CreateWith(title, models.HabitUpdate{})
}

// CreateWith adds a new habit and applies the reminder fields of init.
func (s *Store) CreateWith(title string, init models.HabitUpdate) (models.Habit, error) {
	habit := models.Habit{
		Title:     strings.TrimSpace(title),
		CreatedAt: s.now(),
	}
	init.Title = nil
	if err := applyUpdate(&habit, init); err != nil {
		return models.Habit{}, err
	}
	if err := habit.Validate(); err != nil {
		return models.Habit{}, apperrors.Validation("create", resource, err.Error())
	}
	habit.ID = s.newID()

	s.mu.Lock()
	err := s.provider.SaveHabits(habit)
	s.mu.Unlock()
	if err != nil {
		return models.Habit{}, apperrors.Storage("create", resource, habit.ID, err)
	}

	logger.Debug("Created habit", "id", habit.ID, "title", habit.Title)
	s.events.publish(Event{Kind: EventCreated, HabitID: habit.ID})
	return habit, nil
}

// Get returns a habit by id, including archived habits.
func (s *Store) Get(id string) (models.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load("get", id, true)
}

// ListActive returns unarchived habits ordered by creation time.
func (s *Store) ListActive() ([]models.Habit, error) {
	return s.list(storage.HabitQuery{})
}

// ListAll returns every habit, archived included, ordered by creation time.
func (s *Store) ListAll() ([]models.Habit, error) {
	return s.list(storage.HabitQuery{IncludeArchived: true})
}

func (s *Store) list(query storage.HabitQuery) ([]models.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	habits, err := s.provider.FetchHabits(query)
	if err != nil {
		return nil, apperrors.Storage("list", resource+"s", "", err)
	}
	out := make([]models.Habit, len(habits))
	for i, h := range habits {
		out[i] = h.Clone()
		s.normalize(&out[i])
	}
	return out, nil
}

// Archive soft-deletes a habit. Its history stays retrievable through Get.
func (s *Store) Archive(id string) (models.Habit, error) {
	return s.mutate("archive", id, EventArchived, func(h *models.Habit) error {
		now := s.now()
		h.IsArchived = true
		h.ArchivedAt = &now
		return nil
	})
}

// Unarchive restores an archived habit to the active list.
func (s *Store) Unarchive(id string) (models.Habit, error) {
	s.mu.Lock()
	habit, err := s.load("unarchive", id, true)
	if err != nil {
		s.mu.Unlock()
		return models.Habit{}, err
	}
	if !habit.IsArchived {
		s.mu.Unlock()
		return habit, nil
	}
	habit.IsArchived = false
	habit.ArchivedAt = nil
	err = s.provider.SaveHabits(habit)
	s.mu.Unlock()
	if err != nil {
		return models.Habit{}, apperrors.Storage("unarchive", resource, id, err)
	}

	s.events.publish(Event{Kind: EventUnarchived, HabitID: id})
	return habit, nil
}

// Update changes the title and reminder fields of an active habit.
func (s *Store) Update(id string, update models.HabitUpdate) (models.Habit, error) {
	return s.mutate("update", id, EventUpdated, func(h *models.Habit) error {
		return applyUpdate(h, update)
	})
}

// RecordCompletion marks the habit complete on date's calendar day. Recording
// the same day twice leaves a single entry.
func (s *Store) RecordCompletion(id string, date time.Time) (models.Habit, error) {
	day := utils.StartOfDay(date, s.loc)
	return s.mutate("record completion", id, EventCompletionChanged, func(h *models.Habit) error {
		addDay(h, day)
		return nil
	})
}

// RemoveCompletion clears any completion on date's calendar day.
func (s *Store) RemoveCompletion(id string, date time.Time) (models.Habit, error) {
	day := utils.StartOfDay(date, s.loc)
	return s.mutate("remove completion", id, EventCompletionChanged, func(h *models.Habit) error {
		h.CompletionDates = removeDay(h.CompletionDates, day)
		return nil
	})
}

// ToggleCompletion flips completion on date's calendar day and reports the new state.
func (s *Store) ToggleCompletion(id string, date time.Time) (models.Habit, bool, error) {
	day := utils.StartOfDay(date, s.loc)
	var completed bool
	habit, err := s.mutate("toggle completion", id, EventCompletionChanged, func(h *models.Habit) error {
		if containsDay(h.CompletionDates, day) {
			h.CompletionDates = removeDay(h.CompletionDates, day)
			completed = false
		} else {
			addDay(h, day)
			completed = true
		}
		return nil
	})
	return habit, completed, err
}

// mutate loads an active habit, applies fn and persists the result under the write lock.
func (s *Store) mutate(op, id string, kind EventKind, fn func(*models.Habit) error) (models.Habit, error) {
	s.mu.Lock()
	habit, err := s.load(op, id, false)
	if err != nil {
		s.mu.Unlock()
		return models.Habit{}, err
	}
	if err := fn(&habit); err != nil {
		s.mu.Unlock()
		return models.Habit{}, err
	}
	err = s.provider.SaveHabits(habit)
	s.mu.Unlock()
	if err != nil {
		return models.Habit{}, apperrors.Storage(op, resource, id, err)
	}

	s.events.publish(Event{Kind: kind, HabitID: id})
	return habit, nil
}

// load fetches one habit. Callers must hold s.mu.
func (s *Store) load(op, id string, includeArchived bool) (models.Habit, error) {
	habit, err := s.provider.GetHabit(id)
	if apperrors.Is(err, storage.ErrHabitNotFound) {
		return models.Habit{}, apperrors.NotFound(op, resource, id)
	}
	if err != nil {
		return models.Habit{}, apperrors.Storage(op, resource, id, err)
	}
	if habit.IsArchived && !includeArchived {
		return models.Habit{}, apperrors.NotFound(op, resource, id)
	}
	habit = habit.Clone()
	s.normalize(&habit)
	return habit, nil
}

// normalize places stored completion days on this store's calendar,
// dropping duplicates and zero values. The stored date is kept as-is so a
// timezone change never moves a completed day.
func (s *Store) normalize(h *models.Habit) {
	stored := h.CompletionDates
	h.CompletionDates = make([]time.Time, 0, len(stored))
	for _, d := range stored {
		if d.IsZero() {
			continue
		}
		addDay(h, time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.loc))
	}
}

func applyUpdate(h *models.Habit, update models.HabitUpdate) error {
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return apperrors.Validation("update", resource, "title must not be empty")
		}
		h.Title = title
	}
	if update.ClearReminder {
		h.ReminderTime = nil
	}
	if update.ReminderTime != nil {
		if err := update.ReminderTime.Validate(); err != nil {
			return apperrors.Validation("update", resource, err.Error())
		}
		rt := *update.ReminderTime
		h.ReminderTime = &rt
	}
	if update.HasGlobalReminder != nil {
		h.HasGlobalReminder = *update.HasGlobalReminder
	}
	return nil
}

func containsDay(days []time.Time, day time.Time) bool {
	for _, d := range days {
		if d.Equal(day) {
			return true
		}
	}
	return false
}

// addDay inserts day keeping the completions sorted and unique.
func addDay(h *models.Habit, day time.Time) {
	if containsDay(h.CompletionDates, day) {
		return
	}
	h.CompletionDates = append(h.CompletionDates, day)
	h.SortCompletions()
}

func removeDay(days []time.Time, day time.Time) []time.Time {
	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		if !d.Equal(day) {
			out = append(out, d)
		}
	}
	return out
}
