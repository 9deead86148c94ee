package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
)

// ErrHabitNotFound is returned when no habit row matches an id.
var ErrHabitNotFound = errors.New("habit not found")

// ParseDay reads a stored YYYY-MM-DD completion day as midnight UTC. Only the
// calendar date is meaningful; the habit store places it in its own location.
func ParseDay(value string) (time.Time, error) {
	day, err := time.ParseInLocation(constants.DateFormat, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse completion day %q: %w", value, err)
	}
	return day, nil
}

// HabitQuery filters FetchHabits. Results are always ordered by creation time ascending.
type HabitQuery struct {
	IncludeArchived bool
	// IDs restricts the result to the given habits when non-empty.
	IDs []string
}

// Provider is the persistence backend shared by the habit, settings and notification services.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Habits
	// SaveHabits upserts each habit and replaces its completion set in a single transaction.
	// Completion days are stored as calendar dates and come back from
	// GetHabit/FetchHabits as midnight UTC (see ParseDay).
	SaveHabits(habits ...models.Habit) error
	GetHabit(id string) (models.Habit, error)
	FetchHabits(query HabitQuery) ([]models.Habit, error)

	// Settings
	GetSetting(key string) (string, bool, error)
	SetSetting(key, value string) error
	// SetSettings writes every pair in a single transaction.
	SetSettings(values map[string]string) error
	GetAllSettings() (map[string]string, error)

	// Notification requests
	SaveNotificationRequest(models.NotificationRequest) error
	GetNotificationRequests() ([]models.NotificationRequest, error)
	DeleteNotificationRequests(ids ...string) error
	DeleteAllNotificationRequests() error

	// Notification deliveries
	HasDelivery(requestID, occurrence string) (bool, error)
	RecordDelivery(requestID, occurrence string, at time.Time) error
	PruneDeliveries(before time.Time) (int64, error)

	// Utils
	GetConfigPath() string
}
