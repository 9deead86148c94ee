// Package settings holds the reminder configuration consumed by the scheduler.
package settings

import (
	"strconv"
	"strings"
	"sync"

	"github.com/julianstephens/habitual/internal/constants"
	apperrors "github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
)

// Backend is keyed string storage. SetSettings must write all values or none.
type Backend interface {
	GetSetting(key string) (string, bool, error)
	SetSetting(key, value string) error
	SetSettings(values map[string]string) error
}

// Listener is called with the keys changed by a successful update.
type Listener func(keys []string)

// Update carries optional changes. Nil fields are left untouched.
type Update struct {
	GlobalEnabled   *bool
	GlobalTime      *models.TimeOfDay
	ClearGlobalTime bool
	EveningEnabled  *bool
	EveningTime     *models.TimeOfDay
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.GlobalEnabled == nil && u.GlobalTime == nil && !u.ClearGlobalTime && u.EveningEnabled == nil && u.EveningTime == nil
}

// EnablesReminders reports whether applying u turns on a reminder that needs permission.
func (u Update) EnablesReminders() bool {
	return (u.GlobalEnabled != nil && *u.GlobalEnabled) || (u.EveningEnabled != nil && *u.EveningEnabled)
}

// Store reads settings lazily, writing documented defaults where the first read requires it.
type Store struct {
	mu        sync.Mutex
	backend   Backend
	listeners []Listener
}

func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Subscribe registers fn for change notifications.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) GlobalReminderEnabled() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getBool(constants.SettingGlobalReminderEnabled, constants.DefaultGlobalReminderEnabled, false)
}

// GlobalReminderTime returns nil when no global time has been chosen.
func (s *Store) GlobalReminderTime() (*models.TimeOfDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOptionalTime(constants.SettingGlobalReminderTime)
}

// EveningReminderEnabled defaults to true; the default is stored on first read.
func (s *Store) EveningReminderEnabled() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getBool(constants.SettingEveningReminderEnabled, constants.DefaultEveningReminderEnabled, true)
}

// EveningReminderTime defaults to 21:00.
func (s *Store) EveningReminderTime() (models.TimeOfDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.getOptionalTime(constants.SettingEveningReminderTime)
	if err != nil {
		return models.TimeOfDay{}, err
	}
	if t == nil {
		return defaultEveningTime(), nil
	}
	return *t, nil
}

func (s *Store) SetGlobalReminderEnabled(enabled bool) error {
	return s.Apply(Update{GlobalEnabled: &enabled})
}

// SetGlobalReminderTime stores t, or clears the global time when t is nil.
func (s *Store) SetGlobalReminderTime(t *models.TimeOfDay) error {
	if t == nil {
		return s.Apply(Update{ClearGlobalTime: true})
	}
	return s.Apply(Update{GlobalTime: t})
}

func (s *Store) SetEveningReminderEnabled(enabled bool) error {
	return s.Apply(Update{EveningEnabled: &enabled})
}

func (s *Store) SetEveningReminderTime(t models.TimeOfDay) error {
	return s.Apply(Update{EveningTime: &t})
}

// Snapshot reads all reminder settings under one lock.
func (s *Store) Snapshot() (models.ReminderSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap models.ReminderSettings
	var err error
	if snap.GlobalEnabled, err = s.getBool(constants.SettingGlobalReminderEnabled, constants.DefaultGlobalReminderEnabled, false); err != nil {
		return snap, err
	}
	if snap.GlobalTime, err = s.getOptionalTime(constants.SettingGlobalReminderTime); err != nil {
		return snap, err
	}
	if snap.EveningEnabled, err = s.getBool(constants.SettingEveningReminderEnabled, constants.DefaultEveningReminderEnabled, true); err != nil {
		return snap, err
	}
	evening, err := s.getOptionalTime(constants.SettingEveningReminderTime)
	if err != nil {
		return snap, err
	}
	snap.EveningTime = defaultEveningTime()
	if evening != nil {
		snap.EveningTime = *evening
	}
	return snap, nil
}

// Apply validates u and persists its fields in one backend write, then
// notifies listeners once. On failure nothing is stored.
func (s *Store) Apply(u Update) error {
	if u.GlobalTime != nil {
		if err := u.GlobalTime.Validate(); err != nil {
			return apperrors.Validation("update", "settings", err.Error())
		}
	}
	if u.EveningTime != nil {
		if err := u.EveningTime.Validate(); err != nil {
			return apperrors.Validation("update", "settings", err.Error())
		}
	}

	values := make(map[string]string)
	var keys []string
	set := func(key, value string) {
		if _, ok := values[key]; !ok {
			keys = append(keys, key)
		}
		values[key] = value
	}
	if u.GlobalEnabled != nil {
		set(constants.SettingGlobalReminderEnabled, strconv.FormatBool(*u.GlobalEnabled))
	}
	if u.ClearGlobalTime {
		set(constants.SettingGlobalReminderTime, "")
	}
	if u.GlobalTime != nil {
		set(constants.SettingGlobalReminderTime, u.GlobalTime.String())
	}
	if u.EveningEnabled != nil {
		set(constants.SettingEveningReminderEnabled, strconv.FormatBool(*u.EveningEnabled))
	}
	if u.EveningTime != nil {
		set(constants.SettingEveningReminderTime, u.EveningTime.String())
	}
	if len(keys) == 0 {
		return nil
	}

	s.mu.Lock()
	if err := s.backend.SetSettings(values); err != nil {
		s.mu.Unlock()
		return apperrors.Storage("set", "setting", strings.Join(keys, ","), err)
	}
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(keys)
	}
	return nil
}

// getBool reads a boolean setting. When persistDefault is set, a missing
// value is written back so later reads see a stored value.
func (s *Store) getBool(key string, def, persistDefault bool) (bool, error) {
	value, ok, err := s.backend.GetSetting(key)
	if err != nil {
		return def, apperrors.Storage("get", "setting", key, err)
	}
	if !ok {
		if persistDefault {
			if err := s.backend.SetSetting(key, strconv.FormatBool(def)); err != nil {
				return def, apperrors.Storage("set", "setting", key, err)
			}
		}
		return def, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		logger.Warn("Ignoring malformed setting", "key", key, "value", value)
		return def, nil
	}
	return b, nil
}

func (s *Store) getOptionalTime(key string) (*models.TimeOfDay, error) {
	value, ok, err := s.backend.GetSetting(key)
	if err != nil {
		return nil, apperrors.Storage("get", "setting", key, err)
	}
	if !ok || value == "" {
		return nil, nil
	}
	t, err := models.ParseTimeOfDay(value)
	if err != nil {
		logger.Warn("Ignoring malformed setting", "key", key, "value", value)
		return nil, nil
	}
	return &t, nil
}

func defaultEveningTime() models.TimeOfDay {
	return models.TimeOfDay{Hour: constants.DefaultEveningReminderHour, Minute: constants.DefaultEveningReminderMinute}
}
