// Package reminders decides which reminder notifications should exist and
// keeps the notification backend in line with that decision.
package reminders

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/julianstephens/habitual/internal/constants"
	apperrors "github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/habits"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/notifier"
	"github.com/julianstephens/habitual/internal/settings"
	"github.com/julianstephens/habitual/internal/utils"
)

// Habits is the read side of the habit store plus the completion write used
// by notification actions.
type Habits interface {
	ListActive() ([]models.Habit, error)
	Get(id string) (models.Habit, error)
	RecordCompletion(id string, date time.Time) (models.Habit, error)
	Now() time.Time
	Today() time.Time
}

// Settings is the reminder configuration source.
type Settings interface {
	Snapshot() (models.ReminderSettings, error)
	Apply(u settings.Update) error
}

// Result describes one reconciliation pass.
type Result struct {
	Scheduled []string
	Failed    []string
	// Kept lists pending snoozes carried over from before the pass.
	Kept        []string
	ComputedFor string
}

// Scheduler reconciles the desired reminder set against a notification
// backend. Passes are serialized; ScheduleHabitReminders never blocks on
// the backend.
type Scheduler struct {
	habits   Habits
	settings Settings
	backend  notifier.Backend
	retry    utils.RetryPolicy

	passMu sync.Mutex

	mu      sync.Mutex
	trigger chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	last    Result
}

type Option func(*Scheduler)

// WithRetry sets the backoff used for backend calls.
func WithRetry(policy utils.RetryPolicy) Option {
	return func(s *Scheduler) { s.retry = policy }
}

func New(h Habits, st Settings, backend notifier.Backend, opts ...Option) *Scheduler {
	s := &Scheduler{
		habits:   h,
		settings: st,
		backend:  backend,
		retry:    utils.RetryPolicy{Attempts: constants.NotifyMaxRetries, Delay: constants.NotifyRetryDelay},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Desired computes the reminder set for the current state without touching
// the backend.
func (s *Scheduler) Desired() ([]models.NotificationRequest, error) {
	active, err := s.habits.ListActive()
	if err != nil {
		return nil, err
	}
	cfg, err := s.settings.Snapshot()
	if err != nil {
		return nil, err
	}
	return BuildRequests(active, cfg, s.habits.Today(), s.habits.Now()), nil
}

// Reconcile runs one full pass: every pending request is cancelled and the
// desired set is recreated. Snoozes for habits that are still active are
// re-added unchanged. A failed add is logged and the pass continues.
func (s *Scheduler) Reconcile(ctx context.Context) (Result, error) {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	active, err := s.habits.ListActive()
	if err != nil {
		return Result{}, err
	}
	cfg, err := s.settings.Snapshot()
	if err != nil {
		return Result{}, err
	}
	today := s.habits.Today()
	desired := BuildRequests(active, cfg, today, s.habits.Now())

	var pending []models.NotificationRequest
	err = utils.Retry(ctx, s.retry, func() error {
		var err error
		pending, err = s.backend.PendingRequests(ctx)
		return err
	})
	if err != nil {
		return Result{}, apperrors.Storage("reconcile", "notification", "", err)
	}
	snoozes := liveSnoozes(pending, active)

	if err := utils.Retry(ctx, s.retry, func() error { return s.backend.RemoveAll(ctx) }); err != nil {
		return Result{}, apperrors.Storage("reconcile", "notification", "", err)
	}

	result := Result{ComputedFor: utils.FormatDate(today)}
	for _, req := range snoozes {
		if s.add(ctx, req) {
			result.Kept = append(result.Kept, req.ID)
		} else {
			result.Failed = append(result.Failed, req.ID)
		}
	}
	for _, req := range desired {
		if s.add(ctx, req) {
			result.Scheduled = append(result.Scheduled, req.ID)
		} else {
			result.Failed = append(result.Failed, req.ID)
		}
	}

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	logger.Debug("Reconciled reminders", "scheduled", len(result.Scheduled), "kept", len(result.Kept), "failed", len(result.Failed))
	return result, nil
}

func (s *Scheduler) add(ctx context.Context, req models.NotificationRequest) bool {
	err := utils.Retry(ctx, s.retry, func() error { return s.backend.AddRequest(ctx, req) })
	if err != nil {
		logger.Error("Failed to schedule reminder", "id", req.ID, "error", err)
		return false
	}
	return true
}

// liveSnoozes returns the pending snoozes whose habit is still active.
func liveSnoozes(pending []models.NotificationRequest, active []models.Habit) []models.NotificationRequest {
	ids := make(map[string]bool, len(active))
	for _, h := range active {
		ids[h.ID] = true
	}
	var out []models.NotificationRequest
	for _, req := range pending {
		if !strings.HasPrefix(req.ID, constants.SnoozeReminderPrefix) {
			continue
		}
		if ids[req.UserInfo[constants.HabitIDKey]] {
			out = append(out, req)
		}
	}
	return out
}

// LastResult returns the outcome of the most recent pass.
func (s *Scheduler) LastResult() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// ScheduleHabitReminders requests a reconciliation pass and returns
// immediately. With a running worker, concurrent requests coalesce into a
// single pending pass; otherwise a detached pass is started.
func (s *Scheduler) ScheduleHabitReminders() {
	s.mu.Lock()
	trigger := s.trigger
	if trigger == nil {
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if trigger != nil {
		select {
		case trigger <- struct{}{}:
		default:
		}
		return
	}

	go func() {
		defer s.wg.Done()
		s.runPass(context.Background())
	}()
}

func (s *Scheduler) runPass(ctx context.Context) {
	if _, err := s.Reconcile(ctx); err != nil {
		logger.Error("Reminder reconciliation failed", "error", err)
	}
}

// Start runs the reconciliation worker until ctx ends or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.trigger != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	trigger := make(chan struct{}, 1)
	s.trigger = trigger
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-trigger:
				s.runPass(ctx)
			}
		}
	}()
}

// Stop ends the worker and waits for in-flight passes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.trigger = nil
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Wait blocks until every detached pass has finished.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	running := s.trigger != nil
	s.mu.Unlock()
	if running {
		return
	}
	s.wg.Wait()
}

// Watch subscribes the scheduler to habit and settings changes. Listeners
// only queue a pass; an archived habit's reminders go away with the pass's
// remove-all. The returned function stops habit notifications.
func (s *Scheduler) Watch(h *habits.Store, st *settings.Store) func() {
	st.Subscribe(func(keys []string) {
		logger.Debug("Settings changed", "keys", keys)
		s.ScheduleHabitReminders()
	})
	return h.Subscribe(func(e habits.Event) {
		logger.Debug("Habit changed", "kind", e.Kind, "id", e.HabitID)
		s.ScheduleHabitReminders()
	})
}

// RefreshIfStale reconciles when the pending evening reminder was computed
// for a day other than today, or is missing while enabled.
func (s *Scheduler) RefreshIfStale(ctx context.Context) (bool, error) {
	cfg, err := s.settings.Snapshot()
	if err != nil {
		return false, err
	}
	if !cfg.EveningEnabled {
		return false, nil
	}

	pending, err := s.backend.PendingRequests(ctx)
	if err != nil {
		return false, apperrors.Storage("refresh", "notification", "", err)
	}
	today := utils.FormatDate(s.habits.Today())
	for _, req := range pending {
		if req.ID == constants.EveningReminderID && req.UserInfo[constants.EveningComputedForKey] == today {
			return false, nil
		}
	}

	if _, err := s.Reconcile(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// CancelHabit removes the individual and snoozed reminders of a habit.
func (s *Scheduler) CancelHabit(ctx context.Context, habitID string) error {
	err := utils.Retry(ctx, s.retry, func() error {
		return s.backend.RemoveRequests(ctx, HabitReminderID(habitID), SnoozeReminderID(habitID))
	})
	if err != nil {
		return apperrors.Storage("cancel", "notification", habitID, err)
	}
	return nil
}

// UpdateSettings applies u. Turning a reminder on first asks the backend for
// permission; on denial nothing is saved.
func (s *Scheduler) UpdateSettings(ctx context.Context, u settings.Update) error {
	if u.IsEmpty() {
		return nil
	}
	if u.EnablesReminders() {
		granted, err := s.backend.RequestPermission(ctx)
		if err != nil {
			return apperrors.PermissionDenied("update settings", err.Error())
		}
		if !granted {
			return apperrors.PermissionDenied("update settings", constants.PermissionDeniedHint)
		}
	}
	return s.settings.Apply(u)
}
