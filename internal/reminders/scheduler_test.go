package reminders

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/habits"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/notifier"
	"github.com/julianstephens/habitual/internal/settings"
	"github.com/julianstephens/habitual/internal/storage/sqlite"
	"github.com/julianstephens/habitual/internal/utils"
)

var testNow = time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

type testEnv struct {
	habits   *habits.Store
	settings *settings.Store
	backend  *notifier.MemoryCenter
	sched    *Scheduler
	clock    *time.Time
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	provider := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := provider.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { provider.Close() })

	clock := testNow
	n := 0
	hs := habits.New(provider,
		habits.WithLocation(time.UTC),
		habits.WithClock(func() time.Time { return clock }),
		habits.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("h%d", n)
		}),
	)
	st := settings.New(provider)
	backend := notifier.NewMemoryCenter(true)

	return &testEnv{
		habits:   hs,
		settings: st,
		backend:  backend,
		sched:    New(hs, st, backend, WithRetry(utils.RetryPolicy{Attempts: 2, Delay: time.Millisecond})),
		clock:    &clock,
	}
}

func boolPtr(b bool) *bool { return &b }

func (e *testEnv) disableEvening(t *testing.T) {
	t.Helper()
	if err := e.settings.Apply(settings.Update{EveningEnabled: boolPtr(false)}); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) pendingIDs(t *testing.T) []string {
	t.Helper()
	pending, err := e.backend.PendingRequests(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	ids := make([]string, len(pending))
	for i, req := range pending {
		ids[i] = req.ID
	}
	sort.Strings(ids)
	return ids
}

func (e *testEnv) pending(t *testing.T, id string) (models.NotificationRequest, bool) {
	t.Helper()
	pending, _ := e.backend.PendingRequests(context.Background())
	for _, req := range pending {
		if req.ID == id {
			return req, true
		}
	}
	return models.NotificationRequest{}, false
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestIndividualReminderScenario(t *testing.T) {
	env := setupTestEnv(t)
	env.disableEvening(t)

	read, err := env.habits.CreateWith("Read", models.HabitUpdate{ReminderTime: models.MustTimeOfDay(9, 0).Ptr()})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.sched.Reconcile(context.Background()); err != nil {
		t.Fatal(err)
	}

	ids := env.pendingIDs(t)
	if !equalIDs(ids, []string{"habit_" + read.ID}) {
		t.Fatalf("expected only habit_%s, got %v", read.ID, ids)
	}

	req, _ := env.pending(t, "habit_"+read.ID)
	if req.UserInfo[constants.HabitIDKey] != read.ID {
		t.Errorf("expected habit id in user info, got %v", req.UserInfo)
	}
	if req.Trigger.Time != models.MustTimeOfDay(9, 0) || !req.Trigger.Repeats {
		t.Errorf("expected daily 09:00 trigger, got %s", req.Trigger)
	}
	if req.Body != "Time to work on: Read" {
		t.Errorf("unexpected body %q", req.Body)
	}
}

func TestGlobalReminderScenario(t *testing.T) {
	env := setupTestEnv(t)
	env.disableEvening(t)

	env.habits.Create("Read")
	env.habits.Create("Run")
	err := env.settings.Apply(settings.Update{
		GlobalEnabled: boolPtr(true),
		GlobalTime:    models.MustTimeOfDay(8, 0).Ptr(),
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.sched.Reconcile(context.Background()); err != nil {
		t.Fatal(err)
	}

	ids := env.pendingIDs(t)
	if !equalIDs(ids, []string{constants.GlobalReminderID}) {
		t.Fatalf("expected a single global reminder, got %v", ids)
	}
}

func TestGlobalReminderOverridesIndividual(t *testing.T) {
	env := setupTestEnv(t)
	env.disableEvening(t)

	env.habits.CreateWith("Read", models.HabitUpdate{ReminderTime: models.MustTimeOfDay(9, 0).Ptr()})
	env.settings.Apply(settings.Update{GlobalEnabled: boolPtr(true), GlobalTime: models.MustTimeOfDay(8, 0).Ptr()})

	env.sched.Reconcile(context.Background())
	if ids := env.pendingIDs(t); !equalIDs(ids, []string{constants.GlobalReminderID}) {
		t.Errorf("individual reminders should be suppressed, got %v", ids)
	}
}

func TestGlobalEnabledWithoutTimeFallsBackToIndividual(t *testing.T) {
	env := setupTestEnv(t)
	env.disableEvening(t)

	read, _ := env.habits.CreateWith("Read", models.HabitUpdate{ReminderTime: models.MustTimeOfDay(9, 0).Ptr()})
	env.settings.Apply(settings.Update{GlobalEnabled: boolPtr(true)})

	env.sched.Reconcile(context.Background())
	if ids := env.pendingIDs(t); !equalIDs(ids, []string{"habit_" + read.ID}) {
		t.Errorf("expected individual reminder, got %v", ids)
	}
}

func TestHabitOptedIntoGlobalGetsNoIndividualReminder(t *testing.T) {
	env := setupTestEnv(t)
	env.disableEvening(t)

	env.habits.CreateWith("Read", models.HabitUpdate{
		ReminderTime:      models.MustTimeOfDay(9, 0).Ptr(),
		HasGlobalReminder: boolPtr(true),
	})

	env.sched.Reconcile(context.Background())
	if ids := env.pendingIDs(t); len(ids) != 0 {
		t.Errorf("expected no reminders, got %v", ids)
	}
}

func TestEveningBody(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.sched.Reconcile(ctx)
	req, ok := env.pending(t, constants.EveningReminderID)
	if !ok {
		t.Fatal("evening reminder should be enabled by default")
	}
	if req.Body != constants.EveningBodyAllDone {
		t.Errorf("expected all-done body with no habits, got %q", req.Body)
	}
	if req.Trigger.Time != models.MustTimeOfDay(21, 0) {
		t.Errorf("expected 21:00 default, got %s", req.Trigger.Time)
	}
	if req.UserInfo[constants.EveningComputedForKey] != "2024-06-15" {
		t.Errorf("expected computedFor today, got %v", req.UserInfo)
	}

	read, _ := env.habits.Create("Read")
	env.sched.Reconcile(ctx)
	req, _ = env.pending(t, constants.EveningReminderID)
	if req.Body != "You have 1 incomplete habit: Read" {
		t.Errorf("unexpected body %q", req.Body)
	}

	env.habits.Create("Run")
	env.sched.Reconcile(ctx)
	req, _ = env.pending(t, constants.EveningReminderID)
	if req.Body != fmt.Sprintf(constants.EveningBodyManyFmt, 2) {
		t.Errorf("unexpected body %q", req.Body)
	}

	env.habits.RecordCompletion(read.ID, testNow)
	env.sched.Reconcile(ctx)
	req, _ = env.pending(t, constants.EveningReminderID)
	if req.Body != "You have 1 incomplete habit: Run" {
		t.Errorf("unexpected body %q", req.Body)
	}
}

func TestEveningDisabled(t *testing.T) {
	env := setupTestEnv(t)
	env.disableEvening(t)
	env.habits.Create("Read")

	env.sched.Reconcile(context.Background())
	if _, ok := env.pending(t, constants.EveningReminderID); ok {
		t.Error("evening reminder should not be scheduled when disabled")
	}
}

func TestReconcileRemovesStaleRequests(t *testing.T) {
	env := setupTestEnv(t)
	env.disableEvening(t)
	ctx := context.Background()

	read, _ := env.habits.CreateWith("Read", models.HabitUpdate{ReminderTime: models.MustTimeOfDay(9, 0).Ptr()})
	env.sched.Reconcile(ctx)

	env.habits.Update(read.ID, models.HabitUpdate{ClearReminder: true})
	result, err := env.sched.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Scheduled) != 0 {
		t.Errorf("expected nothing scheduled, got %v", result.Scheduled)
	}
	if ids := env.pendingIDs(t); len(ids) != 0 {
		t.Errorf("expected stale request removed, got %v", ids)
	}
}

func TestArchivedHabitsGetNoReminders(t *testing.T) {
	env := setupTestEnv(t)
	env.disableEvening(t)
	ctx := context.Background()

	read, _ := env.habits.CreateWith("Read", models.HabitUpdate{ReminderTime: models.MustTimeOfDay(9, 0).Ptr()})
	env.habits.Archive(read.ID)

	env.sched.Reconcile(ctx)
	if ids := env.pendingIDs(t); len(ids) != 0 {
		t.Errorf("expected no reminders for archived habit, got %v", ids)
	}
}

func TestReconcileKeepsLiveSnoozes(t *testing.T) {
	env := setupTestEnv(t)
	env.disableEvening(t)
	ctx := context.Background()

	read, _ := env.habits.Create("Read")
	run, _ := env.habits.Create("Run")

	for _, h := range []models.Habit{read, run} {
		state, err := env.sched.HandleAction(ctx, models.ActionResponse{
			ActionID: constants.ActionSnooze,
			UserInfo: map[string]string{constants.HabitIDKey: h.ID},
		})
		if err != nil || state != ActionSnoozed {
			t.Fatalf("expected snoozed, got %v %v", state, err)
		}
	}
	env.habits.Archive(run.ID)

	result, err := env.sched.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(result.Kept, []string{"snooze_" + read.ID}) {
		t.Errorf("expected only the live snooze kept, got %v", result.Kept)
	}
	req, ok := env.pending(t, "snooze_"+read.ID)
	if !ok {
		t.Fatal("expected snooze to survive reconcile")
	}
	if !req.CreatedAt.Equal(testNow) {
		t.Errorf("kept snooze should keep its creation time, got %v", req.CreatedAt)
	}
}

func TestCancelHabit(t *testing.T) {
	env := setupTestEnv(t)
	env.disableEvening(t)
	ctx := context.Background()

	read, _ := env.habits.CreateWith("Read", models.HabitUpdate{ReminderTime: models.MustTimeOfDay(9, 0).Ptr()})
	env.sched.Reconcile(ctx)
	env.sched.HandleAction(ctx, models.ActionResponse{
		ActionID: constants.ActionSnooze,
		UserInfo: map[string]string{constants.HabitIDKey: read.ID},
	})

	if err := env.sched.CancelHabit(ctx, read.ID); err != nil {
		t.Fatal(err)
	}
	if ids := env.pendingIDs(t); len(ids) != 0 {
		t.Errorf("expected habit reminders cancelled, got %v", ids)
	}
}

func TestRefreshIfStale(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.habits.Create("Read")

	refreshed, err := env.sched.RefreshIfStale(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !refreshed {
		t.Error("missing evening reminder should trigger a refresh")
	}

	refreshed, _ = env.sched.RefreshIfStale(ctx)
	if refreshed {
		t.Error("fresh evening reminder should not trigger a refresh")
	}

	*env.clock = testNow.AddDate(0, 0, 1)
	refreshed, _ = env.sched.RefreshIfStale(ctx)
	if !refreshed {
		t.Error("expected refresh after the day rolled over")
	}
	req, _ := env.pending(t, constants.EveningReminderID)
	if req.UserInfo[constants.EveningComputedForKey] != "2024-06-16" {
		t.Errorf("expected computedFor to advance, got %v", req.UserInfo)
	}
}

func TestRefreshIfStaleWithEveningDisabled(t *testing.T) {
	env := setupTestEnv(t)
	env.disableEvening(t)
	refreshed, err := env.sched.RefreshIfStale(context.Background())
	if err != nil || refreshed {
		t.Errorf("expected no refresh, got %v %v", refreshed, err)
	}
}

func TestScheduleHabitRemindersDetached(t *testing.T) {
	env := setupTestEnv(t)
	env.disableEvening(t)
	read, _ := env.habits.CreateWith("Read", models.HabitUpdate{ReminderTime: models.MustTimeOfDay(9, 0).Ptr()})

	env.sched.ScheduleHabitReminders()
	env.sched.Wait()

	if ids := env.pendingIDs(t); !equalIDs(ids, []string{"habit_" + read.ID}) {
		t.Errorf("expected detached pass to schedule, got %v", ids)
	}
	if got := env.sched.LastResult().ComputedFor; got != "2024-06-15" {
		t.Errorf("unexpected computedFor %q", got)
	}
}

func TestWatchReconcilesOnChanges(t *testing.T) {
	env := setupTestEnv(t)
	env.disableEvening(t)

	env.sched.Start(context.Background())
	defer env.sched.Stop()
	unsubscribe := env.sched.Watch(env.habits, env.settings)
	defer unsubscribe()

	read, _ := env.habits.CreateWith("Read", models.HabitUpdate{ReminderTime: models.MustTimeOfDay(9, 0).Ptr()})

	waitFor(t, func() bool {
		_, ok := env.pending(t, "habit_"+read.ID)
		return ok
	})

	env.habits.Archive(read.ID)
	waitFor(t, func() bool {
		_, ok := env.pending(t, "habit_"+read.ID)
		return !ok
	})

	env.settings.Apply(settings.Update{EveningEnabled: boolPtr(true)})
	waitFor(t, func() bool {
		_, ok := env.pending(t, constants.EveningReminderID)
		return ok
	})
}

// slowRemoveBackend holds RemoveRequests until release is closed.
type slowRemoveBackend struct {
	*notifier.MemoryCenter
	release chan struct{}
}

func (b *slowRemoveBackend) RemoveRequests(ctx context.Context, ids ...string) error {
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return b.MemoryCenter.RemoveRequests(ctx, ids...)
}

func TestWatchArchiveDoesNotWaitOnBackend(t *testing.T) {
	env := setupTestEnv(t)
	env.disableEvening(t)

	backend := &slowRemoveBackend{MemoryCenter: env.backend, release: make(chan struct{})}
	defer close(backend.release)
	sched := New(env.habits, env.settings, backend, WithRetry(utils.RetryPolicy{Attempts: 1, Delay: time.Millisecond}))

	sched.Start(context.Background())
	defer sched.Stop()
	unsubscribe := sched.Watch(env.habits, env.settings)
	defer unsubscribe()

	read, _ := env.habits.CreateWith("Read", models.HabitUpdate{ReminderTime: models.MustTimeOfDay(9, 0).Ptr()})
	waitFor(t, func() bool {
		_, ok := env.pending(t, "habit_"+read.ID)
		return ok
	})

	done := make(chan error, 1)
	go func() {
		_, err := env.habits.Archive(read.ID)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("failed to archive: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Archive waited on the notification backend")
	}

	waitFor(t, func() bool {
		_, ok := env.pending(t, "habit_"+read.ID)
		return !ok
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestStartStopIdempotent(t *testing.T) {
	env := setupTestEnv(t)
	env.sched.Start(context.Background())
	env.sched.Start(context.Background())
	env.sched.Stop()
	env.sched.Stop()

	// Without a worker, passes run detached again.
	env.sched.ScheduleHabitReminders()
	env.sched.Wait()
	if _, ok := env.pending(t, constants.EveningReminderID); !ok {
		t.Error("expected detached pass after Stop")
	}
}

func TestDesiredDoesNotTouchBackend(t *testing.T) {
	env := setupTestEnv(t)
	env.habits.CreateWith("Read", models.HabitUpdate{ReminderTime: models.MustTimeOfDay(9, 0).Ptr()})

	desired, err := env.sched.Desired()
	if err != nil {
		t.Fatal(err)
	}
	if len(desired) != 2 {
		t.Errorf("expected habit and evening reminders, got %d", len(desired))
	}
	if ids := env.pendingIDs(t); len(ids) != 0 {
		t.Errorf("Desired should not schedule, got %v", ids)
	}
}
