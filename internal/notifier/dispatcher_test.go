package notifier

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/notifier/mocks"
	"github.com/julianstephens/habitual/internal/storage/sqlite"
)

type recordingDeliverer struct {
	mu        sync.Mutex
	delivered []string
	err       error
}

func (r *recordingDeliverer) Available(ctx context.Context) error { return r.err }

func (r *recordingDeliverer) Deliver(ctx context.Context, req models.NotificationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.delivered = append(r.delivered, req.ID)
	return nil
}

func setupTestSQLiteStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

var testDay = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func clockAt(hour, minute int) time.Time {
	return testDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func dailyRequest(id string, hour, minute int) models.NotificationRequest {
	return models.NotificationRequest{
		ID:        id,
		Title:     constants.HabitReminderTitle,
		Body:      "Time to work on: " + id,
		Category:  constants.CategoryHabitReminder,
		Trigger:   models.CalendarTrigger(models.MustTimeOfDay(hour, minute), true),
		CreatedAt: testDay.Add(-48 * time.Hour),
	}
}

func TestDispatcherDeliversOncePerOccurrence(t *testing.T) {
	store := setupTestSQLiteStore(t)
	center := NewCenter(store, nil)
	ctx := context.Background()

	if err := center.AddRequest(ctx, dailyRequest("habit_a", 8, 0)); err != nil {
		t.Fatal(err)
	}
	if err := center.AddRequest(ctx, dailyRequest("habit_b", 20, 0)); err != nil {
		t.Fatal(err)
	}

	deliverer := &recordingDeliverer{}
	d := NewDispatcher(store, deliverer, WithDispatchLocation(time.UTC), WithGracePeriod(10*time.Minute))

	report, err := d.Run(ctx, clockAt(7, 59))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Delivered) != 0 {
		t.Errorf("nothing should fire before 08:00, got %v", report.Delivered)
	}

	report, err = d.Run(ctx, clockAt(8, 3))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Delivered) != 1 || report.Delivered[0] != "habit_a" {
		t.Errorf("expected habit_a to fire, got %v", report.Delivered)
	}

	report, err = d.Run(ctx, clockAt(8, 5))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Delivered) != 0 {
		t.Errorf("occurrence should not fire twice, got %v", report.Delivered)
	}

	// Daily requests stay pending after they fire.
	pending, _ := center.PendingRequests(ctx)
	if len(pending) != 2 {
		t.Errorf("expected 2 pending requests, got %d", len(pending))
	}

	// Next day fires again.
	report, err = d.Run(ctx, clockAt(24+8, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Delivered) != 1 {
		t.Errorf("expected next-day occurrence to fire, got %v", report.Delivered)
	}
}

func TestDispatcherSkipsMissedOccurrences(t *testing.T) {
	store := setupTestSQLiteStore(t)
	ctx := context.Background()
	center := NewCenter(store, nil)
	center.AddRequest(ctx, dailyRequest("habit_a", 8, 0))

	deliverer := &recordingDeliverer{}
	d := NewDispatcher(store, deliverer, WithDispatchLocation(time.UTC), WithGracePeriod(10*time.Minute))

	report, err := d.Run(ctx, clockAt(9, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Delivered) != 0 {
		t.Errorf("occurrence past the grace window should be skipped, got %v", report.Delivered)
	}
	pending, _ := center.PendingRequests(ctx)
	if len(pending) != 1 {
		t.Errorf("missed daily request should stay pending, got %d", len(pending))
	}
}

func TestDispatcherFiresLateEveningAfterMidnight(t *testing.T) {
	store := setupTestSQLiteStore(t)
	ctx := context.Background()
	NewCenter(store, nil).AddRequest(ctx, dailyRequest("habit_late", 23, 58))

	deliverer := &recordingDeliverer{}
	d := NewDispatcher(store, deliverer, WithDispatchLocation(time.UTC), WithGracePeriod(10*time.Minute))

	report, err := d.Run(ctx, clockAt(24, 3))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Delivered) != 1 {
		t.Errorf("expected yesterday's 23:58 occurrence to fire, got %v", report.Delivered)
	}
}

func TestDispatcherOneShotSnooze(t *testing.T) {
	store := setupTestSQLiteStore(t)
	ctx := context.Background()
	center := NewCenter(store, nil)

	snooze := models.NotificationRequest{
		ID:        constants.SnoozeReminderPrefix + "h1",
		Title:     constants.HabitReminderTitle,
		Body:      constants.SnoozeReminderBody,
		Category:  constants.CategoryHabitReminder,
		Trigger:   models.IntervalTrigger(constants.SnoozeDelay),
		CreatedAt: clockAt(8, 0),
	}
	if err := center.AddRequest(ctx, snooze); err != nil {
		t.Fatal(err)
	}

	deliverer := &recordingDeliverer{}
	d := NewDispatcher(store, deliverer, WithDispatchLocation(time.UTC))

	due, _, err := d.Due(ctx, clockAt(8, 10))
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 0 {
		t.Errorf("snooze should not be due yet, got %d", len(due))
	}

	report, err := d.Run(ctx, clockAt(8, 15))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Delivered) != 1 {
		t.Fatalf("expected snooze to fire, got %v", report.Delivered)
	}

	pending, _ := center.PendingRequests(ctx)
	if len(pending) != 0 {
		t.Errorf("fired one-shot should be removed, got %d pending", len(pending))
	}
}

func TestDispatcherExpiresStaleOneShot(t *testing.T) {
	store := setupTestSQLiteStore(t)
	ctx := context.Background()
	center := NewCenter(store, nil)
	center.AddRequest(ctx, models.NotificationRequest{
		ID:        constants.SnoozeReminderPrefix + "h1",
		Body:      constants.SnoozeReminderBody,
		Trigger:   models.IntervalTrigger(constants.SnoozeDelay),
		CreatedAt: clockAt(6, 0),
	})

	deliverer := &recordingDeliverer{}
	d := NewDispatcher(store, deliverer, WithDispatchLocation(time.UTC))

	report, err := d.Run(ctx, clockAt(12, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Delivered) != 0 {
		t.Errorf("stale snooze should not be delivered")
	}
	if len(report.Expired) != 1 {
		t.Errorf("expected stale snooze to expire, got %v", report.Expired)
	}
	pending, _ := center.PendingRequests(ctx)
	if len(pending) != 0 {
		t.Errorf("expected expired request to be removed")
	}
}

func TestDispatcherRetriesFailedDeliveryNextRun(t *testing.T) {
	store := setupTestSQLiteStore(t)
	ctx := context.Background()
	NewCenter(store, nil).AddRequest(ctx, dailyRequest("habit_a", 8, 0))

	ctrl := gomock.NewController(t)
	deliverer := mocks.NewMockDeliverer(ctrl)
	gomock.InOrder(
		deliverer.EXPECT().Deliver(gomock.Any(), gomock.Any()).Return(errors.New("tray offline")),
		deliverer.EXPECT().Deliver(gomock.Any(), gomock.Any()).Return(nil),
	)

	d := NewDispatcher(store, deliverer, WithDispatchLocation(time.UTC))

	report, err := d.Run(ctx, clockAt(8, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Failed) != 1 || len(report.Delivered) != 0 {
		t.Fatalf("expected one failure, got %+v", report)
	}

	report, err = d.Run(ctx, clockAt(8, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Delivered) != 1 {
		t.Errorf("expected retry to deliver, got %+v", report)
	}
}

func TestDispatcherWithoutDeliverer(t *testing.T) {
	store := setupTestSQLiteStore(t)
	d := NewDispatcher(store, nil)
	if _, err := d.Run(context.Background(), clockAt(8, 0)); err == nil {
		t.Error("expected error without a deliverer")
	}
}

func TestDispatcherPrunesDeliveryLog(t *testing.T) {
	store := setupTestSQLiteStore(t)
	ctx := context.Background()
	if err := store.RecordDelivery("old", "2024-06-01T08:00", clockAt(0, 0).AddDate(0, 0, -14)); err != nil {
		t.Fatal(err)
	}

	d := NewDispatcher(store, &recordingDeliverer{}, WithDispatchLocation(time.UTC), WithRetention(7*24*time.Hour))
	report, err := d.Run(ctx, clockAt(8, 0))
	if err != nil {
		t.Fatal(err)
	}
	if report.Pruned != 1 {
		t.Errorf("expected 1 pruned delivery, got %d", report.Pruned)
	}
}
