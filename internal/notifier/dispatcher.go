package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/utils"
)

const occurrenceFormat = "2006-01-02T15:04"

// Occurrence is one firing of a pending request.
type Occurrence struct {
	Request models.NotificationRequest
	At      time.Time
	Key     string
}

// Report summarizes a dispatcher run.
type Report struct {
	Delivered []string
	Failed    []string
	// Expired lists one-shot requests dropped after their grace window passed.
	Expired []string
	Pruned  int64
}

// Dispatcher fires pending requests whose trigger time has come. Each
// occurrence is delivered at most once; the delivery log in the store
// remembers what already fired.
type Dispatcher struct {
	store     RequestStore
	deliverer Deliverer
	grace     time.Duration
	retention time.Duration
	loc       *time.Location
}

type DispatcherOption func(*Dispatcher)

// WithGracePeriod sets how late an occurrence may still be delivered.
func WithGracePeriod(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.grace = d
		}
	}
}

// WithRetention sets how long the delivery log is kept.
func WithRetention(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.retention = d
		}
	}
}

// WithDispatchLocation sets the calendar used for daily triggers.
func WithDispatchLocation(loc *time.Location) DispatcherOption {
	return func(dp *Dispatcher) {
		if loc != nil {
			dp.loc = loc
		}
	}
}

func NewDispatcher(store RequestStore, deliverer Deliverer, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		deliverer: deliverer,
		grace:     constants.DefaultNotificationGracePeriodMin * time.Minute,
		retention: constants.DeliveryRetention,
		loc:       time.Local,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Due returns the occurrences that should fire at now and the one-shot
// requests that can no longer fire.
func (d *Dispatcher) Due(ctx context.Context, now time.Time) ([]Occurrence, []string, error) {
	reqs, err := d.store.GetNotificationRequests()
	if err != nil {
		return nil, nil, err
	}

	now = now.In(d.loc)
	var due []Occurrence
	var expired []string
	for _, req := range reqs {
		occ, state := d.evaluate(req, now)
		switch state {
		case stateDue:
			delivered, err := d.store.HasDelivery(req.ID, occ.Key)
			if err != nil {
				return nil, nil, err
			}
			if !delivered {
				due = append(due, occ)
			}
		case stateMissed:
			if !req.Trigger.Repeats {
				expired = append(expired, req.ID)
			}
		}
	}
	return due, expired, nil
}

// Run delivers everything due at now, drops expired one-shots and prunes
// the delivery log. A failed delivery is logged and retried on the next run
// while it is still inside the grace window.
func (d *Dispatcher) Run(ctx context.Context, now time.Time) (Report, error) {
	var report Report
	if d.deliverer == nil {
		return report, errors.New(constants.NotificationsUnavailable)
	}

	due, expired, err := d.Due(ctx, now)
	if err != nil {
		return report, err
	}

	if len(expired) > 0 {
		if err := d.store.DeleteNotificationRequests(expired...); err != nil {
			return report, err
		}
		report.Expired = expired
	}

	for _, occ := range due {
		if err := d.deliverer.Deliver(ctx, occ.Request); err != nil {
			logger.Warn("Failed to deliver notification", "id", occ.Request.ID, "error", err)
			report.Failed = append(report.Failed, occ.Request.ID)
			continue
		}
		if err := d.store.RecordDelivery(occ.Request.ID, occ.Key, now); err != nil {
			return report, err
		}
		if !occ.Request.Trigger.Repeats {
			if err := d.store.DeleteNotificationRequests(occ.Request.ID); err != nil {
				return report, err
			}
		}
		report.Delivered = append(report.Delivered, occ.Request.ID)
	}

	pruned, err := d.store.PruneDeliveries(now.Add(-d.retention))
	if err != nil {
		logger.Warn("Failed to prune delivery log", "error", err)
	}
	report.Pruned = pruned

	return report, nil
}

type dueState int

const (
	stateNotYet dueState = iota
	stateDue
	stateMissed
)

func (d *Dispatcher) evaluate(req models.NotificationRequest, now time.Time) (Occurrence, dueState) {
	switch req.Trigger.Kind {
	case models.TriggerInterval:
		at := req.CreatedAt.Add(time.Duration(req.Trigger.DelaySeconds) * time.Second).In(d.loc)
		return d.classify(req, at, now)
	case models.TriggerCalendar:
		// Yesterday is checked so a late-evening trigger still fires just after midnight.
		today := utils.StartOfDay(now, d.loc)
		best := stateNotYet
		var bestOcc Occurrence
		for _, day := range []time.Time{utils.AddDays(today, -1), today} {
			at, ok := req.FireTimeOn(day)
			if !ok {
				continue
			}
			occ, state := d.classify(req, at, now)
			if state == stateDue {
				return occ, stateDue
			}
			if state == stateMissed {
				best, bestOcc = stateMissed, occ
			}
		}
		return bestOcc, best
	}
	return Occurrence{}, stateNotYet
}

func (d *Dispatcher) classify(req models.NotificationRequest, at, now time.Time) (Occurrence, dueState) {
	occ := Occurrence{Request: req, At: at, Key: at.Format(occurrenceFormat)}
	switch {
	case now.Before(at):
		return occ, stateNotYet
	case now.Sub(at) <= d.grace:
		return occ, stateDue
	default:
		return occ, stateMissed
	}
}
