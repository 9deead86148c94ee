// Package notifier holds pending notification requests and delivers them to
// the desktop tray app when they come due.
package notifier

//go:generate mockgen -source=backend.go -destination=mocks/mock_backend.go -package=mocks

import (
	"context"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
)

// Backend is the notification scheduler the reminder engine talks to.
// Adding a request with an id that is already pending replaces it.
type Backend interface {
	RequestPermission(ctx context.Context) (bool, error)
	AddRequest(ctx context.Context, req models.NotificationRequest) error
	RemoveRequests(ctx context.Context, ids ...string) error
	RemoveAll(ctx context.Context) error
	PendingRequests(ctx context.Context) ([]models.NotificationRequest, error)
}

// Deliverer puts a notification in front of the user.
type Deliverer interface {
	// Available reports why delivery is impossible right now, or nil.
	Available(ctx context.Context) error
	Deliver(ctx context.Context, req models.NotificationRequest) error
}

// CategoryActions returns the buttons shown for a notification category.
func CategoryActions(category string) []models.NotificationAction {
	switch category {
	case constants.CategoryHabitReminder:
		return []models.NotificationAction{
			{ID: constants.ActionMarkDone, Title: constants.MarkDoneActionTitle},
			{ID: constants.ActionSnooze, Title: constants.SnoozeActionTitle},
		}
	case constants.CategoryEveningReminder:
		return []models.NotificationAction{
			{ID: constants.ActionOpenApp, Title: constants.OpenAppActionTitle},
		}
	}
	return nil
}
