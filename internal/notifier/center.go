package notifier

import (
	"context"
	"time"

	apperrors "github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
)

// RequestStore is the slice of storage.Provider the center and dispatcher need.
type RequestStore interface {
	SaveNotificationRequest(models.NotificationRequest) error
	GetNotificationRequests() ([]models.NotificationRequest, error)
	DeleteNotificationRequests(ids ...string) error
	DeleteAllNotificationRequests() error

	HasDelivery(requestID, occurrence string) (bool, error)
	RecordDelivery(requestID, occurrence string, at time.Time) error
	PruneDeliveries(before time.Time) (int64, error)
}

// Center is the persistent Backend. Requests live in the database so that
// the dispatcher started by `habitual notify` or `habitual serve` can fire
// them from a different process.
type Center struct {
	store     RequestStore
	deliverer Deliverer
	now       func() time.Time
}

func NewCenter(store RequestStore, deliverer Deliverer) *Center {
	return &Center{store: store, deliverer: deliverer, now: time.Now}
}

// RequestPermission grants permission while the deliverer can reach the user.
func (c *Center) RequestPermission(ctx context.Context) (bool, error) {
	if c.deliverer == nil {
		return false, nil
	}
	if err := c.deliverer.Available(ctx); err != nil {
		logger.Debug("Notification delivery unavailable", "reason", err)
		return false, nil
	}
	return true, nil
}

func (c *Center) AddRequest(ctx context.Context, req models.NotificationRequest) error {
	if err := req.Validate(); err != nil {
		return apperrors.Validation("add notification", "notification", err.Error())
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = c.now()
	}
	if err := c.store.SaveNotificationRequest(req); err != nil {
		return apperrors.Storage("add notification", "notification", req.ID, err)
	}
	return nil
}

func (c *Center) RemoveRequests(ctx context.Context, ids ...string) error {
	if err := c.store.DeleteNotificationRequests(ids...); err != nil {
		return apperrors.Storage("remove notifications", "notification", "", err)
	}
	return nil
}

func (c *Center) RemoveAll(ctx context.Context) error {
	if err := c.store.DeleteAllNotificationRequests(); err != nil {
		return apperrors.Storage("remove notifications", "notification", "", err)
	}
	return nil
}

func (c *Center) PendingRequests(ctx context.Context) ([]models.NotificationRequest, error) {
	reqs, err := c.store.GetNotificationRequests()
	if err != nil {
		return nil, apperrors.Storage("list notifications", "notification", "", err)
	}
	return reqs, nil
}
