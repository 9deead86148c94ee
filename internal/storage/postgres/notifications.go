package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/julianstephens/habitual/internal/models"
)

type notificationRow struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	Body         string    `db:"body"`
	Category     string    `db:"category"`
	UserInfo     string    `db:"user_info"`
	TriggerKind  string    `db:"trigger_kind"`
	TriggerTime  string    `db:"trigger_time"`
	DelaySeconds int       `db:"delay_seconds"`
	Repeats      bool      `db:"repeats"`
	CreatedAt    time.Time `db:"created_at"`
}

func (s *Store) SaveNotificationRequest(req models.NotificationRequest) error {
	userInfo, err := json.Marshal(req.UserInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal user info: %w", err)
	}
	if req.UserInfo == nil {
		userInfo = []byte("{}")
	}

	row := notificationRow{
		ID:           req.ID,
		Title:        req.Title,
		Body:         req.Body,
		Category:     req.Category,
		UserInfo:     string(userInfo),
		TriggerKind:  string(req.Trigger.Kind),
		DelaySeconds: req.Trigger.DelaySeconds,
		Repeats:      req.Trigger.Repeats,
		CreatedAt:    req.CreatedAt,
	}
	if req.Trigger.Kind == models.TriggerCalendar {
		row.TriggerTime = req.Trigger.Time.String()
	}

	_, err = s.db.NamedExec(`
		INSERT INTO notification_requests (
			id, title, body, category, user_info,
			trigger_kind, trigger_time, delay_seconds, repeats, created_at
		) VALUES (
			:id, :title, :body, :category, CAST(:user_info AS JSONB),
			:trigger_kind, :trigger_time, :delay_seconds, :repeats, :created_at
		)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			body = EXCLUDED.body,
			category = EXCLUDED.category,
			user_info = EXCLUDED.user_info,
			trigger_kind = EXCLUDED.trigger_kind,
			trigger_time = EXCLUDED.trigger_time,
			delay_seconds = EXCLUDED.delay_seconds,
			repeats = EXCLUDED.repeats,
			created_at = EXCLUDED.created_at
	`, row)
	if err != nil {
		return fmt.Errorf("failed to save notification request: %w", err)
	}
	return nil
}

func (s *Store) GetNotificationRequests() ([]models.NotificationRequest, error) {
	var rows []notificationRow
	if err := s.db.Select(&rows, `
		SELECT id, title, body, category, user_info,
			trigger_kind, trigger_time, delay_seconds, repeats, created_at
		FROM notification_requests
		ORDER BY created_at ASC, id ASC
	`); err != nil {
		return nil, err
	}

	requests := make([]models.NotificationRequest, 0, len(rows))
	for _, row := range rows {
		req := models.NotificationRequest{
			ID:        row.ID,
			Title:     row.Title,
			Body:      row.Body,
			Category:  row.Category,
			CreatedAt: row.CreatedAt,
			Trigger: models.Trigger{
				Kind:         models.TriggerKind(row.TriggerKind),
				DelaySeconds: row.DelaySeconds,
				Repeats:      row.Repeats,
			},
		}
		if row.TriggerTime != "" {
			t, err := models.ParseTimeOfDay(row.TriggerTime)
			if err != nil {
				return nil, fmt.Errorf("failed to parse trigger_time for %s: %w", row.ID, err)
			}
			req.Trigger.Time = t
		}
		if err := json.Unmarshal([]byte(row.UserInfo), &req.UserInfo); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user info for %s: %w", row.ID, err)
		}
		if len(req.UserInfo) == 0 {
			req.UserInfo = nil
		}
		requests = append(requests, req)
	}
	return requests, nil
}

func (s *Store) DeleteNotificationRequests(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	stmt, args, err := sqlx.In("DELETE FROM notification_requests WHERE id IN (?)", ids)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(s.db.Rebind(stmt), args...)
	return err
}

func (s *Store) DeleteAllNotificationRequests() error {
	_, err := s.db.Exec("DELETE FROM notification_requests")
	return err
}

func (s *Store) HasDelivery(requestID, occurrence string) (bool, error) {
	var exists bool
	err := s.db.Get(&exists, `
		SELECT EXISTS (
			SELECT 1 FROM notification_deliveries WHERE request_id = $1 AND occurrence = $2
		)
	`, requestID, occurrence)
	return exists, err
}

func (s *Store) RecordDelivery(requestID, occurrence string, at time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO notification_deliveries (request_id, occurrence, delivered_at) VALUES ($1, $2, $3)
		ON CONFLICT (request_id, occurrence) DO NOTHING
	`, requestID, occurrence, at)
	return err
}

func (s *Store) PruneDeliveries(before time.Time) (int64, error) {
	result, err := s.db.Exec("DELETE FROM notification_deliveries WHERE delivered_at < $1", before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
