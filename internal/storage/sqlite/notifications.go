package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianstephens/habitual/internal/models"
)

func (s *Store) SaveNotificationRequest(req models.NotificationRequest) error {
	userInfo, err := json.Marshal(req.UserInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal user info: %w", err)
	}

	var triggerTime string
	if req.Trigger.Kind == models.TriggerCalendar {
		triggerTime = req.Trigger.Time.String()
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO notification_requests (
			id, title, body, category, user_info,
			trigger_kind, trigger_time, delay_seconds, repeats, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		req.ID, req.Title, req.Body, req.Category, string(userInfo),
		string(req.Trigger.Kind), triggerTime, req.Trigger.DelaySeconds, req.Trigger.Repeats, formatTimestamp(req.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save notification request: %w", err)
	}
	return nil
}

func (s *Store) GetNotificationRequests() ([]models.NotificationRequest, error) {
	rows, err := s.db.Query(`
		SELECT id, title, body, category, user_info,
			trigger_kind, trigger_time, delay_seconds, repeats, created_at
		FROM notification_requests
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.NotificationRequest
	for rows.Next() {
		var req models.NotificationRequest
		var userInfo, kind, triggerTime, createdAt string

		if err := rows.Scan(
			&req.ID, &req.Title, &req.Body, &req.Category, &userInfo,
			&kind, &triggerTime, &req.Trigger.DelaySeconds, &req.Trigger.Repeats, &createdAt,
		); err != nil {
			return nil, err
		}

		req.Trigger.Kind = models.TriggerKind(kind)
		if triggerTime != "" {
			if req.Trigger.Time, err = models.ParseTimeOfDay(triggerTime); err != nil {
				return nil, fmt.Errorf("failed to parse trigger_time for %s: %w", req.ID, err)
			}
		}
		if err := json.Unmarshal([]byte(userInfo), &req.UserInfo); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user info for %s: %w", req.ID, err)
		}
		if req.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
			return nil, err
		}

		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (s *Store) DeleteNotificationRequests(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.Exec("DELETE FROM notification_requests WHERE id IN ("+placeholders(len(ids))+")", args...)
	return err
}

func (s *Store) DeleteAllNotificationRequests() error {
	_, err := s.db.Exec("DELETE FROM notification_requests")
	return err
}

func (s *Store) HasDelivery(requestID, occurrence string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT count(*) FROM notification_deliveries WHERE request_id = ? AND occurrence = ?",
		requestID, occurrence,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) RecordDelivery(requestID, occurrence string, at time.Time) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO notification_deliveries (request_id, occurrence, delivered_at) VALUES (?, ?, ?)",
		requestID, occurrence, formatTimestamp(at),
	)
	return err
}

func (s *Store) PruneDeliveries(before time.Time) (int64, error) {
	result, err := s.db.Exec("DELETE FROM notification_deliveries WHERE delivered_at < ?", formatTimestamp(before))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
