package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/wedplan/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

func (s *PushStore) CreateSubscription(endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error) {
	_, err := s.db.Exec(
		`INSERT INTO push_subscriptions (endpoint, p256dh_key, auth_key, device_name)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET p256dh_key = excluded.p256dh_key, auth_key = excluded.auth_key, device_name = excluded.device_name`,
		endpoint, p256dh, auth, deviceName,
	)
	if err != nil {
		return nil, fmt.Errorf("create push subscription: %w", err)
	}
	// LastInsertId is unreliable on conflict update; re-query by endpoint
	return s.getByEndpoint(endpoint)
}

func (s *PushStore) GetByID(id int64) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.QueryRow(
		`SELECT id, endpoint, p256dh_key, auth_key, device_name, created_at
		 FROM push_subscriptions WHERE id = ?`, id,
	).Scan(&sub.ID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return &sub, nil
}

func (s *PushStore) getByEndpoint(endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.QueryRow(
		`SELECT id, endpoint, p256dh_key, auth_key, device_name, created_at
		 FROM push_subscriptions WHERE endpoint = ?`, endpoint,
	).Scan(&sub.ID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription by endpoint: %w", err)
	}
	return &sub, nil
}

func (s *PushStore) ListSubscriptions() ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT id, endpoint, p256dh_key, auth_key, device_name, created_at
		 FROM push_subscriptions ORDER BY id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		var sub model.PushSubscription
		if err := rows.Scan(&sub.ID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// DeleteSubscription removes a subscription and reports whether it existed.
func (s *PushStore) DeleteSubscription(id int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete push subscription: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

func (s *PushStore) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription by endpoint: %w", err)
	}
	return nil
}

// CreateReminders inserts reminders in one transaction. IDs must already be set.
func (s *PushStore) CreateReminders(reminders []model.Reminder) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin create reminders: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, r := range reminders {
		_, err := tx.Exec(
			`INSERT INTO reminders (id, item_id, title, body, trigger_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, r.ItemID, r.Title, r.Body, r.TriggerAt.UTC(), now,
		)
		if err != nil {
			return fmt.Errorf("insert reminder %s: %w", r.ItemID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reminders: %w", err)
	}
	return nil
}

// ListDue returns unsent reminders whose trigger time is at or before now.
func (s *PushStore) ListDue(now time.Time) ([]model.Reminder, error) {
	rows, err := s.db.Query(
		`SELECT id, item_id, title, body, trigger_at, sent_at, created_at
		 FROM reminders WHERE sent_at IS NULL AND trigger_at <= ? ORDER BY trigger_at`,
		now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// ListReminders returns reminders ordered by trigger time, pending and sent.
func (s *PushStore) ListReminders(limit int) ([]model.Reminder, error) {
	rows, err := s.db.Query(
		`SELECT id, item_id, title, body, trigger_at, sent_at, created_at
		 FROM reminders ORDER BY trigger_at LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (s *PushStore) MarkSent(id string, at time.Time) error {
	_, err := s.db.Exec(`UPDATE reminders SET sent_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}

// DeletePending removes every unsent reminder.
func (s *PushStore) DeletePending() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM reminders WHERE sent_at IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("delete pending reminders: %w", err)
	}
	return result.RowsAffected()
}

// DeletePendingAfter removes unsent reminders that trigger after t. Reminders
// already due stay for the dispatcher.
func (s *PushStore) DeletePendingAfter(t time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM reminders WHERE sent_at IS NULL AND trigger_at > ?`, t.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete future reminders: %w", err)
	}
	return result.RowsAffected()
}

// DeletePendingByItem removes unsent reminders for one timeline item.
func (s *PushStore) DeletePendingByItem(itemID string) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM reminders WHERE sent_at IS NULL AND item_id = ?`, itemID)
	if err != nil {
		return 0, fmt.Errorf("delete pending reminders for %q: %w", itemID, err)
	}
	return result.RowsAffected()
}

// CleanupSent deletes reminders sent before the given time.
func (s *PushStore) CleanupSent(before time.Time) error {
	_, err := s.db.Exec(`DELETE FROM reminders WHERE sent_at IS NOT NULL AND sent_at < ?`, before.UTC())
	if err != nil {
		return fmt.Errorf("cleanup sent reminders: %w", err)
	}
	return nil
}

func scanReminders(rows *sql.Rows) ([]model.Reminder, error) {
	var reminders []model.Reminder
	for rows.Next() {
		var r model.Reminder
		var sentAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.ItemID, &r.Title, &r.Body, &r.TriggerAt, &sentAt, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		if sentAt.Valid {
			r.SentAt = &sentAt.Time
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}
