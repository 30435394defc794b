package model

import "time"

type PushSubscription struct {
	ID         int64     `json:"id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Reminder is a local notification scheduled for a timeline item.
type Reminder struct {
	ID        string     `json:"id"`
	ItemID    string     `json:"item_id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	TriggerAt time.Time  `json:"trigger_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
