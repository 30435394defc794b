package push

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/wedplan/internal/metrics"
	"github.com/dukerupert/wedplan/internal/model"
	"github.com/dukerupert/wedplan/internal/store"
)

// Sender delivers a payload to one subscription.
type Sender interface {
	Send(sub *model.PushSubscription, payload Payload) error
}

// Dispatcher delivers due reminders to every subscribed device.
type Dispatcher struct {
	sender Sender
	push   *store.PushStore
	now    func() time.Time
	logger *slog.Logger
}

func NewDispatcher(sender Sender, ps *store.PushStore, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		push:   ps,
		now:    time.Now,
		logger: logger,
	}
}

// Run sends every due reminder once. A reminder is marked sent after one
// delivery attempt to all devices, even when there are none.
func (d *Dispatcher) Run() {
	now := d.now().UTC()
	due, err := d.push.ListDue(now)
	if err != nil {
		d.logger.Error("list due reminders", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	subs, err := d.push.ListSubscriptions()
	if err != nil {
		d.logger.Error("list subscriptions", "error", err)
		return
	}

	for _, r := range due {
		payload := Payload{
			Title: r.Title,
			Body:  r.Body,
			URL:   "/timeline",
			Tag:   fmt.Sprintf("timeline-%s", r.ItemID),
		}
		var sent int
		subs, sent = d.broadcast(subs, payload)
		if err := d.push.MarkSent(r.ID, now); err != nil {
			d.logger.Error("mark reminder sent", "reminder", r.ID, "error", err)
		}
		d.logger.Info("reminder dispatched", "item", r.ItemID, "devices", sent)
	}
}

// Broadcast sends a payload to every subscription and returns how many
// deliveries succeeded.
func (d *Dispatcher) Broadcast(payload Payload) (int, error) {
	subs, err := d.push.ListSubscriptions()
	if err != nil {
		return 0, fmt.Errorf("list subscriptions: %w", err)
	}
	_, sent := d.broadcast(subs, payload)
	return sent, nil
}

// broadcast returns the subscriptions that are still valid and the number
// of successful deliveries. Expired subscriptions are deleted.
func (d *Dispatcher) broadcast(subs []model.PushSubscription, payload Payload) ([]model.PushSubscription, int) {
	live := subs[:0]
	sent := 0
	for _, sub := range subs {
		err := d.sender.Send(&sub, payload)
		switch {
		case err == nil:
			sent++
			metrics.IncrementPushDelivery("sent")
		case errors.Is(err, ErrExpired):
			metrics.IncrementPushDelivery("expired")
			if err := d.push.DeleteByEndpoint(sub.Endpoint); err != nil {
				d.logger.Error("delete expired subscription", "id", sub.ID, "error", err)
			}
			continue
		default:
			metrics.IncrementPushDelivery("failed")
			d.logger.Warn("push delivery failed", "id", sub.ID, "error", err)
		}
		live = append(live, sub)
	}
	return live, sent
}

// Cleanup removes reminders sent more than retention ago.
func (d *Dispatcher) Cleanup(retention time.Duration) {
	if err := d.push.CleanupSent(d.now().Add(-retention)); err != nil {
		d.logger.Error("cleanup sent reminders", "error", err)
	}
}
