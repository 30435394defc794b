package push

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/wedplan/internal/metrics"
	"github.com/dukerupert/wedplan/internal/model"
	"github.com/dukerupert/wedplan/internal/store"
)

// Reminders queues timeline reminders for the dispatcher to deliver.
type Reminders struct {
	store  *store.PushStore
	logger *slog.Logger
}

func NewReminders(ps *store.PushStore, logger *slog.Logger) *Reminders {
	return &Reminders{store: ps, logger: logger}
}

// Schedule stores reminders and returns their identifiers in input order.
func (r *Reminders) Schedule(reminders []model.Reminder) ([]string, error) {
	ids := make([]string, len(reminders))
	rows := make([]model.Reminder, len(reminders))
	for i, rem := range reminders {
		rem.ID = uuid.NewString()
		ids[i] = rem.ID
		rows[i] = rem
	}
	if err := r.store.CreateReminders(rows); err != nil {
		return nil, fmt.Errorf("schedule reminders: %w", err)
	}
	metrics.RemindersScheduled.Add(float64(len(rows)))
	r.logger.Debug("reminders scheduled", "count", len(rows))
	return ids, nil
}

// CancelAll drops every reminder that has not been sent yet.
func (r *Reminders) CancelAll() error {
	n, err := r.store.DeletePending()
	if err != nil {
		return err
	}
	r.logger.Debug("reminders cancelled", "count", n)
	return nil
}

// CancelAfter drops unsent reminders that are not due yet at t.
func (r *Reminders) CancelAfter(t time.Time) error {
	n, err := r.store.DeletePendingAfter(t)
	if err != nil {
		return err
	}
	r.logger.Debug("future reminders cancelled", "count", n)
	return nil
}

// CancelItem drops unsent reminders for one timeline item.
func (r *Reminders) CancelItem(itemID string) error {
	n, err := r.store.DeletePendingByItem(itemID)
	if err != nil {
		return err
	}
	r.logger.Debug("item reminders cancelled", "item", itemID, "count", n)
	return nil
}
