package jobs

import (
	"context"
	"time"
)

// Dispatcher delivers due reminders and prunes old ones.
type Dispatcher interface {
	Run()
	Cleanup(retention time.Duration)
}

// Backups runs scheduled snapshots.
type Backups interface {
	Scheduled() bool
	RunScheduled(ctx context.Context)
}

// Cleaner drops stale entries from an in-memory table.
type Cleaner interface {
	Cleanup()
}

// Deps are the components the periodic jobs drive. Nil fields skip their jobs.
type Deps struct {
	Dispatcher Dispatcher
	Backups    Backups
	Limiter    Cleaner
	// VendorCache holds search results that expire.
	VendorCache Cleaner
	// BackupCron is the schedule for automatic backups.
	BackupCron string
	// ReminderRetention is how long sent reminders are kept.
	ReminderRetention time.Duration
}

// Register adds the standard jobs to s.
func Register(s *Scheduler, d Deps) error {
	if d.Dispatcher != nil {
		if err := s.Add("dispatch_reminders", "* * * * *", 50*time.Second, func(context.Context) error {
			d.Dispatcher.Run()
			return nil
		}); err != nil {
			return err
		}

		retention := d.ReminderRetention
		if retention <= 0 {
			retention = 30 * 24 * time.Hour
		}
		if err := s.Add("cleanup_reminders", "@daily", time.Minute, func(context.Context) error {
			d.Dispatcher.Cleanup(retention)
			return nil
		}); err != nil {
			return err
		}
	}

	if d.Backups != nil && d.Backups.Scheduled() && d.BackupCron != "" {
		if err := s.Add("backup", d.BackupCron, 30*time.Minute, func(ctx context.Context) error {
			d.Backups.RunScheduled(ctx)
			return nil
		}); err != nil {
			return err
		}
	}

	if d.Limiter != nil {
		if err := s.Add("cleanup_rate_limiter", "@every 5m", 0, func(context.Context) error {
			d.Limiter.Cleanup()
			return nil
		}); err != nil {
			return err
		}
	}

	if d.VendorCache != nil {
		if err := s.Add("cleanup_vendor_cache", "@every 5m", 0, func(context.Context) error {
			d.VendorCache.Cleanup()
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}
