package jobs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDispatcher struct {
	runs      int
	retention time.Duration
}

func (f *fakeDispatcher) Run()                            { f.runs++ }
func (f *fakeDispatcher) Cleanup(retention time.Duration) { f.retention = retention }

type fakeBackups struct {
	scheduled bool
	runs      int
}

func (f *fakeBackups) Scheduled() bool                  { return f.scheduled }
func (f *fakeBackups) RunScheduled(ctx context.Context) { f.runs++ }

type fakeCleaner struct{ calls int }

func (f *fakeCleaner) Cleanup() { f.calls++ }

func TestRegister(t *testing.T) {
	tests := []struct {
		name string
		deps Deps
		want int
	}{
		{"nothing", Deps{}, 0},
		{"dispatcher", Deps{Dispatcher: &fakeDispatcher{}}, 2},
		{"backups unscheduled", Deps{Backups: &fakeBackups{}, BackupCron: "0 3 * * *"}, 0},
		{"backups no cron", Deps{Backups: &fakeBackups{scheduled: true}}, 0},
		{"backups", Deps{Backups: &fakeBackups{scheduled: true}, BackupCron: "0 3 * * *"}, 1},
		{"all", Deps{
			Dispatcher:  &fakeDispatcher{},
			Backups:     &fakeBackups{scheduled: true},
			Limiter:     &fakeCleaner{},
			VendorCache: &fakeCleaner{},
			BackupCron:  "0 3 * * *",
		}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(time.UTC, testLogger())
			if err := Register(s, tt.deps); err != nil {
				t.Fatalf("register: %v", err)
			}
			if s.Len() != tt.want {
				t.Errorf("jobs = %d, want %d", s.Len(), tt.want)
			}
		})
	}
}

func TestRegisterBadBackupCron(t *testing.T) {
	s := New(time.UTC, testLogger())
	err := Register(s, Deps{Backups: &fakeBackups{scheduled: true}, BackupCron: "whenever"})
	if err == nil || !strings.Contains(err.Error(), "backup") {
		t.Errorf("err = %v", err)
	}
}

func TestRunAppliesTimeout(t *testing.T) {
	s := New(time.UTC, testLogger())

	var deadline bool
	s.run("probe", time.Minute, func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		return nil
	})
	if !deadline {
		t.Error("job context has no deadline")
	}

	s.run("probe", 0, func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		return nil
	})
	if deadline {
		t.Error("zero timeout should not set a deadline")
	}
}

func TestRunLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	s := New(time.UTC, slog.New(slog.NewTextHandler(&buf, nil)))
	s.run("broken", 0, func(context.Context) error { return errors.New("boom") })

	out := buf.String()
	if !strings.Contains(out, "job failed") || !strings.Contains(out, "job=broken") || !strings.Contains(out, "boom") {
		t.Errorf("log = %q", out)
	}
}

func TestStopCancelsJobContext(t *testing.T) {
	s := New(time.UTC, testLogger())
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	done := make(chan error, 1)
	go s.run("after-stop", 0, func(ctx context.Context) error {
		done <- ctx.Err()
		return nil
	})
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("ctx err = %v, want canceled", err)
	}
}

func TestRegisteredJobsCallDeps(t *testing.T) {
	d := &fakeDispatcher{}
	c := &fakeCleaner{}
	vc := &fakeCleaner{}
	s := New(time.UTC, testLogger())
	if err := Register(s, Deps{Dispatcher: d, Limiter: c, VendorCache: vc, ReminderRetention: time.Hour}); err != nil {
		t.Fatal(err)
	}

	for _, e := range s.c.Entries() {
		e.Job.Run()
	}
	if d.runs != 1 || d.retention != time.Hour || c.calls != 1 || vc.calls != 1 {
		t.Errorf("runs=%d retention=%v limiter=%d cache=%d", d.runs, d.retention, c.calls, vc.calls)
	}
}
