package timeline

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/dukerupert/wedplan/internal/model"
)

// Keys the timeline state is stored under.
const (
	KeyTimeline   = "timeline"
	KeyCompletion = "timeline_completion"
	KeyDeleted    = "deleted_items"
)

var (
	ErrNotFound       = errors.New("timeline not found")
	ErrInvalidRange   = errors.New("start date must be before wedding date")
	ErrUnknownItem    = errors.New("unknown timeline item")
	ErrDateOutOfRange = errors.New("date outside preparation window")
	ErrPinned         = errors.New("wedding day item cannot be changed")
	ErrUnavailable    = errors.New("timeline storage unavailable")
)

// Store is the key-value persistence the timeline reads and writes. Values are
// JSON documents; Get reports false when the key is absent.
type Store interface {
	Get(key string, dst any) (bool, error)
	Set(key string, value any) error
	Remove(key string) error
}

// Notifier schedules and cancels local reminders. CancelAfter drops only
// reminders that are not due yet at t.
type Notifier interface {
	Schedule(reminders []model.Reminder) ([]string, error)
	CancelAll() error
	CancelAfter(t time.Time) error
	CancelItem(itemID string) error
}

// Timeline is a fully computed timeline.
type Timeline struct {
	WeddingDate Date   `json:"wedding_date"`
	StartDate   Date   `json:"start_date"`
	Items       []Item `json:"items"`
}

// Item returns the item with the given id.
func (t *Timeline) Item(id string) (Item, bool) {
	for _, it := range t.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// record is the persisted part of a timeline. Computed dates are never stored;
// only dates the user set by hand are kept, keyed by item id.
type record struct {
	WeddingDate Date            `json:"wedding_date"`
	StartDate   Date            `json:"start_date"`
	Overrides   map[string]Date `json:"overrides,omitempty"`
}

type state struct {
	rec        record
	completion map[string]bool
	deleted    []string
}

// Options configures reminder times.
type Options struct {
	Location   *time.Location
	NotifyHour int
}

// Service loads, mutates and persists the user's timeline.
type Service struct {
	store    Store
	catalog  atomic.Pointer[Catalog]
	notifier Notifier
	loc      *time.Location
	hour     int
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates a timeline service. notifier may be nil.
func NewService(store Store, catalog Catalog, notifier Notifier, opts Options, logger *slog.Logger) *Service {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	s := &Service{
		store:    store,
		notifier: notifier,
		loc:      loc,
		hour:     opts.NotifyHour,
		now:      time.Now,
		logger:   logger,
	}
	s.catalog.Store(&catalog)
	return s
}

// Catalog returns the catalog the service schedules against.
func (s *Service) Catalog() Catalog {
	return *s.catalog.Load()
}

// SetCatalog swaps the catalog and reschedules reminders. Saved state for ids
// the new catalog lacks is kept but ignored.
func (s *Service) SetCatalog(c Catalog) {
	s.catalog.Store(&c)
	s.Resync()
}

// Today is the current date in the service's time zone.
func (s *Service) Today() Date {
	return DateOf(s.now().In(s.loc))
}

// Create starts a new timeline. Completion flags and deleted items carry over,
// manual date overrides do not.
func (s *Service) Create(wedding, start Date) (*Timeline, error) {
	if wedding.IsZero() || start.IsZero() || !start.Before(wedding) {
		return nil, ErrInvalidRange
	}

	st, err := s.loadExtras()
	if err != nil {
		return nil, err
	}
	st.rec = record{WeddingDate: wedding, StartDate: start}
	s.write(KeyTimeline, st.rec)

	tl := s.build(st)
	s.resync(tl)
	return tl, nil
}

// Load recomputes the saved timeline from the catalog and merges user state.
// When completion flags or deleted ids cannot be read the timeline is shown
// without them.
func (s *Service) Load() (*Timeline, error) {
	rec, err := s.loadRecord()
	if err != nil {
		return nil, err
	}
	st, err := s.loadExtras()
	if err != nil {
		st = emptyState()
	}
	st.rec = rec
	return s.build(st), nil
}

// ToggleCompleted flips the completed flag of one item and returns the item.
func (s *Service) ToggleCompleted(id string) (Item, error) {
	st, err := s.load()
	if err != nil {
		return Item{}, err
	}
	if err := s.checkItem(st, id); err != nil {
		return Item{}, err
	}

	if st.completion[id] {
		delete(st.completion, id)
	} else {
		st.completion[id] = true
		s.cancelItem(id)
	}
	s.write(KeyCompletion, st.completion)

	tl := s.build(st)
	s.resync(tl)
	it, _ := tl.Item(id)
	return it, nil
}

// UpdateItemDate sets a manual date for one item. The date must stay inside
// [start, wedding]; the wedding day item cannot be moved.
func (s *Service) UpdateItemDate(id string, date Date) (*Timeline, error) {
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	if err := s.checkItem(st, id); err != nil {
		return nil, err
	}
	if tpl, _ := s.Catalog().Lookup(id); tpl.Rule.Kind == RuleWeddingDay {
		return nil, ErrPinned
	}
	if date.Before(st.rec.StartDate) || date.After(st.rec.WeddingDate) {
		return nil, fmt.Errorf("%w: %s not in %s..%s", ErrDateOutOfRange, date, st.rec.StartDate, st.rec.WeddingDate)
	}

	if st.rec.Overrides == nil {
		st.rec.Overrides = make(map[string]Date)
	}
	st.rec.Overrides[id] = date
	s.write(KeyTimeline, st.rec)

	tl := s.build(st)
	s.resync(tl)
	return tl, nil
}

// ResetItemDate drops a manual date so the catalog rule applies again.
func (s *Service) ResetItemDate(id string) (*Timeline, error) {
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	if err := s.checkItem(st, id); err != nil {
		return nil, err
	}

	if _, ok := st.rec.Overrides[id]; ok {
		delete(st.rec.Overrides, id)
		s.write(KeyTimeline, st.rec)
	}

	tl := s.build(st)
	s.resync(tl)
	return tl, nil
}

// DeleteItem hides an item from the timeline.
func (s *Service) DeleteItem(id string) (*Timeline, error) {
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	if err := s.checkItem(st, id); err != nil {
		return nil, err
	}
	if tpl, _ := s.Catalog().Lookup(id); tpl.Rule.Kind == RuleWeddingDay {
		return nil, ErrPinned
	}

	st.deleted = append(st.deleted, id)
	s.write(KeyDeleted, st.deleted)

	s.cancelItem(id)
	return s.build(st), nil
}

// RestoreItems brings back every deleted item.
func (s *Service) RestoreItems() (*Timeline, error) {
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	st.deleted = nil
	if err := s.store.Remove(KeyDeleted); err != nil {
		s.logger.Error("remove deleted items", "error", err)
	}

	tl := s.build(st)
	s.resync(tl)
	return tl, nil
}

// Reset deletes the timeline and all per-item state.
func (s *Service) Reset() {
	for _, key := range []string{KeyTimeline, KeyCompletion, KeyDeleted} {
		if err := s.store.Remove(key); err != nil {
			s.logger.Error("remove timeline key", "key", key, "error", err)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.CancelAll(); err != nil {
			s.logger.Error("cancel reminders", "error", err)
		}
	}
}

// Resync rebuilds future reminders from stored state. Reminders already due
// are left for the dispatcher. Without a saved timeline every pending
// reminder is dropped; when state cannot be read nothing changes.
func (s *Service) Resync() {
	st, err := s.load()
	switch {
	case errors.Is(err, ErrNotFound):
		if s.notifier != nil {
			if err := s.notifier.CancelAll(); err != nil {
				s.logger.Error("cancel reminders", "error", err)
			}
		}
		return
	case err != nil:
		s.logger.Warn("reminders not resynced", "error", err)
		return
	}
	s.resync(s.build(st))
}

// Summary is the dashboard view of a timeline.
type Summary struct {
	WeddingDate Date   `json:"wedding_date"`
	StartDate   Date   `json:"start_date"`
	DDay        int    `json:"d_day"`
	DDayLabel   string `json:"d_day_label"`
	PrepPeriod  string `json:"prep_period"`
	PrepWeeks   int    `json:"prep_weeks"`
	Completed   int    `json:"completed"`
	Total       int    `json:"total"`
	Next        *Item  `json:"next,omitempty"`
}

// Summary returns D-Day, preparation period, progress and the next open item.
func (s *Service) Summary() (*Summary, error) {
	tl, err := s.Load()
	if err != nil {
		return nil, err
	}

	today := s.Today()
	dd := DDay(tl.WeddingDate, today)
	sum := &Summary{
		WeddingDate: tl.WeddingDate,
		StartDate:   tl.StartDate,
		DDay:        dd,
		DDayLabel:   DDayLabel(dd),
		PrepPeriod:  PrepPeriod(tl.StartDate, tl.WeddingDate),
		PrepWeeks:   PrepWeeks(tl.StartDate, tl.WeddingDate),
		Total:       len(tl.Items),
	}
	for i := range tl.Items {
		it := tl.Items[i]
		if it.Completed {
			sum.Completed++
			continue
		}
		if sum.Next == nil && !it.Date.Before(today) {
			sum.Next = &it
		}
	}
	return sum, nil
}

func (s *Service) checkItem(st state, id string) error {
	if _, ok := s.Catalog().Lookup(id); !ok || slices.Contains(st.deleted, id) {
		return fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	return nil
}

// build recomputes dates from the catalog and overlays user state.
func (s *Service) build(st state) *Timeline {
	items := place(s.Catalog(), st.rec.WeddingDate, st.rec.StartDate)
	out := items[:0]
	for _, it := range items {
		if slices.Contains(st.deleted, it.ID) {
			continue
		}
		if d, ok := st.rec.Overrides[it.ID]; ok {
			it.Date = d
			it.ManuallyOverridden = true
		}
		it.Completed = st.completion[it.ID]
		out = append(out, it)
	}
	sortItems(out)

	return &Timeline{
		WeddingDate: st.rec.WeddingDate,
		StartDate:   st.rec.StartDate,
		Items:       out,
	}
}

// load reads everything a mutation needs. Any read failure fails the load so
// a partial state is never written back.
func (s *Service) load() (state, error) {
	rec, err := s.loadRecord()
	if err != nil {
		return state{}, err
	}
	st, err := s.loadExtras()
	if err != nil {
		return state{}, err
	}
	st.rec = rec
	return st, nil
}

func (s *Service) loadRecord() (record, error) {
	var rec record
	found, err := s.store.Get(KeyTimeline, &rec)
	if err != nil {
		s.logger.Error("load timeline", "error", err)
		return record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !found || rec.WeddingDate.IsZero() || rec.StartDate.IsZero() {
		return record{}, ErrNotFound
	}
	return rec, nil
}

// loadExtras reads completion flags and deleted ids.
func (s *Service) loadExtras() (state, error) {
	st := emptyState()
	if _, err := s.store.Get(KeyCompletion, &st.completion); err != nil {
		s.logger.Error("load completion", "error", err)
		return emptyState(), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if st.completion == nil {
		st.completion = make(map[string]bool)
	}
	if _, err := s.store.Get(KeyDeleted, &st.deleted); err != nil {
		s.logger.Error("load deleted items", "error", err)
		return emptyState(), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return st, nil
}

func emptyState() state {
	return state{completion: make(map[string]bool)}
}

func (s *Service) cancelItem(id string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.CancelItem(id); err != nil {
		s.logger.Error("cancel item reminders", "item", id, "error", err)
	}
}

// write persists a value. The in-memory result stands even when the write fails.
func (s *Service) write(key string, value any) {
	if err := s.store.Set(key, value); err != nil {
		s.logger.Error("persist timeline state", "key", key, "error", err)
	}
}

// resync replaces future reminders with one per open item whose reminder time
// is still ahead. Due but unsent reminders stay queued.
func (s *Service) resync(tl *Timeline) {
	if s.notifier == nil {
		return
	}
	now := s.now()
	if err := s.notifier.CancelAfter(now); err != nil {
		s.logger.Error("cancel reminders", "error", err)
		return
	}

	var reminders []model.Reminder
	for _, it := range tl.Items {
		if it.Completed {
			continue
		}
		at := it.Date.At(s.hour, s.loc)
		if !at.After(now) {
			continue
		}
		reminders = append(reminders, model.Reminder{
			ItemID:    it.ID,
			Title:     fmt.Sprintf("%s %s", it.Icon, it.Title),
			Body:      it.Description,
			TriggerAt: at,
		})
	}
	if len(reminders) == 0 {
		return
	}
	if _, err := s.notifier.Schedule(reminders); err != nil {
		s.logger.Error("schedule reminders", "error", err)
	}
}
