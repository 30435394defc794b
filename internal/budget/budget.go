package budget

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Key is the store key the budget is kept under.
const Key = "budget"

var (
	ErrUnknownItem   = errors.New("unknown budget item")
	ErrInvalidAmount = errors.New("amount must not be negative")
	ErrInvalidItem   = errors.New("budget item needs a name")
	ErrUnavailable   = errors.New("budget storage unavailable")
)

// DefaultCategories are suggested when adding an item.
var DefaultCategories = []string{"웨딩홀", "스드메", "예물·예단", "신혼여행", "청첩장", "혼수", "기타"}

// Store is the key-value persistence the budget is saved in.
type Store interface {
	Get(key string, dst any) (bool, error)
	Set(key string, value any) error
}

type Item struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Name      string          `json:"name"`
	Planned   decimal.Decimal `json:"planned"`
	Spent     decimal.Decimal `json:"spent"`
	Paid      bool            `json:"paid"`
	Memo      string          `json:"memo,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ItemInput is the editable part of an item.
type ItemInput struct {
	Category string          `json:"category"`
	Name     string          `json:"name"`
	Planned  decimal.Decimal `json:"planned"`
	Spent    decimal.Decimal `json:"spent"`
	Paid     bool            `json:"paid"`
	Memo     string          `json:"memo"`
}

func (in ItemInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrInvalidItem
	}
	if in.Planned.IsNegative() || in.Spent.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// Budget is the persisted document.
type Budget struct {
	Total decimal.Decimal `json:"total"`
	Items []Item          `json:"items"`
}

type CategorySummary struct {
	Category string          `json:"category"`
	Planned  decimal.Decimal `json:"planned"`
	Spent    decimal.Decimal `json:"spent"`
}

// Summary totals a budget. Remaining is total minus spent; Unallocated is
// total minus planned. Both go negative when the couple is over budget.
type Summary struct {
	Total       decimal.Decimal   `json:"total"`
	Planned     decimal.Decimal   `json:"planned"`
	Spent       decimal.Decimal   `json:"spent"`
	Remaining   decimal.Decimal   `json:"remaining"`
	Unallocated decimal.Decimal   `json:"unallocated"`
	OverBudget  bool              `json:"over_budget"`
	PaidItems   int               `json:"paid_items"`
	ByCategory  []CategorySummary `json:"by_category"`
}

// Summarize totals b. Categories appear in order of first use.
func Summarize(b *Budget) Summary {
	s := Summary{Total: b.Total, ByCategory: []CategorySummary{}}
	idx := make(map[string]int)
	for _, it := range b.Items {
		s.Planned = s.Planned.Add(it.Planned)
		s.Spent = s.Spent.Add(it.Spent)
		if it.Paid {
			s.PaidItems++
		}
		i, ok := idx[it.Category]
		if !ok {
			i = len(s.ByCategory)
			idx[it.Category] = i
			s.ByCategory = append(s.ByCategory, CategorySummary{Category: it.Category})
		}
		s.ByCategory[i].Planned = s.ByCategory[i].Planned.Add(it.Planned)
		s.ByCategory[i].Spent = s.ByCategory[i].Spent.Add(it.Spent)
	}
	s.Remaining = s.Total.Sub(s.Spent)
	s.Unallocated = s.Total.Sub(s.Planned)
	s.OverBudget = s.Remaining.IsNegative() || s.Unallocated.IsNegative()
	return s
}

// View is what the API returns after every read or write.
type View struct {
	Budget  *Budget `json:"budget"`
	Summary Summary `json:"summary"`
}

// Service reads and edits the budget document.
type Service struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, now: time.Now, logger: logger}
}

// Get returns the budget, or an empty one when it cannot be read.
func (s *Service) Get() *View {
	b, err := s.load()
	if err != nil {
		b = &Budget{Items: []Item{}}
	}
	return s.view(b)
}

func (s *Service) SetTotal(total decimal.Decimal) (*View, error) {
	if total.IsNegative() {
		return nil, ErrInvalidAmount
	}
	b, err := s.load()
	if err != nil {
		return nil, err
	}
	b.Total = total
	s.save(b)
	return s.view(b), nil
}

func (s *Service) AddItem(in ItemInput) (*View, Item, error) {
	if err := in.validate(); err != nil {
		return nil, Item{}, err
	}
	b, err := s.load()
	if err != nil {
		return nil, Item{}, err
	}
	it := Item{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
	}
	apply(&it, in)
	b.Items = append(b.Items, it)
	s.save(b)
	return s.view(b), it, nil
}

func (s *Service) UpdateItem(id string, in ItemInput) (*View, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	b, err := s.load()
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(b.Items, func(it Item) bool { return it.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	apply(&b.Items[i], in)
	s.save(b)
	return s.view(b), nil
}

func (s *Service) DeleteItem(id string) (*View, error) {
	b, err := s.load()
	if err != nil {
		return nil, err
	}
	n := len(b.Items)
	b.Items = slices.DeleteFunc(b.Items, func(it Item) bool { return it.ID == id })
	if len(b.Items) == n {
		return nil, fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	s.save(b)
	return s.view(b), nil
}

func apply(it *Item, in ItemInput) {
	it.Category = strings.TrimSpace(in.Category)
	if it.Category == "" {
		it.Category = "기타"
	}
	it.Name = strings.TrimSpace(in.Name)
	it.Planned = in.Planned
	it.Spent = in.Spent
	it.Paid = in.Paid
	it.Memo = in.Memo
}

func (s *Service) view(b *Budget) *View {
	return &View{Budget: b, Summary: Summarize(b)}
}

// load returns the stored budget, or an empty one when none is saved. A read
// failure is returned so callers never save over a budget they could not see.
func (s *Service) load() (*Budget, error) {
	b := &Budget{}
	if _, err := s.store.Get(Key, b); err != nil {
		s.logger.Error("load budget", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if b.Items == nil {
		b.Items = []Item{}
	}
	return b, nil
}

func (s *Service) save(b *Budget) {
	if err := s.store.Set(Key, b); err != nil {
		s.logger.Error("persist budget", "error", err)
	}
}
