package timeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	if c.Len() != 13 {
		t.Fatalf("len = %d, want 13", c.Len())
	}

	tpl, ok := c.Lookup("book-venue")
	if !ok {
		t.Fatal("book-venue missing")
	}
	if !tpl.Weekend || tpl.Category != "wedding-hall" {
		t.Errorf("book-venue = %+v", tpl)
	}

	seen := make(map[int]bool)
	for _, tpl := range c.Templates() {
		if seen[tpl.Priority] {
			t.Errorf("priority %d used twice", tpl.Priority)
		}
		seen[tpl.Priority] = true
	}
}

func TestCatalogTemplatesIsCopy(t *testing.T) {
	c := DefaultCatalog()
	tpls := c.Templates()
	tpls[0].Title = "changed"
	tpls[0].Tips[0] = "changed"

	got, _ := c.Lookup(tpls[0].ID)
	if got.Title == "changed" {
		t.Error("Templates exposed internal slice")
	}
}

func TestNewCatalogValidation(t *testing.T) {
	wedding := Template{ID: "w", Title: "W", Rule: WeddingDay(), Priority: 2}

	tests := []struct {
		name string
		tpls []Template
		want error
	}{
		{"empty", nil, ErrEmptyCatalog},
		{"no wedding day", []Template{{ID: "a", Title: "A", Rule: Window(1, 2), Priority: 1}}, ErrWeddingDayNeeded},
		{"two wedding days", []Template{wedding, {ID: "w2", Title: "W2", Rule: WeddingDay(), Priority: 1}}, ErrWeddingDayNeeded},
		{"duplicate", []Template{{ID: "w", Title: "A", Rule: Window(1, 2), Priority: 1}, wedding}, ErrDuplicateID},
		{"zero priority", []Template{{ID: "a", Title: "A", Rule: Window(1, 2)}, wedding}, ErrInvalidTemplate},
		{"inverted window", []Template{{ID: "a", Title: "A", Rule: Window(3, 2), Priority: 1}, wedding}, ErrInvalidTemplate},
		{"negative days", []Template{{ID: "a", Title: "A", Rule: DaysBefore(-1), Priority: 1}, wedding}, ErrInvalidTemplate},
		{"unknown rule", []Template{{ID: "a", Title: "A", Rule: Rule{Kind: "weekly"}, Priority: 1}, wedding}, ErrInvalidTemplate},
		{"missing title", []Template{{ID: "a", Rule: Window(1, 2), Priority: 1}, wedding}, ErrInvalidTemplate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.tpls)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

const sampleCatalog = `
milestones:
  - id: venue
    title: 웨딩홀 계약
    icon: "🏛️"
    category: wedding-hall
    min_months: 8
    max_months: 10
    weekend: true
    tips:
      - 투어는 빠를수록 좋아요.
  - id: check
    title: 최종 점검
    days_before: 7
  - id: rings
    title: 반지
    max_months: 2
    priority: 9
  - id: wedding
    title: 결혼식
    wedding_day: true
`

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Len() != 4 {
		t.Fatalf("len = %d, want 4", c.Len())
	}

	venue, _ := c.Lookup("venue")
	if venue.Rule != Window(8, 10) || !venue.Weekend || venue.Priority != 1 {
		t.Errorf("venue = %+v", venue)
	}
	if len(venue.Tips) != 1 {
		t.Errorf("venue tips = %v", venue.Tips)
	}

	check, _ := c.Lookup("check")
	if check.Rule != DaysBefore(7) || check.Priority != 2 {
		t.Errorf("check = %+v", check)
	}

	rings, _ := c.Lookup("rings")
	if rings.Rule != Window(2, 2) || rings.Priority != 9 {
		t.Errorf("rings = %+v", rings)
	}

	wedding, _ := c.Lookup("wedding")
	if wedding.Rule.Kind != RuleWeddingDay {
		t.Errorf("wedding rule = %v", wedding.Rule.Kind)
	}
}

func TestParseCatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown field", "milestones:\n  - id: a\n    title: A\n    months: 3\n"},
		{"no rule", "milestones:\n  - id: a\n    title: A\n  - id: w\n    title: W\n    wedding_day: true\n"},
		{"no wedding day", "milestones:\n  - id: a\n    title: A\n    days_before: 3\n"},
		{"not yaml", "milestones: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCatalog([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(sampleCatalog), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Len() != 4 {
		t.Errorf("len = %d", c.Len())
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWatchCatalogReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(path, []byte(sampleCatalog), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(newMemStore(), c, nil, Options{}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- WatchCatalog(ctx, path, svc, discardLogger()) }()

	smaller := "milestones:\n  - id: check\n    title: 최종 점검\n    days_before: 7\n  - id: wedding\n    title: 결혼식\n    wedding_day: true\n"
	deadline := time.Now().Add(5 * time.Second)
	for svc.Catalog().Len() != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("catalog not reloaded, len = %d", svc.Catalog().Len())
		}
		if err := os.WriteFile(path, []byte(smaller), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(100 * time.Millisecond)
	}

	// A broken file keeps the last good catalog.
	if err := os.WriteFile(path, []byte("milestones: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * reloadDebounce)
	if svc.Catalog().Len() != 2 {
		t.Errorf("broken file replaced catalog, len = %d", svc.Catalog().Len())
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("watch: %v", err)
	}
}
