package timeline

import "testing"

func TestDDay(t *testing.T) {
	wedding := NewDate(2025, 10, 18)

	tests := []struct {
		name  string
		today Date
		want  int
		label string
	}{
		{"wedding day", wedding, 0, "D-Day"},
		{"day before", wedding.AddDays(-1), 1, "D-1"},
		{"day after", wedding.AddDays(1), -1, "D+1"},
		{"hundred days out", wedding.AddDays(-100), 100, "D-100"},
		{"across new year", NewDate(2024, 12, 31), 291, "D-291"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DDay(wedding, tt.today)
			if got != tt.want {
				t.Errorf("DDay = %d, want %d", got, tt.want)
			}
			if l := DDayLabel(got); l != tt.label {
				t.Errorf("DDayLabel = %q, want %q", l, tt.label)
			}
		})
	}
}

func TestPrepPeriod(t *testing.T) {
	start := NewDate(2025, 1, 1)

	tests := []struct {
		days  int
		weeks int
		label string
	}{
		{70, 10, "10주"},
		{76, 10, "10주"},
		{77, 11, "11주"},
		{6, 0, "0주"},
		{365, 52, "52주"},
	}
	for _, tt := range tests {
		wedding := start.AddDays(tt.days)
		if got := PrepWeeks(start, wedding); got != tt.weeks {
			t.Errorf("PrepWeeks(%d days) = %d, want %d", tt.days, got, tt.weeks)
		}
		if got := PrepPeriod(start, wedding); got != tt.label {
			t.Errorf("PrepPeriod(%d days) = %q, want %q", tt.days, got, tt.label)
		}
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct{ a, b, want int }{
		{14, 7, 2},
		{13, 7, 1},
		{-1, 7, -1},
		{-7, 7, -1},
		{-8, 7, -2},
	}
	for _, tt := range tests {
		if got := floorDiv(tt.a, tt.b); got != tt.want {
			t.Errorf("floorDiv(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDateText(t *testing.T) {
	var d Date
	if err := d.UnmarshalText([]byte("2025-03-08")); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !d.Equal(NewDate(2025, 3, 8)) {
		t.Errorf("got %s", d)
	}
	b, _ := d.MarshalText()
	if string(b) != "2025-03-08" {
		t.Errorf("marshal = %q", b)
	}

	if err := d.UnmarshalText([]byte("08/03/2025")); err == nil {
		t.Error("expected error for bad layout")
	}
	if err := d.UnmarshalText(nil); err != nil || !d.IsZero() {
		t.Errorf("empty text: err=%v zero=%v", err, d.IsZero())
	}
}
