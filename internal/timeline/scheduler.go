package timeline

import (
	"slices"
	"time"
)

const (
	// staggerDays spaces out milestones that had to be pulled up to the start date.
	staggerDays = 3
	// clampDays is how far before the wedding an overshooting milestone lands.
	clampDays = 7
)

// Item is a milestone placed on a concrete date.
type Item struct {
	Template
	Date               Date `json:"date"`
	Completed          bool `json:"completed"`
	ManuallyOverridden bool `json:"manually_overridden"`
}

// Schedule places every catalog template between start and wedding and returns
// the items sorted by date, ties kept in catalog order. The caller guarantees
// start is before wedding. Schedule never looks at the current time, so equal
// inputs always give equal output.
func Schedule(c Catalog, wedding, start Date) []Item {
	items := place(c, wedding, start)
	sortItems(items)
	return items
}

// place computes item dates in catalog order without sorting.
func place(c Catalog, wedding, start Date) []Item {
	items := make([]Item, 0, len(c.templates))
	for _, tpl := range c.templates {
		tpl.Tips = slices.Clone(tpl.Tips)
		items = append(items, Item{
			Template: tpl,
			Date:     DueDate(tpl, wedding, start),
		})
	}
	return items
}

// DueDate computes one template's date.
func DueDate(tpl Template, wedding, start Date) Date {
	if tpl.Rule.Kind == RuleWeddingDay {
		return wedding
	}

	d := wedding.AddDays(-tpl.Rule.leadDays())

	// Window too short for the recommended lead time: start from the first
	// day and stagger by rank so compressed milestones do not pile up.
	if d.Before(start) {
		d = start.AddDays(max(tpl.Priority-1, 0) * staggerDays)
	}

	if tpl.Weekend {
		d = nextWeekend(d)
	}

	if d.After(wedding) {
		d = wedding.AddDays(-clampDays)
		if d.Before(start) {
			d = start
		}
		if tpl.Weekend {
			d = weekendWithin(d, start, wedding)
		}
	}
	return d
}

func sortItems(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		return a.Date.Compare(b.Date)
	})
}

// nextWeekend returns d when it is a Saturday or Sunday, otherwise the
// following Saturday.
func nextWeekend(d Date) Date {
	if d.IsWeekend() {
		return d
	}
	return d.AddDays(int(time.Saturday - d.Weekday()))
}

// prevWeekend returns d when it is a Saturday or Sunday, otherwise the
// preceding Sunday.
func prevWeekend(d Date) Date {
	if d.IsWeekend() {
		return d
	}
	return d.AddDays(-int(d.Weekday()))
}

// weekendWithin moves d onto a weekend day inside [lo, hi], preferring later
// days. d is returned unchanged when the range holds no weekend.
func weekendWithin(d, lo, hi Date) Date {
	if n := nextWeekend(d); !n.After(hi) {
		return n
	}
	if p := prevWeekend(d); !p.Before(lo) {
		return p
	}
	return d
}
