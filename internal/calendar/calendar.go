package calendar

import (
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/dukerupert/wedplan/internal/timeline"
)

const productID = "-//wedplan//timeline//KO"

// Export renders the timeline as an iCalendar feed with one all-day event per
// item. stamp is written as DTSTAMP on every event.
func Export(tl *timeline.Timeline, name string, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(name)

	for _, it := range tl.Items {
		ev := cal.AddEvent(UID(it.ID))
		ev.SetDtStampTime(stamp.UTC())

		day := it.Date.At(0, time.UTC)
		ev.SetAllDayStartAt(day)
		ev.SetAllDayEndAt(day.AddDate(0, 0, 1))

		ev.SetSummary(summary(it))
		ev.SetDescription(description(it))
	}
	return cal.Serialize()
}

// UID is the stable event identifier for an item.
func UID(itemID string) string {
	return itemID + "@wedplan"
}

func summary(it timeline.Item) string {
	s := strings.TrimSpace(it.Icon + " " + it.Title)
	if it.Completed {
		s = "✓ " + s
	}
	return s
}

func description(it timeline.Item) string {
	var b strings.Builder
	b.WriteString(it.Description)
	for _, tip := range it.Tips {
		b.WriteString("\n- ")
		b.WriteString(tip)
	}
	return b.String()
}
