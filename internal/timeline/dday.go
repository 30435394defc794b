package timeline

import "fmt"

// DDay returns the signed number of days from today to the wedding: positive
// before the wedding, zero on the day, negative afterwards.
func DDay(wedding, today Date) int {
	return today.DaysUntil(wedding)
}

// DDayLabel formats a D-Day count the way it is shown to users.
func DDayLabel(n int) string {
	switch {
	case n > 0:
		return fmt.Sprintf("D-%d", n)
	case n == 0:
		return "D-Day"
	default:
		return fmt.Sprintf("D+%d", -n)
	}
}

// PrepWeeks returns the preparation period in whole weeks, rounded down.
func PrepWeeks(start, wedding Date) int {
	return floorDiv(start.DaysUntil(wedding), 7)
}

// PrepPeriod returns the preparation period label, e.g. "10주".
func PrepPeriod(start, wedding Date) string {
	return fmt.Sprintf("%d주", PrepWeeks(start, wedding))
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
