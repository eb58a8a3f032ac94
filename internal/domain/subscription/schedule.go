// internal/domain/subscription/schedule.go
package subscription

import "time"

// Generate builds the delivery calendar for a window of days calendar days
// starting at start. Sundays and holidays (keyed YYYY-MM-DD) are NA with day
// number 0; every other day is pending and numbered 1..N in order.
func Generate(start time.Time, days int, holidays map[string]bool) []DeliveryDay {
	if days <= 0 {
		return nil
	}

	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	out := make([]DeliveryDay, 0, days)
	n := 0
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		key := day.Format(DateLayout)

		if day.Weekday() == time.Sunday || holidays[key] {
			out = append(out, DeliveryDay{Date: key, DayNumber: 0, Status: DayNA})
			continue
		}
		n++
		out = append(out, DeliveryDay{Date: key, DayNumber: n, Status: DayPending})
	}
	return out
}

// WindowStart is the first calendar day of a subscription paid at paidAt
func WindowStart(paidAt time.Time, loc *time.Location) time.Time {
	if loc != nil {
		paidAt = paidAt.In(loc)
	}
	next := paidAt.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, next.Location())
}

// canTransition allows only forward moves along pending → out_for_delivery → delivered
func canTransition(from, to DayStatus) bool {
	switch from {
	case DayPending:
		return to == DayOutForDelivery || to == DayDelivered
	case DayOutForDelivery:
		return to == DayDelivered
	}
	return false
}
