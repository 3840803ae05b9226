package selection

import "time"

// Boundaries are the accounting-period cutoffs used by usage aggregation.
// The accounting day rolls over at noon, not midnight: settlement against the
// vendor closes around midday, so "today" runs from the last noon.
type Boundaries struct {
	Daily  time.Time `json:"daily"`
	Weekly time.Time `json:"weekly"`
}

// ComputeBoundaries returns the daily and weekly boundaries for a wall time.
// Daily is today 12:00 once noon has passed, else yesterday 12:00. Weekly is
// the daily boundary of the most recent Monday.
func ComputeBoundaries(now time.Time) Boundaries {
	daily := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, now.Location())
	if now.Before(daily) {
		daily = daily.AddDate(0, 0, -1)
	}

	day := int(daily.Weekday()) // Sunday = 0, Monday = 1
	back := day - 1
	if day == 0 {
		back = 6
	}
	weekly := daily.AddDate(0, 0, -back)

	return Boundaries{Daily: daily, Weekly: weekly}
}
