package workflow

import "time"

// windowOrigin anchors multi-week windows so that consecutive runs land in
// the same window regardless of which day they fire. 2024-01-01 is a Monday.
var windowOrigin = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// ComputeEpochWindow returns the half-open [start, end) accounting window
// containing t. Windows start on Monday 00:00 UTC. Lengths that are a whole
// number of weeks tile the calendar from a fixed origin Monday, so a 14-day
// configuration yields the same fortnight for every trigger inside it.
// Other lengths start at the most recent Monday.
func ComputeEpochWindow(t time.Time, epochLengthDays int) (time.Time, time.Time) {
	if epochLengthDays <= 0 {
		epochLengthDays = 7
	}

	monday := mostRecentMonday(t.UTC())

	start := monday
	if epochLengthDays%7 == 0 {
		weeks := epochLengthDays / 7
		elapsed := int(monday.Sub(windowOrigin).Hours()) / 24 / 7
		start = windowOrigin.AddDate(0, 0, (elapsed/weeks)*weeks*7)
	}

	return start, start.AddDate(0, 0, epochLengthDays)
}

func mostRecentMonday(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
