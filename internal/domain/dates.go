package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Delivery bucket labels.
const (
	DueOverdue     = "Overdue"
	DueToday       = "Today"
	DueTomorrow    = "Tomorrow"
	DueInvalidDate = "Invalid date"
)

// dateLayouts are the date formats the backend is known to send.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
}

// ParseDate parses a backend date. Zone-less layouts are read in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// DaysUntil buckets the calendar-day distance from now to a raw delivery
// date. Unparsable input yields "Invalid date".
func DaysUntil(raw string, now time.Time) string {
	t, err := ParseDate(raw, now.Location())
	if err != nil {
		return DueInvalidDate
	}
	return DaysUntilTime(t, now)
}

// DaysUntilTime is DaysUntil for an already parsed date.
func DaysUntilTime(t, now time.Time) string {
	if t.IsZero() {
		return DueInvalidDate
	}
	days := calendarDays(now, t.In(now.Location()))
	switch {
	case days < 0:
		return DueOverdue
	case days == 0:
		return DueToday
	case days == 1:
		return DueTomorrow
	default:
		return fmt.Sprintf("In %d days", days)
	}
}

// calendarDays counts midnights between from and to in from's location.
// Rounding absorbs DST shifts.
func calendarDays(from, to time.Time) int {
	loc := from.Location()
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, loc)
	return int(math.Round(b.Sub(a).Hours() / 24))
}
