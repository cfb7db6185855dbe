package timeline

import (
	"fmt"
	"strings"
	"time"
)

// Unit is the calendar granularity layer data points are spaced at.
type Unit int

// Calendar units, ordered from finest to coarsest.
const (
	UnitMinute Unit = iota
	UnitHour
	UnitDay
	UnitMonth
	UnitYear
)

var unitNames = [...]string{"minute", "hour", "day", "month", "year"}

func (u Unit) String() string {
	if u < UnitMinute || u > UnitYear {
		return fmt.Sprintf("Unit(%d)", int(u))
	}
	return unitNames[u]
}

// Plural returns the unit name in its plural form ("days").
func (u Unit) Plural() string {
	return u.String() + "s"
}

// ScaleNumber ranks a unit on the timeline zoom scale: year=1 through minute=5.
// A smaller number is a coarser unit.
func (u Unit) ScaleNumber() int {
	switch u {
	case UnitYear:
		return 1
	case UnitMonth:
		return 2
	case UnitDay:
		return 3
	case UnitHour:
		return 4
	default:
		return 5
	}
}

// UnitForPeriod maps a layer period to its calendar unit. Anything that is not
// daily, monthly or yearly is treated as sub-daily and stepped in minutes.
func UnitForPeriod(period string) Unit {
	switch strings.ToLower(period) {
	case "daily", "days", "day":
		return UnitDay
	case "monthly", "months", "month":
		return UnitMonth
	case "yearly", "years", "year":
		return UnitYear
	default:
		return UnitMinute
	}
}

// ParseUnit parses a zoom level name such as "day" or "days".
func ParseUnit(s string) (Unit, error) {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s")
	for i, n := range unitNames {
		if n == name {
			return Unit(i), nil
		}
	}
	return 0, fmt.Errorf("timeline: unknown unit %q", s)
}

// Add moves t by n units. Month and year steps clamp the day of month to the
// length of the target month, so Jan 31 + 1 month is the last day of February.
func (u Unit) Add(t time.Time, n int) time.Time {
	switch u {
	case UnitYear:
		return addMonths(t, 12*n)
	case UnitMonth:
		return addMonths(t, n)
	case UnitDay:
		return t.AddDate(0, 0, n)
	case UnitHour:
		return addSeconds(t, int64(n)*3600)
	default:
		return addSeconds(t, int64(n)*60)
	}
}

// addSeconds moves t by n seconds without the ~292 year limit of
// time.Duration.
func addSeconds(t time.Time, n int64) time.Time {
	return time.Unix(t.Unix()+n, int64(t.Nanosecond())).In(t.Location())
}

// secondsBetween is the whole number of seconds from a to b, rounded down.
func secondsBetween(a, b time.Time) int64 {
	d := b.Unix() - a.Unix()
	if b.Nanosecond() < a.Nanosecond() {
		d--
	}
	return d
}

// Between returns the number of whole units from a to b, rounded down
// (towards negative infinity for b before a).
func (u Unit) Between(a, b time.Time) int {
	switch u {
	case UnitYear, UnitMonth:
		months := (b.Year()-a.Year())*12 + int(b.Month()-a.Month())
		if addMonths(a, months).After(b) {
			months--
		}
		if u == UnitYear {
			return floorDiv(months, 12)
		}
		return months
	case UnitDay:
		return floorDiv64(secondsBetween(a, b), 24*3600)
	case UnitHour:
		return floorDiv64(secondsBetween(a, b), 3600)
	default:
		return floorDiv64(secondsBetween(a, b), 60)
	}
}

func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorDiv64(a, b int64) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return int(q)
}
