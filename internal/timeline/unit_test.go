package timeline

import (
	"testing"
	"time"
)

func TestUnitForPeriod(t *testing.T) {
	cases := map[string]Unit{
		"daily":    UnitDay,
		"days":     UnitDay,
		"monthly":  UnitMonth,
		"months":   UnitMonth,
		"yearly":   UnitYear,
		"years":    UnitYear,
		"subdaily": UnitMinute,
		"minutes":  UnitMinute,
		"":         UnitMinute,
	}
	for period, want := range cases {
		if got := UnitForPeriod(period); got != want {
			t.Errorf("UnitForPeriod(%q) = %s, want %s", period, got, want)
		}
	}
}

func TestParseUnit(t *testing.T) {
	for _, s := range []string{"day", "days", "Day "} {
		u, err := ParseUnit(s)
		if err != nil || u != UnitDay {
			t.Errorf("ParseUnit(%q) = %s, %v", s, u, err)
		}
	}
	if _, err := ParseUnit("fortnight"); err == nil {
		t.Error("expected error for unknown unit")
	}
}

func TestAdd_MonthClamp(t *testing.T) {
	cases := []struct {
		name string
		unit Unit
		from time.Time
		n    int
		want time.Time
	}{
		{"jan31 plus month leap", UnitMonth, day(2000, 1, 31), 1, day(2000, 2, 29)},
		{"jan31 plus month", UnitMonth, day(2001, 1, 31), 1, day(2001, 2, 28)},
		{"mar31 minus month", UnitMonth, day(2001, 3, 31), -1, day(2001, 2, 28)},
		{"across year", UnitMonth, day(1999, 1, 31), 13, day(2000, 2, 29)},
		{"leap day plus year", UnitYear, day(2000, 2, 29), 1, day(2001, 2, 28)},
		{"days", UnitDay, day(2000, 2, 25), 8, day(2000, 3, 4)},
		{"minutes", UnitMinute, day(2000, 1, 1), -10, day(1999, 12, 31).Add(23*time.Hour + 50*time.Minute)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.unit.Add(tc.from, tc.n); !got.Equal(tc.want) {
				t.Errorf("Add = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestBetween(t *testing.T) {
	cases := []struct {
		unit Unit
		a, b time.Time
		want int
	}{
		{UnitDay, day(2000, 1, 1), day(2000, 1, 9), 8},
		{UnitDay, day(2000, 1, 9), day(2000, 1, 1), -8},
		{UnitMonth, day(2000, 1, 31), day(2000, 2, 29), 1},
		{UnitMonth, day(2000, 1, 15), day(2000, 3, 14), 1},
		{UnitMonth, day(2000, 3, 15), day(2000, 1, 10), -3},
		{UnitYear, day(2000, 6, 1), day(2003, 5, 31), 2},
		{UnitMinute, day(2000, 1, 1), day(2000, 1, 1).Add(95 * time.Second), 1},
		{UnitMinute, day(2000, 1, 1).Add(30 * time.Second), day(2000, 1, 1).Add(time.Minute), 0},
		// Beyond the range of time.Duration.
		{UnitDay, day(1700, 1, 1), day(2200, 1, 1), 182621},
		{UnitMinute, day(1700, 1, 1), day(2200, 1, 1), 182621 * 1440},
		{UnitHour, day(2200, 1, 1), day(1700, 1, 1), -182621 * 24},
	}
	for _, tc := range cases {
		if got := tc.unit.Between(tc.a, tc.b); got != tc.want {
			t.Errorf("%s.Between(%s, %s) = %d, want %d", tc.unit, tc.a.Format(isoDay), tc.b.Format(isoDay), got, tc.want)
		}
	}
}

func TestScaleNumberOrdering(t *testing.T) {
	if !(UnitYear.ScaleNumber() < UnitMonth.ScaleNumber() &&
		UnitMonth.ScaleNumber() < UnitDay.ScaleNumber() &&
		UnitDay.ScaleNumber() < UnitHour.ScaleNumber() &&
		UnitHour.ScaleNumber() < UnitMinute.ScaleNumber()) {
		t.Error("scale numbers must grow from year to minute")
	}
}

func TestAdd_FarApartSubdaily(t *testing.T) {
	got := UnitMinute.Add(day(1700, 1, 1), 182621*1440)
	if !got.Equal(day(2200, 1, 1)) {
		t.Errorf("minute add = %s, want 2200-01-01", got)
	}
	got = UnitHour.Add(day(2200, 1, 1), -182621*24)
	if !got.Equal(day(1700, 1, 1)) {
		t.Errorf("hour add = %s, want 1700-01-01", got)
	}
}
