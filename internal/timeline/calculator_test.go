package timeline

import (
	"testing"
	"time"

	"github.com/starford/layerline/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func eightDayLayer() *models.Layer {
	return &models.Layer{
		ID:     "MODIS_8Day",
		Period: "daily",
		DateRanges: []models.DateRange{
			{StartDate: day(2000, 1, 1), EndDate: day(2000, 12, 31), Interval: 8},
		},
	}
}

func TestDatesInRange_EightDayExample(t *testing.T) {
	c := NewCalculator()
	l := eightDayLayer()
	w := Window{Front: day(2000, 2, 1), Back: day(2000, 1, 1), Now: day(2000, 6, 1)}

	got := c.DatesInRange(l, l.DateRanges[0], w, false)
	want := []time.Time{day(2000, 1, 1), day(2000, 1, 9), day(2000, 1, 17), day(2000, 1, 25)}
	if len(got) != len(want) {
		t.Fatalf("dates = %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("dates[%d] = %s, want %s", i, got[i], want[i])
		}
		if got[i].After(day(2000, 2, 1)) {
			t.Errorf("dates[%d] = %s exceeds window", i, got[i])
		}
	}
}

func TestDatesInRange_WindowOrderDoesNotMatter(t *testing.T) {
	l := eightDayLayer()
	a := NewCalculator().DatesInRange(l, l.DateRanges[0],
		Window{Front: day(2000, 2, 1), Back: day(2000, 1, 1), Now: day(2000, 6, 1)}, false)
	b := NewCalculator().DatesInRange(l, l.DateRanges[0],
		Window{Front: day(2000, 1, 1), Back: day(2000, 2, 1), Now: day(2000, 6, 1)}, false)
	if len(a) != len(b) {
		t.Fatalf("len = %d and %d, want equal", len(a), len(b))
	}
}

func TestDatesInRange_LeadingPartialInterval(t *testing.T) {
	c := NewCalculator()
	l := eightDayLayer()
	// 2000-01-09 starts before the window but its interval reaches into it.
	w := Window{Front: day(2000, 1, 12), Back: day(2000, 1, 20), Now: day(2000, 6, 1)}

	got := c.DatesInRange(l, l.DateRanges[0], w, false)
	if len(got) != 2 {
		t.Fatalf("dates = %v, want 2 dates", got)
	}
	if !got[0].Equal(day(2000, 1, 9)) || !got[1].Equal(day(2000, 1, 17)) {
		t.Errorf("dates = %v, want [2000-01-09 2000-01-17]", got)
	}
}

func TestDatesInRange_NoOverlap(t *testing.T) {
	l := eightDayLayer()
	cases := map[string]Window{
		"before range": {Front: day(1999, 1, 1), Back: day(1999, 6, 1), Now: day(2001, 1, 1)},
		"after range":  {Front: day(2001, 3, 1), Back: day(2001, 6, 1), Now: day(2002, 1, 1)},
		"range in future of now": {
			Front: day(1999, 1, 1), Back: day(2001, 1, 1), Now: day(1999, 6, 1),
		},
	}
	for name, w := range cases {
		t.Run(name, func(t *testing.T) {
			c := NewCalculator()
			if got := c.DatesInRange(l, l.DateRanges[0], w, false); len(got) != 0 {
				t.Errorf("dates = %v, want none", got)
			}
		})
	}
}

func TestDatesInRange_NeverAfterNow(t *testing.T) {
	c := NewCalculator()
	l := eightDayLayer()
	now := day(2000, 1, 20)
	w := Window{Front: day(2000, 1, 1), Back: day(2000, 3, 1), Now: now}

	for _, d := range c.DatesInRange(l, l.DateRanges[0], w, true) {
		if d.After(now) {
			t.Errorf("date %s after now %s", d, now)
		}
	}
}

func TestDatesInRange_SkipsAheadForMinuteData(t *testing.T) {
	c := NewCalculator()
	l := &models.Layer{
		ID:     "GOES_Subdaily",
		Period: "subdaily",
		DateRanges: []models.DateRange{
			{StartDate: day(2000, 1, 1), EndDate: day(2030, 1, 1), Interval: 10},
		},
	}
	w := Window{
		Front: day(2020, 1, 1),
		Back:  day(2020, 1, 1).Add(time.Hour),
		Now:   day(2021, 1, 1),
	}

	got := c.DatesInRange(l, l.DateRanges[0], w, false)
	if len(got) != 8 {
		t.Fatalf("len = %d, want 8 (23:50 through 01:00)", len(got))
	}
	if want := day(2019, 12, 31).Add(23*time.Hour + 50*time.Minute); !got[0].Equal(want) {
		t.Errorf("first = %s, want %s", got[0], want)
	}
}

func TestDatesInRange_CenturiesAfterAnchor(t *testing.T) {
	c := NewCalculator()
	l := &models.Layer{
		ID:     "Minute_Archive",
		Period: "subdaily",
		DateRanges: []models.DateRange{
			{StartDate: day(1700, 1, 1), EndDate: day(2300, 1, 1), Interval: 10},
		},
	}
	w := Window{
		Front: day(2200, 1, 1),
		Back:  day(2200, 1, 1).Add(time.Hour),
		Now:   day(2250, 1, 1),
	}

	got := c.DatesInRange(l, l.DateRanges[0], w, false)
	if len(got) != 8 {
		t.Fatalf("len = %d, want 8", len(got))
	}
	if want := day(2199, 12, 31).Add(23*time.Hour + 50*time.Minute); !got[0].Equal(want) {
		t.Errorf("first = %s, want %s", got[0], want)
	}
}

func TestDatesInRange_MaxIntervals(t *testing.T) {
	c := NewCalculator(WithMaxIntervals(3))
	l := eightDayLayer()
	w := Window{Front: day(2000, 1, 1), Back: day(2000, 12, 1), Now: day(2001, 1, 1)}
	if got := c.DatesInRange(l, l.DateRanges[0], w, false); len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
}

func TestDatesInRange_CacheIdentity(t *testing.T) {
	var hits, misses int
	c := NewCalculator(WithCacheObserver(func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	}))
	l := eightDayLayer()
	r := l.DateRanges[0]
	w := Window{Front: day(2000, 1, 1), Back: day(2000, 2, 1), Now: day(2000, 6, 1)}

	first := c.DatesInRange(l, r, w, false)
	second := c.DatesInRange(l, r, w, false)
	if len(first) == 0 || &first[0] != &second[0] {
		t.Fatal("second call did not return the cached sequence")
	}
	if hits != 1 || misses != 1 {
		t.Errorf("hits=%d misses=%d, want 1/1", hits, misses)
	}

	changes := []Window{
		{Front: w.Front, Back: w.Back, Now: day(2000, 6, 2)},
		{Front: day(2000, 1, 2), Back: w.Back, Now: w.Now},
		{Front: w.Front, Back: day(2000, 2, 2), Now: w.Now},
	}
	for i, changed := range changes {
		before := misses
		c.DatesInRange(l, r, changed, false)
		if misses != before+1 {
			t.Errorf("change %d: expected a cache miss", i)
		}
	}

	// The first window was evicted by the changes above.
	third := c.DatesInRange(l, r, w, false)
	if &third[0] == &first[0] {
		t.Error("stale cache entry survived a window change")
	}
}

func TestForgetDropsLayerCache(t *testing.T) {
	misses := 0
	c := NewCalculator(WithCacheObserver(func(hit bool) {
		if !hit {
			misses++
		}
	}))
	l := eightDayLayer()
	w := Window{Front: day(2000, 1, 1), Back: day(2000, 2, 1), Now: day(2000, 6, 1)}

	c.DatesInRange(l, l.DateRanges[0], w, false)
	c.Forget(l.ID)
	c.DatesInRange(l, l.DateRanges[0], w, false)
	if misses != 2 {
		t.Errorf("misses = %d, want 2", misses)
	}
}

func TestMaxEndDate(t *testing.T) {
	now := day(2000, 6, 1)
	w := Window{Front: day(2000, 1, 1), Back: day(2000, 12, 1), Now: now}
	if got := MaxEndDate(w, false, false); !got.Equal(now) {
		t.Errorf("limit = %s, want now", got)
	}

	w.Back = day(2000, 3, 1)
	if got := MaxEndDate(w, true, false); !got.Equal(day(2000, 3, 1)) {
		t.Errorf("limit = %s, want back boundary", got)
	}
}

func TestClampIsIdempotent(t *testing.T) {
	now := day(2000, 6, 1)
	w := Window{Front: day(2000, 1, 1), Back: day(2001, 1, 1), Now: now}
	once := MaxEndDate(w, false, true)
	twice := MaxEndDate(Window{Front: w.Front, Back: once, Now: now}, false, true)
	if !once.Equal(twice) {
		t.Errorf("re-clamp drifted: %s -> %s", once, twice)
	}

	end := IntervalEnd(day(2000, 5, 30), UnitDay, 8, time.Time{}, now)
	again := IntervalEnd(day(2000, 5, 30), UnitDay, 8, time.Time{}, end)
	if !end.Equal(now) || !again.Equal(end) {
		t.Errorf("interval end = %s then %s, want %s", end, again, now)
	}
}

func TestIntervalEnd_CutByNextDate(t *testing.T) {
	// 8-day interval from 1999-12-27 would end 2000-01-04, but the next
	// range begins on 2000-01-01.
	got := IntervalEnd(day(1999, 12, 27), UnitDay, 8, day(2000, 1, 1), day(2001, 1, 1))
	if !got.Equal(day(2000, 1, 1)) {
		t.Errorf("end = %s, want 2000-01-01", got)
	}
}

func TestRangeEnd(t *testing.T) {
	now := day(2020, 1, 1)
	r := models.DateRange{StartDate: day(2000, 1, 1), EndDate: day(2010, 1, 1), Interval: 1}
	if got := RangeEnd(r, now, false, true); !got.Equal(now) {
		t.Errorf("active last range end = %s, want now", got)
	}
	if got := RangeEnd(r, now, true, true); !got.Equal(r.EndDate) {
		t.Errorf("inactive range end = %s, want declared end", got)
	}
	if got := RangeEnd(r, now, false, false); !got.Equal(r.EndDate) {
		t.Errorf("non-last range end = %s, want declared end", got)
	}
	r.EndDate = time.Time{}
	if got := RangeEnd(r, now, true, false); !got.Equal(now) {
		t.Errorf("open range end = %s, want now", got)
	}
}

func TestRanges_IgnoredLayerCollapses(t *testing.T) {
	c := NewCalculator()
	l := &models.Layer{
		ID:     "GRACE_Tellus_Liquid_Water_Equivalent_Thickness_Mascon_CRI",
		Period: "monthly",
		DateRanges: []models.DateRange{
			{StartDate: day(2002, 4, 1), EndDate: day(2017, 6, 1), Interval: 1},
			{StartDate: day(2018, 6, 1), EndDate: day(2020, 1, 1), Interval: 3},
		},
	}
	got := c.Ranges(l)
	if len(got) != 1 {
		t.Fatalf("ranges = %d, want 1", len(got))
	}
	if !got[0].StartDate.Equal(day(2002, 4, 1)) || !got[0].EndDate.Equal(day(2020, 1, 1)) {
		t.Errorf("range = %+v, want 2002-04-01..2020-01-01", got[0])
	}
}

func TestRanges_NoCoverage(t *testing.T) {
	c := NewCalculator()
	if got := c.Ranges(&models.Layer{ID: "empty", Period: "daily"}); got != nil {
		t.Errorf("ranges = %v, want nil", got)
	}
}

func TestWithIgnoredLayersReplacesDefault(t *testing.T) {
	c := NewCalculator(WithIgnoredLayers("custom"))
	if !c.IsIgnored("custom") {
		t.Error("custom layer should be ignored")
	}
	if c.IsIgnored(DefaultIgnoredLayers[0]) {
		t.Error("default set should be replaced")
	}
}
