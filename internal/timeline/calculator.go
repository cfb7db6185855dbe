// Package timeline computes the coverage intervals a timeline draws for a
// layer: which data intervals fall inside the visible axis window, where they
// start and end, how they are labelled and where they sit on the pixel axis.
package timeline

import (
	"strconv"
	"time"

	"github.com/starford/layerline/internal/models"
)

// DefaultIgnoredLayers lists layers whose source metadata mixes periods within
// one layer (monthly and daily ranges). They are always drawn as one
// continuous range.
var DefaultIgnoredLayers = []string{
	"GRACE_Tellus_Liquid_Water_Equivalent_Thickness_Mascon_CRI",
}

// Calculator produces coverage interval start dates and memoizes them per
// layer for the most recent window. A Calculator is not safe for concurrent
// use.
type Calculator struct {
	ignored      map[string]struct{}
	maxIntervals int
	observe      func(hit bool)

	cache map[string]*cacheEntry
}

type cacheEntry struct {
	window string
	ranges map[string][]time.Time
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithIgnoredLayers replaces the default set of layers that never get
// multi-range handling.
func WithIgnoredLayers(ids ...string) Option {
	return func(c *Calculator) {
		c.ignored = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			c.ignored[id] = struct{}{}
		}
	}
}

// WithMaxIntervals caps the number of interval start dates produced for one
// range. Zero means no cap.
func WithMaxIntervals(n int) Option {
	return func(c *Calculator) {
		c.maxIntervals = n
	}
}

// WithCacheObserver registers a callback invoked on every cache lookup.
func WithCacheObserver(fn func(hit bool)) Option {
	return func(c *Calculator) {
		c.observe = fn
	}
}

// NewCalculator creates a Calculator with an empty cache.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{cache: make(map[string]*cacheEntry)}
	WithIgnoredLayers(DefaultIgnoredLayers...)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsIgnored reports whether multi-range handling is suppressed for id.
func (c *Calculator) IsIgnored(id string) bool {
	_, ok := c.ignored[id]
	return ok
}

// Ranges returns the date ranges the layer is drawn with. Layers without
// declared ranges, and ignored layers, collapse to one continuous range
// spanning the layer's start and end dates. Layers with neither ranges nor a
// start date have nothing to draw and yield nil.
func (c *Calculator) Ranges(l *models.Layer) []models.DateRange {
	if len(l.DateRanges) > 0 && !c.IsIgnored(l.ID) {
		return l.DateRanges
	}
	r := models.DateRange{StartDate: l.StartDate, EndDate: l.EndDate, Interval: 1}
	if n := len(l.DateRanges); n > 0 {
		r.Interval = l.DateRanges[0].Interval
		if r.StartDate.IsZero() {
			r.StartDate = l.DateRanges[0].StartDate
		}
		if r.EndDate.IsZero() {
			r.EndDate = l.DateRanges[n-1].EndDate
		}
	}
	if r.StartDate.IsZero() {
		return nil
	}
	return []models.DateRange{r}
}

// MaxEndDate returns the latest date any interval may start at: the upper
// axis boundary, but never later than now.
func MaxEndDate(w Window, inactive, isLast bool) time.Time {
	limit := w.Upper()
	if w.Now.Before(limit) {
		limit = w.Now
	}
	if !inactive && isLast && limit.After(w.Now) {
		limit = w.Now
	}
	return limit
}

// StartDateLimit returns the lower axis boundary moved back by one interval
// so that an interval that starts off-screen but reaches into the window is
// still produced.
func StartDateLimit(w Window, unit Unit, interval int) time.Time {
	return unit.Add(w.Lower(), -interval)
}

// RangeEnd returns the effective end of a range. The last range of an active
// layer, and any open-ended range, runs until now.
func RangeEnd(r models.DateRange, now time.Time, inactive, isLast bool) time.Time {
	if (!inactive && isLast) || r.EndDate.IsZero() {
		return now
	}
	return r.EndDate
}

// IntervalEnd returns where the interval starting at start ends: one interval
// later, cut short by the next interval start (next may be zero) and never
// beyond now.
func IntervalEnd(start time.Time, unit Unit, interval int, next, now time.Time) time.Time {
	end := unit.Add(start, interval)
	if !next.IsZero() && !next.After(end) {
		end = next
	}
	if now.Before(end) {
		end = now
	}
	return end
}

// Overlaps reports whether range r has any interval inside the window.
func Overlaps(l *models.Layer, r models.DateRange, w Window, isLast bool) bool {
	unit := UnitForPeriod(l.Period)
	endLimit := MaxEndDate(w, l.Inactive, isLast)
	startLimit := StartDateLimit(w, unit, intervalOf(r))
	rangeEnd := RangeEnd(r, w.Now, l.Inactive, isLast)
	return !r.StartDate.After(endLimit) && !rangeEnd.Before(startLimit)
}

// DatesInRange returns the interval start dates of range r that fall inside
// the window. Results are memoized per layer for the current window: a second
// call with the same layer, range and window returns the same slice, and a
// call with a different window discards everything cached for the layer.
func (c *Calculator) DatesInRange(l *models.Layer, r models.DateRange, w Window, isLast bool) []time.Time {
	if !Overlaps(l, r, w, isLast) {
		return nil
	}

	windowKey := w.Key()
	entry, ok := c.cache[l.ID]
	if !ok || entry.window != windowKey {
		entry = &cacheEntry{window: windowKey, ranges: make(map[string][]time.Time)}
		c.cache[l.ID] = entry
	}

	rangeKey := rangeKey(r, isLast)
	if dates, ok := entry.ranges[rangeKey]; ok {
		c.record(true)
		return dates
	}
	c.record(false)

	unit := UnitForPeriod(l.Period)
	interval := intervalOf(r)
	to := MaxEndDate(w, l.Inactive, isLast)
	if end := RangeEnd(r, w.Now, l.Inactive, isLast); end.Before(to) {
		to = end
	}
	dates := c.stepDates(r.StartDate, unit, interval, StartDateLimit(w, unit, interval), to)
	entry.ranges[rangeKey] = dates
	return dates
}

// Forget drops everything cached for a layer.
func (c *Calculator) Forget(id string) {
	delete(c.cache, id)
}

// Reset drops the whole cache.
func (c *Calculator) Reset() {
	clear(c.cache)
}

const maxSkipped = 4

// stepDates walks anchor + i*interval and keeps the dates in [from, to].
// Every date is computed from the anchor so month clamping never drifts.
func (c *Calculator) stepDates(anchor time.Time, unit Unit, interval int, from, to time.Time) []time.Time {
	i := 0
	if anchor.Before(from) {
		// Jump close to the first visible date instead of walking from the
		// anchor, which may be decades earlier for minute data.
		i = max(unit.Between(anchor, from)/interval-1, 0)
	}
	dates := []time.Time{}
	for skipped := 0; ; i++ {
		d := unit.Add(anchor, i*interval)
		if d.After(to) {
			break
		}
		if d.Before(from) {
			// The jump lands at most a few steps early.
			if skipped++; skipped > maxSkipped {
				break
			}
			continue
		}
		dates = append(dates, d)
		if c.maxIntervals > 0 && len(dates) >= c.maxIntervals {
			break
		}
	}
	return dates
}

func (c *Calculator) record(hit bool) {
	if c.observe != nil {
		c.observe(hit)
	}
}

func intervalOf(r models.DateRange) int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

func rangeKey(r models.DateRange, isLast bool) string {
	return strconv.FormatInt(r.StartDate.UnixNano(), 10) + "/" +
		strconv.FormatInt(r.EndDate.UnixNano(), 10) + "/" +
		strconv.Itoa(r.Interval) + "/" + strconv.FormatBool(isLast)
}
