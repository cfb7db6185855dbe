package timeline

import "time"

// CornerRadius is the rounding applied at the true ends of a coverage bar.
const CornerRadius = 6

// Dimensions locates an interval on the axis before bar adjustments.
type Dimensions struct {
	// LeftOffset is the x position of the visible start, never negative.
	LeftOffset float64
	// Width is the visible width, never negative.
	Width float64
	// WiderThanAxis is set when the unclipped interval is wider than the axis.
	WiderThanAxis bool
	// StartsBeforeAxis is set when the interval begins left of the axis.
	StartsBeforeAxis bool
	// EndsBeforeAxisEnd is set when the interval ends inside the axis.
	EndsBeforeAxisEnd bool
}

// Measure maps [start, end] onto the axis, clipping to the window.
func (a Axis) Measure(start, end time.Time) Dimensions {
	lo, hi := a.Lower(), a.Upper()
	visStart, visEnd := start, end
	if visStart.Before(lo) {
		visStart = lo
	}
	if visEnd.After(hi) {
		visEnd = hi
	}
	left := max(a.X(visStart), 0)
	return Dimensions{
		LeftOffset:        left,
		Width:             max(a.X(visEnd)-left, 0),
		WiderThanAxis:     a.X(end)-a.X(start) > a.Width,
		StartsBeforeAxis:  start.Before(lo),
		EndsBeforeAxisEnd: end.Before(hi),
	}
}

// Bar is the rectangle drawn for one coverage line.
type Bar struct {
	Offset        float64 `json:"offset"`
	Width         float64 `json:"width"`
	Radius        float64 `json:"radius"`
	RoundStart    bool    `json:"round_start"`
	RoundEnd      bool    `json:"round_end"`
	TooltipOffset float64 `json:"tooltip_offset"`
}

// Bar turns dimensions into a drawable rectangle.
//
// A bar that starts at the left edge of the axis is translated by the current
// pan shift instead of being pinned at x=0, so its striped fill appears to
// move with the axis. Corners are rounded only where the bar shows a real end
// of the data; an edge that continues off-screen stays square.
func (a Axis) Bar(d Dimensions) Bar {
	shift := a.Shift()
	width := d.Width

	offset := d.LeftOffset
	if d.LeftOffset == 0 && d.WiderThanAxis && !d.EndsBeforeAxisEnd {
		offset = shift
	}

	radius := 0.0
	if !d.WiderThanAxis || d.LeftOffset != 0 {
		radius = CornerRadius
	}

	if d.LeftOffset == 0 &&
		((d.WiderThanAxis && d.EndsBeforeAxisEnd) || (!d.WiderThanAxis && d.StartsBeforeAxis)) {
		width -= shift
		offset += shift
		radius = CornerRadius
	}

	tooltip := -offset - a.Width
	if d.WiderThanAxis {
		tooltip = -(a.Width*5)/2 + a.Width
	}

	return Bar{
		Offset:        offset,
		Width:         max(width, 0),
		Radius:        radius,
		RoundStart:    !d.StartsBeforeAxis,
		RoundEnd:      d.EndsBeforeAxisEnd,
		TooltipOffset: tooltip,
	}
}
