package timeline

import "time"

// Window is the visible span of the timeline axis plus the real-world time.
// Front and Back are the two axis boundaries; they may be given in either
// order and are normalised by Lower and Upper.
type Window struct {
	Front time.Time
	Back  time.Time
	Now   time.Time
}

// Lower returns the earlier axis boundary.
func (w Window) Lower() time.Time {
	if w.Back.Before(w.Front) {
		return w.Back
	}
	return w.Front
}

// Upper returns the later axis boundary.
func (w Window) Upper() time.Time {
	if w.Back.Before(w.Front) {
		return w.Front
	}
	return w.Back
}

// Key identifies the window for memoization.
func (w Window) Key() string {
	return w.Now.UTC().Format(time.RFC3339Nano) + "-" +
		w.Front.UTC().Format(time.RFC3339Nano) + "-" +
		w.Back.UTC().Format(time.RFC3339Nano)
}

// Axis is a Window laid out on screen. Width is the axis length in pixels.
// Position and TransformX are the current drag offsets of the axis and are
// only used to make bars wider than the axis appear to slide while panning.
type Axis struct {
	Window
	Zoom       Unit
	Width      float64
	Position   float64
	TransformX float64
}

// Shift is the combined pan offset of the axis.
func (a Axis) Shift() float64 {
	return a.Position + a.TransformX
}

// X maps t onto the axis pixel scale. The lower boundary is at x=0 and the
// upper boundary at x=Width. Times outside the window map outside [0, Width].
func (a Axis) X(t time.Time) float64 {
	lo, hi := a.Lower(), a.Upper()
	span := hi.Sub(lo)
	if span <= 0 {
		return 0
	}
	return float64(t.Sub(lo)) / float64(span) * a.Width
}
