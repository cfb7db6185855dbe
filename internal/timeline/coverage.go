package timeline

import (
	"fmt"
	"time"

	"github.com/starford/layerline/internal/models"
)

// Mode is how a layer's coverage is broken into lines at the current zoom.
type Mode int

const (
	// ModeContainer draws one line per date range.
	ModeContainer Mode = iota
	// ModeMulti draws one line per data interval.
	ModeMulti
)

func (m Mode) String() string {
	if m == ModeMulti {
		return "multi"
	}
	return "container"
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name written by MarshalText.
func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "multi":
		*m = ModeMulti
	case "container":
		*m = ModeContainer
	default:
		return fmt.Errorf("timeline: unknown mode %q", b)
	}
	return nil
}

// Line colours and stripe patterns for visible and hidden layers.
const (
	VisibleColor   = "rgb(0, 69, 123)"
	HiddenColor    = "rgb(116, 116, 116)"
	VisiblePattern = "pattern"
	HiddenPattern  = "pattern2"
)

// Line is one coverage interval, ready to draw.
type Line struct {
	Key   string    `json:"key"`
	Kind  LineKind  `json:"kind"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
	Bar   Bar       `json:"bar"`
}

// LayerCoverage is everything a timeline row needs for one layer.
type LayerCoverage struct {
	LayerID  string `json:"layer_id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Header   string `json:"header"`
	Mode     Mode   `json:"mode"`
	Color    string `json:"color"`
	Pattern  string `json:"pattern"`
	Lines    []Line `json:"lines"`
}

// Mode decides between per-range and per-interval lines. Individual intervals
// are drawn when the layer's unit is coarser than the zoom, or equal to it with
// gaps between data points. Layers without declared ranges and ignored layers
// are always drawn per range.
func (c *Calculator) Mode(l *models.Layer, zoom Unit) Mode {
	if len(l.DateRanges) == 0 || c.IsIgnored(l.ID) {
		return ModeContainer
	}
	layerScale := UnitForPeriod(l.Period).ScaleNumber()
	zoomScale := zoom.ScaleNumber()
	switch {
	case layerScale < zoomScale:
		return ModeMulti
	case layerScale == zoomScale && intervalOf(l.DateRanges[0]) > 1:
		return ModeMulti
	default:
		return ModeContainer
	}
}

// Coverage computes the lines of a layer on the given axis. It returns false
// when the layer declares no coverage at all.
func (c *Calculator) Coverage(l *models.Layer, a Axis) (LayerCoverage, bool) {
	if !l.HasCoverage() {
		return LayerCoverage{}, false
	}

	out := LayerCoverage{
		LayerID:  l.ID,
		Title:    l.Title,
		Subtitle: l.Subtitle,
		Header:   HeaderDateRange(l),
		Mode:     c.Mode(l, a.Zoom),
		Color:    HiddenColor,
		Pattern:  HiddenPattern,
		Lines:    []Line{},
	}
	if l.Visible {
		out.Color = VisibleColor
		out.Pattern = VisiblePattern
	}

	if out.Mode == ModeMulti {
		out.Lines = c.multiLines(l, a)
	} else {
		out.Lines = c.containerLines(l, a)
	}
	return out, true
}

func (c *Calculator) containerLines(l *models.Layer, a Axis) []Line {
	ranges := c.Ranges(l)
	lines := []Line{}
	for i, r := range ranges {
		isLast := i == len(ranges)-1
		if !Overlaps(l, r, a.Window, isLast) {
			continue
		}
		end := RangeEnd(r, a.Now, l.Inactive, isLast)
		if a.Now.Before(end) {
			end = a.Now
		}
		labelEnd := r.EndDate
		if !l.Inactive && isLast {
			labelEnd = time.Time{}
		}
		if line, ok := newLine(l.ID, Container, r.StartDate, end, labelEnd, a); ok {
			lines = append(lines, line)
		}
	}
	return lines
}

func (c *Calculator) multiLines(l *models.Layer, a Axis) []Line {
	unit := UnitForPeriod(l.Period)
	kind := MultiKind(unit)
	lines := []Line{}
	for i, r := range l.DateRanges {
		isLast := i == len(l.DateRanges)-1
		dates := c.DatesInRange(l, r, a.Window, isLast)
		for j, start := range dates {
			var next time.Time
			switch {
			case j+1 < len(dates):
				next = dates[j+1]
			case !isLast:
				next = l.DateRanges[i+1].StartDate
			}
			end := IntervalEnd(start, unit, intervalOf(r), next, a.Now)
			if line, ok := newLine(l.ID, kind, start, end, end, a); ok {
				lines = append(lines, line)
			}
		}
	}
	return lines
}

// newLine clips [start, end] to the window and lays it out. labelEnd is the end
// shown in the tooltip, which for container lines may be open (zero).
func newLine(layerID string, kind LineKind, start, end, labelEnd time.Time, a Axis) (Line, bool) {
	lo, hi := a.Lower(), a.Upper()
	if end.Before(lo) || start.After(hi) {
		return Line{}, false
	}
	clippedStart, clippedEnd := start, end
	if clippedStart.Before(lo) {
		clippedStart = lo
	}
	if clippedEnd.After(hi) {
		clippedEnd = hi
	}
	return Line{
		Key:   kind.ElementKey(layerID, start, labelEnd),
		Kind:  kind,
		Start: clippedStart,
		End:   clippedEnd,
		Label: kind.Label(start, labelEnd),
		Bar:   a.Bar(a.Measure(start, end)),
	}, true
}
