package timeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/layerline/internal/models"
)

// LineKind selects how a coverage line is labelled.
type LineKind int

const (
	// Container lines span a whole date range (or the whole layer).
	Container LineKind = iota
	// MultiMinute lines are single intervals of a sub-daily layer.
	MultiMinute
	// MultiOther lines are single intervals of a daily or coarser layer.
	MultiOther
)

func (k LineKind) String() string {
	switch k {
	case MultiMinute:
		return "multi-minute"
	case MultiOther:
		return "multi"
	default:
		return "container"
	}
}

// MarshalText encodes the kind by name.
func (k LineKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name written by MarshalText.
func (k *LineKind) UnmarshalText(b []byte) error {
	for _, c := range []LineKind{Container, MultiMinute, MultiOther} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("timeline: unknown line kind %q", b)
}

// MultiKind returns the per-interval line kind for a layer unit.
func MultiKind(u Unit) LineKind {
	if u == UnitMinute {
		return MultiMinute
	}
	return MultiOther
}

const (
	isoDay   = "2006-01-02"
	clock    = "15:04"
	isoStamp = "2006-01-02T15:04:05.000Z"
	header   = "2006 Jan 02"
)

// Label returns the tooltip text of a line. Container lines accept zero
// bounds and render them as "start" and "present".
func (k LineKind) Label(start, end time.Time) string {
	switch k {
	case MultiMinute:
		return start.UTC().Format(clock) + " to " + end.UTC().Format(clock)
	case MultiOther:
		return start.UTC().Format(isoDay) + " to " + end.UTC().Format(isoDay)
	default:
		from, to := "start", "present"
		if !start.IsZero() {
			from = start.UTC().Format(isoDay)
		}
		if !end.IsZero() {
			to = end.UTC().Format(isoDay)
		}
		return from + " to " + to
	}
}

var keyReplacer = strings.NewReplacer(".", "_", ":", "_")

// ElementKey returns a stable identifier for a line, usable as a DOM id.
// Multi-minute lines key on the time of day only.
func (k LineKind) ElementKey(layerID string, start, end time.Time) string {
	from, to := "start", "present"
	if !start.IsZero() {
		from = start.UTC().Format(isoStamp)
	}
	if !end.IsZero() {
		to = end.UTC().Format(isoStamp)
	}
	if k == MultiMinute {
		from = from[strings.IndexByte(from, 'T')+1:]
		to = to[strings.IndexByte(to, 'T')+1:]
	}
	return layerID + "-" + keyReplacer.Replace(from) + "-" + keyReplacer.Replace(to)
}

// HeaderDateRange formats the full date span of a layer for its header,
// e.g. "2020 May 01 to Present".
func HeaderDateRange(l *models.Layer) string {
	from, to := "Start", "Present"
	if !l.StartDate.IsZero() {
		from = l.StartDate.UTC().Format(header)
	}
	if !l.EndDate.IsZero() {
		to = l.EndDate.UTC().Format(header)
	}
	return from + " to " + to
}
