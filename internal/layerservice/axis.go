package layerservice

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/starford/layerline/internal/catalog"
	"github.com/starford/layerline/internal/timeline"
)

// AxisDefaults fills in axis query parameters the client left out.
type AxisDefaults struct {
	Width float64
	Zoom  timeline.Unit
	Now   func() time.Time
}

// ParseAxis reads front, back, now, width, zoom, position and transform from
// a query string. front and back are required.
func ParseAxis(q url.Values, d AxisDefaults) (timeline.Axis, error) {
	var a timeline.Axis
	if q.Get("front") == "" || q.Get("back") == "" {
		return a, errors.New("front and back are required")
	}
	var err error
	if a.Front, err = catalog.ParseDate(q.Get("front")); err != nil {
		return a, fmt.Errorf("front: %w", err)
	}
	if a.Back, err = catalog.ParseDate(q.Get("back")); err != nil {
		return a, fmt.Errorf("back: %w", err)
	}

	if s := q.Get("now"); s != "" {
		if a.Now, err = catalog.ParseDate(s); err != nil {
			return a, fmt.Errorf("now: %w", err)
		}
	} else if d.Now != nil {
		a.Now = d.Now().UTC()
	} else {
		a.Now = time.Now().UTC()
	}

	a.Zoom = d.Zoom
	if s := q.Get("zoom"); s != "" {
		if a.Zoom, err = timeline.ParseUnit(s); err != nil {
			return a, err
		}
	}

	a.Width = d.Width
	for name, dst := range map[string]*float64{
		"width":     &a.Width,
		"position":  &a.Position,
		"transform": &a.TransformX,
	} {
		s := q.Get(name)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return a, fmt.Errorf("%s: not a finite number", name)
		}
		*dst = v
	}
	if a.Width <= 0 {
		return a, errors.New("width must be positive")
	}
	return a, nil
}
