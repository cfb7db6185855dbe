// Package models defines the domain types for layerline.
package models

import "time"

// Layer is a timeline layer with its temporal coverage metadata.
type Layer struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Subtitle   string      `json:"subtitle,omitempty"`
	Period     string      `json:"period"`
	StartDate  time.Time   `json:"start_date,omitzero"`
	EndDate    time.Time   `json:"end_date,omitzero"`
	DateRanges []DateRange `json:"date_ranges,omitempty"`
	Inactive   bool        `json:"inactive"`
	Visible    bool        `json:"visible"`
}

// HasCoverage reports whether the layer declares anything to draw.
func (l *Layer) HasCoverage() bool {
	return len(l.DateRanges) > 0 || !l.StartDate.IsZero()
}

// DateRange is a span of data availability. Interval is the number of
// period units between two data points.
type DateRange struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date,omitzero"`
	Interval  int       `json:"interval"`
}

// LayerMetadata is a lightweight representation returned by catalogue listings.
type LayerMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
