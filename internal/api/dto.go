package api

import (
	"github.com/starford/layerline/internal/catalog"
	"github.com/starford/layerline/internal/index"
	"github.com/starford/layerline/internal/timeline"
)

// LayerRequest is the request body for creating or updating a layer. Dates
// use the same ISO-8601 forms as the YAML catalogue.
type LayerRequest struct {
	ID         string         `json:"id" example:"MODIS_Terra_NDVI_8Day"`
	Title      string         `json:"title" example:"NDVI (8-Day)"`
	Subtitle   string         `json:"subtitle,omitempty" example:"Terra / MODIS"`
	Period     string         `json:"period" example:"daily" validate:"required"`
	StartDate  string         `json:"start_date,omitempty" example:"2000-01-01"`
	EndDate    string         `json:"end_date,omitempty"`
	DateRanges []RangeRequest `json:"date_ranges,omitempty"`
	Inactive   bool           `json:"inactive"`
	Visible    bool           `json:"visible"`
}

// RangeRequest is one date range of a LayerRequest.
type RangeRequest struct {
	StartDate string `json:"start_date" example:"2000-01-01" validate:"required"`
	EndDate   string `json:"end_date,omitempty" example:"2000-01-31"`
	Interval  int    `json:"interval" example:"8" validate:"required"`
}

func (r LayerRequest) definition() *catalog.Definition {
	d := &catalog.Definition{
		ID:        r.ID,
		Title:     r.Title,
		Subtitle:  r.Subtitle,
		Period:    r.Period,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		Inactive:  r.Inactive,
		Visible:   r.Visible,
	}
	for _, dr := range r.DateRanges {
		d.DateRanges = append(d.DateRanges, catalog.RangeDefinition{
			StartDate: dr.StartDate,
			EndDate:   dr.EndDate,
			Interval:  dr.Interval,
		})
	}
	return d
}

// LayerDetail is the layer response type (aliased from the index).
type LayerDetail = index.LayerRow

// LayerListResponse wraps paginated layer listings.
type LayerListResponse struct {
	Layers []LayerDetail `json:"layers" validate:"required"`
	Total  int           `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// CoverageResponse wraps coverage for several layers.
type CoverageResponse struct {
	Layers []timeline.LayerCoverage `json:"layers" validate:"required"`
}
