// Package catalog parses and renders YAML layer definition files.
package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/layerline/internal/apperr"
	"github.com/starford/layerline/internal/models"
)

// Accepted period spellings. The first four are the viewer's own.
var periods = []interface{}{
	"subdaily", "daily", "monthly", "yearly",
	"minutes", "days", "months", "years",
}

// Layouts tried in order when reading a date.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

var idRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Definition is the on-disk form of a layer.
type Definition struct {
	ID         string            `yaml:"id"`
	Title      string            `yaml:"title"`
	Subtitle   string            `yaml:"subtitle,omitempty"`
	Period     string            `yaml:"period"`
	StartDate  string            `yaml:"start_date,omitempty"`
	EndDate    string            `yaml:"end_date,omitempty"`
	DateRanges []RangeDefinition `yaml:"date_ranges,omitempty"`
	Inactive   bool              `yaml:"inactive,omitempty"`
	Visible    bool              `yaml:"visible"`
}

// RangeDefinition is the on-disk form of a date range.
type RangeDefinition struct {
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date,omitempty"`
	Interval  int    `yaml:"interval"`
}

// Validate checks the definition. Errors are ozzo validation.Errors keyed by
// yaml field name.
func (d Definition) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.ID, validation.Required, validation.Match(idRe)),
		validation.Field(&d.Period, validation.Required, validation.In(periods...)),
		validation.Field(&d.StartDate, validation.By(isoDate)),
		validation.Field(&d.EndDate, validation.By(isoDate), validation.By(notBefore(d.StartDate))),
		validation.Field(&d.DateRanges),
	)
}

// Validate checks a single range.
func (r RangeDefinition) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.StartDate, validation.Required, validation.By(isoDate)),
		validation.Field(&r.EndDate, validation.By(isoDate), validation.By(notBefore(r.StartDate))),
		validation.Field(&r.Interval, validation.Required, validation.Min(1)),
	)
}

func isoDate(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := ParseDate(s); err != nil {
		return errors.New("must be an ISO-8601 date")
	}
	return nil
}

// notBefore rejects an end date that precedes start. Unparseable values are
// left to isoDate.
func notBefore(start string) validation.RuleFunc {
	return func(value interface{}) error {
		end, _ := value.(string)
		if end == "" || start == "" {
			return nil
		}
		s, err1 := ParseDate(start)
		e, err2 := ParseDate(end)
		if err1 != nil || err2 != nil {
			return nil
		}
		if e.Before(s) {
			return errors.New("must not be before start_date")
		}
		return nil
	}
}

// ParseDate reads a date in any accepted layout. Dates without a zone are UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("catalog: invalid date %q", s)
}

// FormatDate renders t in the shortest accepted layout that preserves it.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

// Parse decodes and validates a definition file. Any failure wraps
// apperr.ErrInvalid.
func Parse(data []byte) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w: %v", apperr.ErrInvalid, err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("catalog: %s: %w: %v", d.ID, apperr.ErrInvalid, err)
	}
	return &d, nil
}

// Layer converts a validated definition into the domain type.
func (d *Definition) Layer() *models.Layer {
	l := &models.Layer{
		ID:       d.ID,
		Title:    d.Title,
		Subtitle: d.Subtitle,
		Period:   d.Period,
		Inactive: d.Inactive,
		Visible:  d.Visible,
	}
	if l.Title == "" {
		l.Title = d.ID
	}
	l.StartDate, _ = parseOptional(d.StartDate)
	l.EndDate, _ = parseOptional(d.EndDate)
	for _, r := range d.DateRanges {
		dr := models.DateRange{Interval: r.Interval}
		dr.StartDate, _ = parseOptional(r.StartDate)
		dr.EndDate, _ = parseOptional(r.EndDate)
		l.DateRanges = append(l.DateRanges, dr)
	}
	return l
}

// FromLayer builds the on-disk form of l.
func FromLayer(l *models.Layer) *Definition {
	d := &Definition{
		ID:        l.ID,
		Title:     l.Title,
		Subtitle:  l.Subtitle,
		Period:    l.Period,
		StartDate: FormatDate(l.StartDate),
		EndDate:   FormatDate(l.EndDate),
		Inactive:  l.Inactive,
		Visible:   l.Visible,
	}
	for _, r := range l.DateRanges {
		d.DateRanges = append(d.DateRanges, RangeDefinition{
			StartDate: FormatDate(r.StartDate),
			EndDate:   FormatDate(r.EndDate),
			Interval:  r.Interval,
		})
	}
	return d
}

// Marshal validates l and renders it as YAML.
func Marshal(l *models.Layer) ([]byte, error) {
	d := FromLayer(l)
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("catalog: %s: %w: %v", d.ID, apperr.ErrInvalid, err)
	}
	out, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("catalog: encode: %w", err)
	}
	return out, nil
}

// FileName is the catalogue path for a layer id.
func FileName(id string) string {
	return id + ".yaml"
}

func parseOptional(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return ParseDate(s)
}
