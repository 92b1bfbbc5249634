package domain

import (
	"errors"
	"fmt"
	"math"
)

// MetricMode selects which fields a view displays.
type MetricMode string

const (
	ModeTempAnomaly MetricMode = "TempAnomaly"
	ModeCO2         MetricMode = "CO2ppm"
	ModeBoth        MetricMode = "both"
)

// ErrInvalidView is wrapped by every ViewConfig validation failure.
var ErrInvalidView = errors.New("invalid view")

// ParseMetricMode validates s. An empty string selects both fields.
func ParseMetricMode(s string) (MetricMode, error) {
	switch MetricMode(s) {
	case "":
		return ModeBoth, nil
	case ModeTempAnomaly, ModeCO2, ModeBoth:
		return MetricMode(s), nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidView, s)
	}
}

// Fields returns the fields displayed in this mode.
func (m MetricMode) Fields() []FieldName {
	switch m {
	case ModeTempAnomaly:
		return []FieldName{FieldTempAnomaly}
	case ModeCO2:
		return []FieldName{FieldCO2}
	default:
		return []FieldName{FieldTempAnomaly, FieldCO2}
	}
}

// ViewConfig describes one rendering of the series. Zero From/To leave the
// range open on that side.
type ViewConfig struct {
	Mode   MetricMode `json:"mode" yaml:"mode"`
	Window int        `json:"window" yaml:"window"`
	From   int        `json:"from,omitempty" yaml:"from"`
	To     int        `json:"to,omitempty" yaml:"to"`
}

// Validate reports whether the config can be applied.
func (c ViewConfig) Validate() error {
	if _, err := ParseMetricMode(string(c.Mode)); err != nil {
		return err
	}
	if c.Window < 0 {
		return fmt.Errorf("%w: window must be >= 0, got %d", ErrInvalidView, c.Window)
	}
	if c.From != 0 && c.To != 0 && c.From > c.To {
		return fmt.Errorf("%w: from %d is after to %d", ErrInvalidView, c.From, c.To)
	}
	return nil
}

// Extent is the range of present values of one field.
type Extent struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// View is a filtered, field-selected, smoothed series ready for rendering.
type View struct {
	Config    ViewConfig           `json:"config"`
	Series    Series               `json:"series"`
	Extents   map[FieldName]Extent `json:"extents"`
	PeakYears []int                `json:"peak_years,omitempty"`
}

// BuildView filters series to the configured year range, keeps the fields of
// the configured mode, and smooths them. Smoothing runs after filtering so the
// window clips at the edges of the visible range.
func BuildView(series Series, cfg ViewConfig) (View, error) {
	if err := cfg.Validate(); err != nil {
		return View{}, err
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeBoth
	}

	fields := cfg.Mode.Fields()
	display := Smooth(series.Between(cfg.From, cfg.To).Select(fields), fields, cfg.Window)

	view := View{
		Config:  cfg,
		Series:  display,
		Extents: make(map[FieldName]Extent, len(fields)),
	}
	for _, f := range fields {
		if ext, ok := FieldExtent(display, f); ok {
			view.Extents[f] = ext
		}
	}
	if ext, ok := view.Extents[FieldTempAnomaly]; ok {
		view.PeakYears = yearsAt(display, FieldTempAnomaly, ext.Max)
	}
	return view, nil
}

// FieldExtent returns the min and max present values of f. The second result
// is false when f is absent everywhere.
func FieldExtent(series Series, f FieldName) (Extent, bool) {
	ext := Extent{Min: math.Inf(1), Max: math.Inf(-1)}
	found := false
	for _, s := range series {
		r := s.Get(f)
		if !r.Present {
			continue
		}
		found = true
		ext.Min = math.Min(ext.Min, r.Value)
		ext.Max = math.Max(ext.Max, r.Value)
	}
	if !found {
		return Extent{}, false
	}
	return ext, true
}

func yearsAt(series Series, f FieldName, v float64) []int {
	var years []int
	for _, s := range series {
		if r := s.Get(f); r.Present && r.Value == v {
			years = append(years, s.Year)
		}
	}
	return years
}
