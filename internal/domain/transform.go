package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMissingYear is returned when a raw reading has no usable year.
var ErrMissingYear = errors.New("missing year")

// ParseRawSample deserializes a RawEvent's value into a Sample.
// It expects the flat per-year JSON produced by the loader, e.g.
// {"year": 1988, "TempAnomaly": 0.32, "CO2ppm": 351.57}.
func ParseRawSample(raw RawEvent) (Sample, error) {
	var rec map[string]json.RawMessage
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Sample{}, fmt.Errorf("parse raw sample: %w", err)
	}

	sample := Sample{Values: make(map[FieldName]Reading, len(rec))}
	for key, value := range rec {
		if strings.EqualFold(key, "year") {
			year, err := parseYear(value)
			if err != nil {
				return Sample{}, fmt.Errorf("parse raw sample: %w", err)
			}
			sample.Year = year
			continue
		}

		reading, err := parseReading(value)
		if err != nil {
			return Sample{}, fmt.Errorf("parse raw sample: field %q: %w", key, err)
		}
		sample.Values[FieldName(key)] = reading
	}

	if sample.Year == 0 {
		return Sample{}, fmt.Errorf("parse raw sample: %w", ErrMissingYear)
	}
	return sample, nil
}

// parseYear accepts a positive integer year as a JSON number or numeric string.
func parseYear(value json.RawMessage) (int, error) {
	reading, err := parseReading(value)
	if err != nil {
		return 0, fmt.Errorf("year: %w", err)
	}
	if !reading.Present {
		return 0, ErrMissingYear
	}
	if reading.Value <= 0 || reading.Value != math.Trunc(reading.Value) {
		return 0, fmt.Errorf("year: invalid value %v", reading.Value)
	}
	return int(reading.Value), nil
}

// parseReading accepts a JSON number, a numeric string, null, or an empty string.
func parseReading(value json.RawMessage) (Reading, error) {
	var r Reading
	if err := json.Unmarshal(value, &r); err == nil {
		return r, nil
	}

	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return Reading{}, fmt.Errorf("not a number: %s", value)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return Absent(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Reading{}, fmt.Errorf("not a number: %q", s)
	}
	return Present(v), nil
}

// SmoothChanged smooths the full series and returns the samples whose smoothed
// values may differ because of the changed years: every position within k/2 of
// a changed year. Results are stamped with the current clock time.
func SmoothChanged(series Series, changed []int, fields []FieldName, k int) []SmoothedSample {
	if len(series) == 0 || len(changed) == 0 {
		return nil
	}

	positions := make(map[int]int, len(series))
	for i, s := range series {
		positions[s.Year] = i
	}

	half := 0
	if k > 1 {
		half = k / 2
	}
	affected := make([]bool, len(series))
	for _, year := range changed {
		pos, ok := positions[year]
		if !ok {
			continue
		}
		lo, hi := max(0, pos-half), min(len(series)-1, pos+half)
		for i := lo; i <= hi; i++ {
			affected[i] = true
		}
	}

	smoothed := Smooth(series, fields, k)
	now := clock.Now()
	out := make([]SmoothedSample, 0, len(changed))
	for i, ok := range affected {
		if !ok {
			continue
		}
		out = append(out, SmoothedSample{
			Year:        smoothed[i].Year,
			Values:      smoothed[i].Values,
			Window:      k,
			Fields:      fields,
			ProcessedAt: now,
		})
	}
	return out
}
