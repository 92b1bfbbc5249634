package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// FieldName identifies a numeric field within a Sample.
type FieldName string

// Recognized climate fields.
const (
	FieldTempAnomaly FieldName = "TempAnomaly"
	FieldCO2         FieldName = "CO2ppm"
)

// Reading is an optional numeric value. The zero Reading is absent.
type Reading struct {
	Value   float64
	Present bool
}

// Present returns a Reading holding v.
func Present(v float64) Reading {
	return Reading{Value: v, Present: true}
}

// Absent returns a missing Reading.
func Absent() Reading {
	return Reading{}
}

// MarshalJSON encodes absent readings as null.
func (r Reading) MarshalJSON() ([]byte, error) {
	if !r.Present {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON decodes null as an absent reading.
func (r *Reading) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = Absent()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode reading: %w", err)
	}
	*r = Present(v)
	return nil
}

// Sample is one year of readings. A field missing from Values is absent.
type Sample struct {
	Year   int                   `json:"year"`
	Values map[FieldName]Reading `json:"values"`
}

// Get returns the reading for field f, absent if the key is missing.
func (s Sample) Get(f FieldName) Reading {
	return s.Values[f]
}

// Clone returns a deep copy of the sample.
func (s Sample) Clone() Sample {
	out := Sample{Year: s.Year}
	if s.Values != nil {
		out.Values = make(map[FieldName]Reading, len(s.Values))
		for k, v := range s.Values {
			out.Values[k] = v
		}
	}
	return out
}

// Series is an ordered sequence of samples, strictly increasing by Year.
type Series []Sample

// NewSeries sorts samples by year and collapses duplicate years, keeping the
// sample that appears last in the input.
func NewSeries(samples []Sample) Series {
	byYear := make(map[int]int, len(samples))
	out := make(Series, 0, len(samples))
	for _, s := range samples {
		if i, ok := byYear[s.Year]; ok {
			out[i] = s.Clone()
			continue
		}
		byYear[s.Year] = len(out)
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// Clone returns a deep copy of the series. A nil series stays nil.
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	for i := range s {
		out[i] = s[i].Clone()
	}
	return out
}

// Years returns the index sequence of the series.
func (s Series) Years() []int {
	years := make([]int, len(s))
	for i := range s {
		years[i] = s[i].Year
	}
	return years
}

// Between returns the samples with from <= Year <= to. A zero bound is open.
func (s Series) Between(from, to int) Series {
	out := make(Series, 0, len(s))
	for _, sample := range s {
		if from != 0 && sample.Year < from {
			continue
		}
		if to != 0 && sample.Year > to {
			continue
		}
		out = append(out, sample.Clone())
	}
	return out
}

// Select returns a copy of the series holding exactly the given fields. A
// field missing from a sample is written as an explicit absent reading.
func (s Series) Select(fields []FieldName) Series {
	out := make(Series, len(s))
	for i, sample := range s {
		values := make(map[FieldName]Reading, len(fields))
		for _, f := range fields {
			values[f] = sample.Get(f)
		}
		out[i] = Sample{Year: sample.Year, Values: values}
	}
	return out
}
