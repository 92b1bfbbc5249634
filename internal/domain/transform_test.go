package domain

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRawSample(t *testing.T) {
	t.Run("numeric fields", func(t *testing.T) {
		raw := RawEvent{Value: []byte(`{"year":1988,"TempAnomaly":0.32,"CO2ppm":351.57}`)}
		sample, err := ParseRawSample(raw)

		require.NoError(t, err)
		assert.Equal(t, 1988, sample.Year)
		assert.Equal(t, Present(0.32), sample.Get(FieldTempAnomaly))
		assert.Equal(t, Present(351.57), sample.Get(FieldCO2))
	})

	t.Run("null is absent", func(t *testing.T) {
		raw := RawEvent{Value: []byte(`{"year":1900,"TempAnomaly":-0.08,"CO2ppm":null}`)}
		sample, err := ParseRawSample(raw)

		require.NoError(t, err)
		r, ok := sample.Values[FieldCO2]
		assert.True(t, ok)
		assert.False(t, r.Present)
	})

	t.Run("numeric strings", func(t *testing.T) {
		raw := RawEvent{Value: []byte(`{"Year":"2016","TempAnomaly":"0.99","CO2ppm":""}`)}
		sample, err := ParseRawSample(raw)

		require.NoError(t, err)
		assert.Equal(t, 2016, sample.Year)
		assert.Equal(t, Present(0.99), sample.Get(FieldTempAnomaly))
		assert.False(t, sample.Get(FieldCO2).Present)
	})

	t.Run("zero is a reading", func(t *testing.T) {
		raw := RawEvent{Value: []byte(`{"year":1951,"TempAnomaly":0}`)}
		sample, err := ParseRawSample(raw)

		require.NoError(t, err)
		assert.Equal(t, Present(0), sample.Get(FieldTempAnomaly))
	})

	cases := []struct {
		name  string
		value string
		want  string
	}{
		{"invalid JSON", `{invalid json`, "parse raw sample"},
		{"missing year", `{"TempAnomaly":0.1}`, "missing year"},
		{"null year", `{"year":null,"TempAnomaly":0.1}`, "missing year"},
		{"fractional year", `{"year":1988.5}`, "year"},
		{"negative year", `{"year":-5}`, "year"},
		{"non-numeric field", `{"year":1988,"TempAnomaly":"warm"}`, "TempAnomaly"},
		{"boolean field", `{"year":1988,"CO2ppm":true}`, "CO2ppm"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRawSample(RawEvent{Value: []byte(tc.value)})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestNewSeries_SortsAndDeduplicates(t *testing.T) {
	samples := []Sample{
		{Year: 2001, Values: map[FieldName]Reading{fieldValue: Present(1)}},
		{Year: 1999, Values: map[FieldName]Reading{fieldValue: Present(2)}},
		{Year: 2001, Values: map[FieldName]Reading{fieldValue: Present(3)}},
		{Year: 2000, Values: map[FieldName]Reading{fieldValue: Present(4)}},
	}

	series := NewSeries(samples)

	assert.Equal(t, []int{1999, 2000, 2001}, series.Years())
	assert.Equal(t, Present(3), series[2].Get(fieldValue))
}

func TestSeries_BetweenAndSelect(t *testing.T) {
	s := climateSeries()

	assert.Equal(t, []int{1957, 1958, 1959}, s.Between(1957, 1959).Years())
	assert.Equal(t, []int{1959, 1960}, s.Between(1959, 0).Years())
	assert.Equal(t, []int{1956, 1957}, s.Between(0, 1957).Years())

	selected := s.Select([]FieldName{FieldCO2})
	_, hasTemp := selected[3].Values[FieldTempAnomaly]
	assert.False(t, hasTemp)
	assert.Equal(t, Present(316.0), selected[3].Get(FieldCO2))

	sparse := Series{{Year: 2000, Values: map[FieldName]Reading{FieldTempAnomaly: Present(0.39)}}}
	got := sparse.Select([]FieldName{FieldTempAnomaly, FieldCO2})
	assert.Equal(t, map[FieldName]Reading{FieldTempAnomaly: Present(0.39), FieldCO2: Absent()}, got[0].Values)
}

func TestSmoothChanged(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC))
	SetClock(fakeClock)
	t.Cleanup(func() { SetClock(nil) })

	years := []int{2000, 2001, 2002, 2003, 2004, 2005, 2006}
	values := []*float64{ptr(1), ptr(2), ptr(3), ptr(4), ptr(5), ptr(6), ptr(7)}
	series := seriesOf(fieldValue, years, values)
	fields := []FieldName{fieldValue}

	t.Run("neighbours within half window", func(t *testing.T) {
		out := SmoothChanged(series, []int{2003}, fields, 5)

		got := make([]int, len(out))
		for i, s := range out {
			got[i] = s.Year
		}
		assert.Equal(t, []int{2001, 2002, 2003, 2004, 2005}, got)
		assert.Equal(t, 5, out[0].Window)
		assert.Equal(t, fields, out[0].Fields)
		assert.Equal(t, fakeClock.Now(), out[0].ProcessedAt)
		assert.Equal(t, Present(4), out[2].Values[fieldValue])
	})

	t.Run("window clipped at the edge", func(t *testing.T) {
		out := SmoothChanged(series, []int{2000}, fields, 3)
		require.Len(t, out, 2)
		assert.Equal(t, 2000, out[0].Year)
		assert.Equal(t, Present(1.5), out[0].Values[fieldValue])
		assert.Equal(t, 2001, out[1].Year)
	})

	t.Run("no smoothing republishes only changed years", func(t *testing.T) {
		out := SmoothChanged(series, []int{2002, 2005}, fields, 0)
		require.Len(t, out, 2)
		assert.Equal(t, 2002, out[0].Year)
		assert.Equal(t, 2005, out[1].Year)
	})

	t.Run("unknown years ignored", func(t *testing.T) {
		assert.Empty(t, SmoothChanged(series, []int{1800}, fields, 3))
		assert.Nil(t, SmoothChanged(series, nil, fields, 3))
		assert.Nil(t, SmoothChanged(nil, []int{2000}, fields, 3))
	})
}

func TestReadingJSON(t *testing.T) {
	s := Sample{Year: 1958, Values: map[FieldName]Reading{FieldCO2: Present(315.3), FieldTempAnomaly: Absent()}}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"year":1958,"values":{"CO2ppm":315.3,"TempAnomaly":null}}`, string(data))

	var back Sample
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s, back)
}

func TestLoadStory(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "story.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`steps:
  - title: Recent highs
    caption: CO2 crosses 420 ppm.
    from: 2015
    to: 2024
    mode: both
  - title: Early record
    from: 1880
    to: 1920
    mode: TempAnomaly
`), 0o600))

		story, err := LoadStory(path)
		require.NoError(t, err)
		require.Len(t, story, 2)
		assert.Equal(t, "Recent highs", story[0].Title)
		assert.Equal(t, ModeTempAnomaly, story[1].Mode)
		assert.Equal(t, 1880, story[1].From)
	})

	t.Run("invalid mode", func(t *testing.T) {
		path := filepath.Join(dir, "bad-mode.yaml")
		require.NoError(t, os.WriteFile(path, []byte("steps:\n  - title: x\n    mode: rainfall\n"), 0o600))

		_, err := LoadStory(path)
		require.ErrorIs(t, err, ErrInvalidView)
		assert.Contains(t, err.Error(), "step 0")
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte("steps: []\n"), 0o600))

		_, err := LoadStory(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no steps")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadStory(filepath.Join(dir, "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read story")
	})
}
