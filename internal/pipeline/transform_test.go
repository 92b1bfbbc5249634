package pipeline_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/climate-trend-etl/internal/domain"
	"github.com/couchcryptid/climate-trend-etl/internal/observability"
	"github.com/couchcryptid/climate-trend-etl/internal/pipeline"
	"github.com/couchcryptid/climate-trend-etl/internal/store"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAt(year int, temp float64) domain.Sample {
	return domain.Sample{Year: year, Values: map[domain.FieldName]domain.Reading{
		domain.FieldTempAnomaly: domain.Present(temp),
	}}
}

func TestSeriesTransformer_Parse(t *testing.T) {
	tfm := pipeline.NewTransformer(store.New(), 3, []domain.FieldName{domain.FieldTempAnomaly}, slog.Default(), observability.NewMetricsForTesting())

	sample, err := tfm.Parse(domain.RawEvent{Value: []byte(`{"Year":"1975","TempAnomaly":-0.01,"CO2ppm":null}`)})
	require.NoError(t, err)
	assert.Equal(t, 1975, sample.Year)
	assert.Equal(t, domain.Present(-0.01), sample.Get(domain.FieldTempAnomaly))
	assert.False(t, sample.Get(domain.FieldCO2).Present)

	_, err = tfm.Parse(domain.RawEvent{Value: []byte(`{"TempAnomaly":0.1}`)})
	require.ErrorIs(t, err, domain.ErrMissingYear)
}

func TestSeriesTransformer_Apply_RepublishesNeighbours(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(nil) })

	st := store.New()
	metrics := observability.NewMetricsForTesting()
	fields := []domain.FieldName{domain.FieldTempAnomaly}
	tfm := pipeline.NewTransformer(st, 3, fields, slog.Default(), metrics)

	first := tfm.Apply([]domain.Sample{sampleAt(2000, 1), sampleAt(2001, 2), sampleAt(2002, 3), sampleAt(2003, 4)})
	require.Len(t, first, 4)
	assert.Equal(t, domain.Present(1.5), first[0].Values[domain.FieldTempAnomaly])
	assert.Equal(t, domain.Present(2), first[1].Values[domain.FieldTempAnomaly])
	assert.Equal(t, fakeClock.Now(), first[0].ProcessedAt)
	assert.Equal(t, 3, first[0].Window)
	assert.Equal(t, fields, first[0].Fields)
	assert.InDelta(t, 4.0, testutil.ToFloat64(metrics.SeriesLength), 0)

	// Revising 2003 affects only its own window: 2002 and 2003.
	second := tfm.Apply([]domain.Sample{sampleAt(2003, 10)})
	require.Len(t, second, 2)
	assert.Equal(t, 2002, second[0].Year)
	assert.Equal(t, domain.Present(5), second[0].Values[domain.FieldTempAnomaly])
	assert.Equal(t, 2003, second[1].Year)
	assert.Equal(t, domain.Present(6.5), second[1].Values[domain.FieldTempAnomaly])
}

func TestSeriesTransformer_Apply_UnchangedBatchPublishesNothing(t *testing.T) {
	st := store.New()
	metrics := observability.NewMetricsForTesting()
	tfm := pipeline.NewTransformer(st, 5, []domain.FieldName{domain.FieldTempAnomaly}, slog.Default(), metrics)

	require.NotEmpty(t, tfm.Apply([]domain.Sample{sampleAt(1990, 0.45), sampleAt(1991, 0.41)}))
	metrics.SeriesLength.Set(0)

	assert.Empty(t, tfm.Apply([]domain.Sample{sampleAt(1990, 0.45)}))
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.SeriesLength), 0, "length is reported even when nothing changed")
}

func TestSeriesTransformer_Apply_LatestPublishedMatchesFullSmoothing(t *testing.T) {
	st := store.New()
	fields := []domain.FieldName{domain.FieldTempAnomaly}
	tfm := pipeline.NewTransformer(st, 5, fields, slog.Default(), observability.NewMetricsForTesting())

	latest := make(map[int]map[domain.FieldName]domain.Reading)
	publish := func(out []domain.SmoothedSample) {
		for _, s := range out {
			latest[s.Year] = s.Values
		}
	}
	publish(tfm.Apply([]domain.Sample{sampleAt(1990, 0.45), sampleAt(1992, 0.23), sampleAt(1994, 0.31)}))
	publish(tfm.Apply([]domain.Sample{sampleAt(1991, 0.41), sampleAt(1995, 0.45)}))
	publish(tfm.Apply([]domain.Sample{sampleAt(1993, 0.24), sampleAt(1990, 0.44)}))

	series, _ := st.Snapshot()
	want := make(map[int]map[domain.FieldName]domain.Reading)
	for _, s := range domain.Smooth(series, fields, 5) {
		want[s.Year] = s.Values
	}
	if diff := cmp.Diff(want, latest); diff != "" {
		t.Errorf("latest published values differ from full smoothing (-want +got):\n%s", diff)
	}
}
