package pipeline

import (
	"log/slog"

	"github.com/couchcryptid/climate-trend-etl/internal/domain"
	"github.com/couchcryptid/climate-trend-etl/internal/observability"
	"github.com/couchcryptid/climate-trend-etl/internal/store"
)

// SeriesTransformer implements Transformer by merging parsed samples into the
// accumulated series and smoothing the years each batch affects.
type SeriesTransformer struct {
	store   *store.Store
	window  int
	fields  []domain.FieldName
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTransformer creates a SeriesTransformer that smooths fields with window.
func NewTransformer(st *store.Store, window int, fields []domain.FieldName, logger *slog.Logger, metrics *observability.Metrics) *SeriesTransformer {
	return &SeriesTransformer{
		store:   st,
		window:  window,
		fields:  fields,
		logger:  logger,
		metrics: metrics,
	}
}

func (t *SeriesTransformer) Parse(raw domain.RawEvent) (domain.Sample, error) {
	return domain.ParseRawSample(raw)
}

func (t *SeriesTransformer) Apply(samples []domain.Sample) []domain.SmoothedSample {
	changed := t.store.Merge(samples)
	t.metrics.SeriesLength.Set(float64(t.store.Len()))
	if len(changed) == 0 {
		return nil
	}

	series, version := t.store.Snapshot()

	out := domain.SmoothChanged(series, changed, t.fields, t.window)
	t.logger.Debug("smoothed batch",
		"changed_years", len(changed),
		"republished", len(out),
		"series_length", len(series),
		"version", version,
	)
	return out
}
