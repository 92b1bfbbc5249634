// Package view builds renderer-ready views of the accumulated climate series.
package view

import (
	"context"
	"errors"

	"github.com/couchcryptid/climate-trend-etl/internal/domain"
	"github.com/couchcryptid/climate-trend-etl/internal/observability"
)

// ErrEmptyStory is returned when a story step is requested but no steps exist.
var ErrEmptyStory = errors.New("story has no steps")

// SeriesSource provides a consistent snapshot of the series and its version.
type SeriesSource interface {
	Snapshot() (domain.Series, uint64)
}

// Service builds views from a SeriesSource, caching results for the latest
// source version.
type Service struct {
	source  SeriesSource
	story   domain.Story
	cache   *viewCache
	metrics *observability.Metrics
}

// NewService creates a view Service. A nil story uses domain.DefaultStory.
func NewService(source SeriesSource, story domain.Story, cacheSize int, metrics *observability.Metrics) *Service {
	if story == nil {
		story = domain.DefaultStory()
	}
	return &Service{
		source:  source,
		story:   story,
		cache:   newViewCache(cacheSize),
		metrics: metrics,
	}
}

// Build returns the view for cfg over the latest snapshot.
func (s *Service) Build(ctx context.Context, cfg domain.ViewConfig) (domain.View, error) {
	if err := ctx.Err(); err != nil {
		return domain.View{}, err
	}

	mode, err := domain.ParseMetricMode(string(cfg.Mode))
	if err != nil {
		s.metrics.ViewRequests.WithLabelValues("invalid", "error").Inc()
		return domain.View{}, err
	}
	cfg.Mode = mode

	series, version := s.source.Snapshot()
	if v, ok := s.cache.get(version, cfg); ok {
		s.metrics.ViewCache.WithLabelValues("hit").Inc()
		s.metrics.ViewRequests.WithLabelValues(string(mode), "success").Inc()
		return cloneView(v), nil
	}
	s.metrics.ViewCache.WithLabelValues("miss").Inc()

	v, err := domain.BuildView(series, cfg)
	if err != nil {
		s.metrics.ViewRequests.WithLabelValues(string(mode), "error").Inc()
		return domain.View{}, err
	}
	s.cache.put(version, cfg, v)
	s.metrics.ViewRequests.WithLabelValues(string(mode), "success").Inc()
	return cloneView(v), nil
}

// Story returns the configured story steps.
func (s *Service) Story() domain.Story {
	out := make(domain.Story, len(s.story))
	copy(out, s.story)
	return out
}

// StoryView resolves step i (wrapping) and builds its view with window.
func (s *Service) StoryView(ctx context.Context, i, window int) (domain.StoryStep, int, domain.View, error) {
	step, idx, ok := s.story.Step(i)
	if !ok {
		return domain.StoryStep{}, 0, domain.View{}, ErrEmptyStory
	}
	v, err := s.Build(ctx, step.ViewConfig(window))
	if err != nil {
		return domain.StoryStep{}, 0, domain.View{}, err
	}
	return step, idx, v, nil
}

// cloneView copies the parts of a cached view a caller could mutate.
func cloneView(v domain.View) domain.View {
	out := v
	out.Series = v.Series.Clone()
	out.Extents = make(map[domain.FieldName]domain.Extent, len(v.Extents))
	for k, e := range v.Extents {
		out.Extents[k] = e
	}
	if v.PeakYears != nil {
		out.PeakYears = append([]int(nil), v.PeakYears...)
	}
	return out
}
