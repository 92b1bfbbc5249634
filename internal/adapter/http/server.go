package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/climate-trend-etl/internal/domain"
	"github.com/couchcryptid/climate-trend-etl/internal/view"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ViewProvider builds renderer-ready views of the accumulated series.
type ViewProvider interface {
	Build(ctx context.Context, cfg domain.ViewConfig) (domain.View, error)
	Story() domain.Story
	StoryView(ctx context.Context, i, window int) (domain.StoryStep, int, domain.View, error)
}

// Server exposes health, readiness, metrics, and view HTTP endpoints.
type Server struct {
	httpServer    *http.Server
	views         ViewProvider
	defaultWindow int
	logger        *slog.Logger
}

type storyStepResponse struct {
	Index int              `json:"index"`
	Step  domain.StoryStep `json:"step"`
	View  domain.View      `json:"view"`
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /v1 view routes. Requests without a window use defaultWindow.
func NewServer(addr string, ready sharedobs.ReadinessChecker, views ViewProvider, defaultWindow int, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		views:         views,
		defaultWindow: defaultWindow,
		logger:        logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/view", s.handleView)
	mux.HandleFunc("GET /v1/story", s.handleStory)
	mux.HandleFunc("GET /v1/story/{step}", s.handleStoryStep)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cfg := domain.ViewConfig{Mode: domain.MetricMode(q.Get("mode"))}

	var err error
	if cfg.Window, err = intParam(q.Get("window"), s.defaultWindow); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("window: %w", err))
		return
	}
	if cfg.From, err = intParam(q.Get("from"), 0); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("from: %w", err))
		return
	}
	if cfg.To, err = intParam(q.Get("to"), 0); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("to: %w", err))
		return
	}

	v, err := s.views.Build(r.Context(), cfg)
	if err != nil {
		s.writeViewError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, v)
}

func (s *Server) handleStory(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]domain.Story{"steps": s.views.Story()})
}

func (s *Server) handleStoryStep(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(r.PathValue("step"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("step: %q is not an integer", r.PathValue("step")))
		return
	}
	window, err := intParam(r.URL.Query().Get("window"), s.defaultWindow)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("window: %w", err))
		return
	}

	step, idx, v, err := s.views.StoryView(r.Context(), i, window)
	if err != nil {
		s.writeViewError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, storyStepResponse{Index: idx, Step: step, View: v})
}

func (s *Server) writeViewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidView):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, view.ErrEmptyStory):
		writeError(w, http.StatusNotFound, err)
	default:
		s.logger.Error("build view failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return n, nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
