package public

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valutatrade/hub/deploy/config"
	"github.com/valutatrade/hub/internal/metrics"
	mwLogger "github.com/valutatrade/hub/internal/ports/http/public/middleware/logger"
)

type Server struct {
	Server    *http.Server
	cfg       *config.Config
	rates     RatesService
	updater   UpdaterService
	portfolio PortfolioService
	metrics   *metrics.Metrics
}

func NewServer(cfg *config.Config, rates RatesService, updater UpdaterService, portfolio PortfolioService, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:       cfg,
		rates:     rates,
		updater:   updater,
		portfolio: portfolio,
		metrics:   m,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mwLogger.New())
	r.Use(middleware.Recoverer)
	r.Use(s.metricsMiddleware)

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/rates/{from}/{to}", s.GetRate)
	r.Get("/convert", s.Convert)
	r.Post("/update", s.RunUpdate)
	r.Post("/register", s.Register)
	r.Post("/login", s.Login)
	r.Get("/portfolio", s.GetPortfolio)
	r.Post("/portfolio/buy", s.Buy)
	r.Post("/portfolio/sell", s.Sell)

	s.Server = &http.Server{
		Addr:         ":" + cfg.HTTPServer.Port,
		Handler:      r,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	return s
}

// Start serves until ctx is cancelled; the returned channel closes after
// graceful shutdown completes.
func (s *Server) Start(ctx context.Context) <-chan struct{} {
	doneChan := make(chan struct{})

	go func() {
		if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.Server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to stop server", "error", err)
		}

		close(doneChan)
	}()

	return doneChan
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil && routeCtx.RoutePattern() != "" {
			path = routeCtx.RoutePattern()
		}

		s.metrics.HTTPRequestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(ww.Status())).Inc()
		s.metrics.HTTPRequestDuration.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
	})
}

func RespondWithJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}
