package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"procurement-audit/internal/audit"
	"procurement-audit/internal/config"
	"procurement-audit/internal/metrics"
	"procurement-audit/internal/report"
	"procurement-audit/internal/service"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"money":       report.FormatMoney,
	"percent":     report.FormatPercent,
	"maxVariance": maxVariance,
}).ParseFS(templatesFS, "templates/*.html"))

func maxVariance(r *audit.Result) string {
	if r == nil || !r.MaxVariance.Valid {
		return "n/a"
	}
	return report.FormatPercent(r.MaxVariance.Decimal)
}

// Server is the dashboard HTTP front end.
type Server struct {
	cfg     *config.Config
	svc     *service.Service
	metrics *metrics.Registry
	logger  zerolog.Logger
	router  chi.Router
}

// New wires routes for the dashboard, JSON API and operational endpoints.
func New(cfg *config.Config, svc *service.Service, reg *metrics.Registry, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		svc:     svc,
		metrics: reg,
		logger:  logger.With().Str("component", "web").Logger(),
	}
	s.router = s.routes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)
		r.Get("/", s.handleIndex)
		r.Post("/upload", s.handleUpload)
		r.Post("/audit", s.handleAudit)
		r.Post("/reset", s.handleReset)
		r.Get("/report.csv", s.handleReportCSV)
		r.Get("/chart.png", s.handleChart)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.Server.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
		r.Post("/audit", s.handleAPIAudit)
		r.Group(func(r chi.Router) {
			r.Use(s.withSession)
			r.Get("/session", s.handleAPISession)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("dashboard listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	grace := s.cfg.Server.ShutdownTimeout
	if grace <= 0 {
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	s.logger.Info().Msg("shutting down dashboard")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
