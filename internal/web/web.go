package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"whisperdrop/internal/config"
	"whisperdrop/internal/drop"
	"whisperdrop/internal/ics"
	appLog "whisperdrop/internal/log"
	"whisperdrop/internal/model"
)

const (
	defaultUpcomingDays = 7
	shutdownTimeout     = 5 * time.Second
)

// Server exposes the drop schedule over HTTP.
type Server struct {
	cfg     *config.Config
	sched   *drop.Scheduler
	router  chi.Router
	limiter *rate.Limiter
}

// NewServer constructs a new Server. sched must be non-nil.
func NewServer(cfg *config.Config, sched *drop.Scheduler) *Server {
	s := &Server{
		cfg:    cfg,
		sched:  sched,
		router: chi.NewRouter(),
	}
	if cfg.RateLimit.PerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst)
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on cfg.Listen until ctx is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(noStore)
		r.Get("/daily", s.handleDaily)
		r.Get("/daily.ics", s.handleFeed)
		r.Get("/upcoming", s.handleUpcoming)
		r.Get("/catalog", s.handleCatalog)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleDaily returns today's drop for the caller's zone.
//
// GET /api/daily?tz=Europe/Paris&date=2025-06-20
//   - tz: IANA zone; missing or unknown zones use the configured default.
//   - date: optional YYYY-MM-DD day key; defaults to today in tz.
func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tz := q.Get("tz")
	raw := q.Get("date")
	if raw == "" {
		writeJSON(w, http.StatusOK, s.sched.Today(tz))
		return
	}

	key, err := drop.ParseDayKey(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	d, err := s.sched.ForDay(tz, key)
	if err != nil {
		appLog.Error("api daily: assemble failed", err, "tz", tz, "date", raw)
		writeError(w, http.StatusInternalServerError, "failed to build drop")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// upcomingResponse is the JSON response shape for /api/upcoming.
type upcomingResponse struct {
	TimeZone string       `json:"timeZone"`
	Drops    []model.Drop `json:"drops"`
}

// handleUpcoming lists the next drops starting at the next release event.
//
// GET /api/upcoming?tz=Asia/Seoul&days=7
//   - days: number of drops (default 7, clamped to max_upcoming_days)
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tz := q.Get("tz")
	days := s.clampDays(parseIntDefault(q.Get("days"), defaultUpcomingDays))

	drops, err := s.sched.Upcoming(tz, days)
	if err != nil {
		appLog.Error("api upcoming: schedule failed", err, "tz", tz, "days", days)
		writeError(w, http.StatusInternalServerError, "failed to build schedule")
		return
	}
	writeJSON(w, http.StatusOK, upcomingResponse{
		TimeZone: s.sched.ResolveZone(tz).String(),
		Drops:    drops,
	})
}

// handleFeed serves upcoming drops as an iCalendar subscription.
//
// GET /api/daily.ics?tz=America/Chicago&days=14&alarm=1
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tz := q.Get("tz")
	days := s.clampDays(parseIntDefault(q.Get("days"), s.cfg.MaxUpcomingDays))

	drops, err := s.sched.Upcoming(tz, days)
	if err != nil {
		appLog.Error("api feed: schedule failed", err, "tz", tz, "days", days)
		writeError(w, http.StatusInternalServerError, "failed to build schedule")
		return
	}

	cal := ics.BuildFeed(drops, ics.FeedConfig{
		TimeZone: s.sched.ResolveZone(tz).String(),
		Alarm:    q.Get("alarm") == "1",
	})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="whisperdrop.ics"`)
	w.WriteHeader(http.StatusOK)
	if err := ics.WriteFeed(w, cal); err != nil {
		appLog.Error("failed to write calendar feed", err)
	}
}

// catalogResponse is the JSON response shape for /api/catalog.
type catalogResponse struct {
	Size        int           `json:"size"`
	ReleaseTime string        `json:"releaseTime"`
	Entries     []model.Entry `json:"entries"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	cat := s.sched.Catalog()
	writeJSON(w, http.StatusOK, catalogResponse{
		Size:        cat.Len(),
		ReleaseTime: s.sched.Boundary().String(),
		Entries:     cat.Entries(),
	})
}

func (s *Server) clampDays(days int) int {
	if days < 1 {
		days = 1
	}
	if days > s.cfg.MaxUpcomingDays {
		days = s.cfg.MaxUpcomingDays
	}
	return days
}

// rateLimit rejects requests beyond the configured process-wide rate.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// noStore marks responses as uncacheable: every call reads the live clock.
func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, max-age=0")
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
