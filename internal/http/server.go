package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/lutefd/fairplay-api/internal/auth"
	"github.com/lutefd/fairplay-api/internal/domain/lineups"
	"github.com/lutefd/fairplay-api/internal/domain/stats"
	"github.com/lutefd/fairplay-api/internal/events"
	"github.com/lutefd/fairplay-api/internal/metrics"
	"github.com/rs/zerolog"
)

// Positions is the snapshot API served over HTTP; *projections.Service implements it.
type Positions interface {
	Get(ctx context.Context, key stats.Key) (*stats.PlayerPositionHistory, error)
	Compute(ctx context.Context, key stats.Key) (stats.PlayerPositionHistory, error)
	ListTeam(ctx context.Context, teamID uuid.UUID, season string) ([]stats.PlayerPositionHistory, error)
	ComputeForTeam(ctx context.Context, teamID uuid.UUID, season string) ([]stats.PlayerPositionHistory, error)
}

type LineupStore interface {
	GetGame(ctx context.Context, teamID, gameID uuid.UUID) (lineups.Game, error)
	PutLineup(ctx context.Context, teamID, gameID uuid.UUID, l lineups.Lineup) (*lineups.Lineup, error)
	DeleteLineup(ctx context.Context, teamID, gameID uuid.UUID) (*lineups.Lineup, error)
}

type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

type Dependencies struct {
	Positions   Positions
	Lineups     LineupStore
	Bus         Publisher
	Metrics     *metrics.Recorder
	Logger      zerolog.Logger
	APIToken    string
	CORSOrigins []string
	// Ready backs /healthz; nil means always ready.
	Ready func(ctx context.Context) error
	Now   func() time.Time
}

type Server struct {
	positions Positions
	lineups   LineupStore
	bus       Publisher
	metrics   *metrics.Recorder
	log       zerolog.Logger
	auth      auth.Middleware
	origins   []string
	ready     func(ctx context.Context) error
	now       func() time.Time
}

func NewServer(deps Dependencies) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		positions: deps.Positions,
		lineups:   deps.Lineups,
		bus:       deps.Bus,
		metrics:   deps.Metrics,
		log:       deps.Logger.With().Str("component", "http").Logger(),
		auth:      auth.NewMiddleware(deps.APIToken, deps.Logger),
		origins:   origins,
		ready:     deps.Ready,
		now:       deps.Now,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/v1/teams/{teamID}", func(r chi.Router) {
		r.Use(s.auth.Guard)
		r.Route("/seasons/{season}", func(r chi.Router) {
			r.Get("/positions", s.handleListTeam)
			r.Post("/positions/recompute", s.handleRecomputeTeam)
			r.Get("/players/{playerID}/positions", s.handleGetPlayer)
			r.Post("/players/{playerID}/positions/recompute", s.handleRecomputePlayer)
		})
		r.Put("/games/{gameID}/lineup", s.handlePutLineup)
		r.Delete("/games/{gameID}/lineup", s.handleDeleteLineup)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// observe logs every request and records it under its route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.metrics.RecordRequest(r.Method, route, status, elapsed)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Int("status", status).
			Dur("duration", elapsed).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
