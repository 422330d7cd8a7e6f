// Package api exposes the HTTP surface that drives the core: strategy
// generation, session lifecycle, and read-only trade/equity/portfolio
// endpoints. Restyled from the teacher's gorilla/mux + rs/cors server
// (setupRoutes/Start/Stop shape) with the websocket push layer dropped —
// this surface is pure request/response, no streaming subscriptions.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/atlas-desktop/krypto-paper/internal/apperr"
	"github.com/atlas-desktop/krypto-paper/internal/dbstore"
	"github.com/atlas-desktop/krypto-paper/internal/generator"
	"github.com/atlas-desktop/krypto-paper/pkg/types"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Server is the HTTP API server fronting the core services.
type Server struct {
	logger     *zap.Logger
	addr       string
	router     *mux.Router
	httpServer *http.Server

	store *dbstore.Store
	gen   *generator.Generator
}

// New constructs a Server and wires its routes.
func New(logger *zap.Logger, addr string, store *dbstore.Store, gen *generator.Generator) *Server {
	s := &Server{
		logger: logger.Named("api"),
		addr:   addr,
		router: mux.NewRouter(),
		store:  store,
		gen:    gen,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.router.HandleFunc("/api/v1/strategies/generate", s.handleGenerateStrategies).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/strategies/{id}", s.handleDeleteStrategy).Methods(http.MethodDelete)

	s.router.HandleFunc("/api/v1/sessions", s.handleCreateSession).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/sessions/reset", s.handleResetSessions).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/sessions/{id}/trades", s.handleSessionTrades).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/sessions/{id}/equity", s.handleSessionEquityCurve).Methods(http.MethodGet)

	s.router.HandleFunc("/api/v1/portfolio/history", s.handlePortfolioHistory).Methods(http.MethodGet)
}

// Router exposes the underlying mux.Router for tests that want to drive
// requests through httptest.NewServer without binding a real port.
func (s *Server) Router() *mux.Router { return s.router }

// Start runs the HTTP server until it errors or is shut down.
func (s *Server) Start() error {
	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.router)

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.logger.Info("starting API server", zap.String("addr", s.addr))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "time": time.Now().Unix()})
}

type generateRequest struct {
	Symbols    []string `json:"symbols"`
	Intervals  []string `json:"intervals"`
	TopN       int      `json:"top_n"`
	Limit      int      `json:"limit"`
	Iterations int      `json:"iterations"`
}

func (s *Server) handleGenerateStrategies(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.NewData("decode generate request", err))
		return
	}
	if len(req.Symbols) == 0 || len(req.Intervals) == 0 {
		writeError(w, apperr.NewStrategy("symbols and intervals are required", nil))
		return
	}

	strategies, err := s.gen.Generate(r.Context(), generator.Request{
		Symbols:    req.Symbols,
		Intervals:  req.Intervals,
		TopN:       req.TopN,
		Limit:      req.Limit,
		Iterations: req.Iterations,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"strategies": strategies, "count": len(strategies)})
}

func (s *Server) handleDeleteStrategy(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeleteStrategy(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

type createSessionRequest struct {
	StrategyID     string `json:"strategy_id"`
	InitialCapital float64 `json:"initial_capital"`
	ExecutionMode  string `json:"execution_mode"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.NewData("decode session request", err))
		return
	}
	if req.StrategyID == "" || req.InitialCapital <= 0 {
		writeError(w, apperr.NewStrategy("strategy_id and a positive initial_capital are required", nil))
		return
	}

	strat, err := s.store.GetStrategy(r.Context(), req.StrategyID)
	if err != nil {
		writeError(w, err)
		return
	}

	mode := types.ExecutionModeSync
	if req.ExecutionMode == string(types.ExecutionModeEdge) {
		mode = types.ExecutionModeEdge
	}

	sess := &types.Session{
		StrategyID:     strat.ID,
		Symbol:         strat.Symbol,
		Interval:       strat.Interval,
		InitialCapital: decimal.NewFromFloat(req.InitialCapital),
		ExecutionMode:  mode,
	}
	if err := s.store.CreateSession(r.Context(), sess); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleResetSessions(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ResetSessions(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reset": true})
}

func (s *Server) handleSessionTrades(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	trades, err := s.store.SessionTrades(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades, "count": len(trades)})
}

func (s *Server) handleSessionEquityCurve(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	curve, err := s.store.SessionEquityCurve(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"equity": curve, "count": len(curve)})
}

// handlePortfolioHistory serves the cached total-equity timeline. `style`
// is accepted for forward compatibility with a candle rendering (only
// `line` is meaningful for a scalar series) and `interval` is reserved for
// a future resampling pass; both are read but the cache is always
// minute-resolution today.
func (s *Server) handlePortfolioHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rangeDays, _ := strconv.Atoi(q.Get("range_days"))
	_ = q.Get("interval")
	style := q.Get("style")
	if style == "" {
		style = "line"
	}

	points, err := s.store.PortfolioHistory(r.Context(), rangeDays)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": points, "count": len(points), "style": style})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps apperr.Kind to an HTTP status: NotFound -> 404, everything
// else -> 500, with a JSON {error} body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if apperr.KindOf(err) == apperr.NotFound {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
