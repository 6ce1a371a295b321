package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"boostchain/native/boost"
	"boostchain/native/common"
	"boostchain/observability"
)

// Server exposes the boost engine over HTTP.
type Server struct {
	engine  *boost.Engine
	logger  *slog.Logger
	metrics *observability.GatewayMetrics

	limitPerMinute float64
	limitBurst     int
	mu             sync.Mutex
	visitors       map[string]*rate.Limiter
}

// Option customises server construction.
type Option func(*Server)

// WithRateLimit overrides the default per-client request budget.
func WithRateLimit(perMinute float64, burst int) Option {
	return func(s *Server) {
		s.limitPerMinute = perMinute
		s.limitBurst = burst
	}
}

// WithMetrics wires the prometheus gateway registry.
func WithMetrics(m *observability.GatewayMetrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer constructs a gateway over the engine.
func NewServer(engine *boost.Engine, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:         engine,
		logger:         logger,
		limitPerMinute: 600,
		limitBurst:     30,
		visitors:       make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router assembles the chi router with all boost routes mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.rateLimit)
	r.Post("/v1/boosts", s.instrument("boost_create", s.handleCreate))
	r.Post("/v1/boosts/{id}/deposit", s.instrument("boost_deposit", s.handleDeposit))
	r.Post("/v1/boosts/{id}/withdraw", s.instrument("boost_withdraw", s.handleWithdraw))
	r.Post("/v1/boosts/{id}/claim", s.instrument("boost_claim", s.handleClaim))
	r.Post("/v1/boosts/{id}/claims", s.instrument("boost_claim_multiple", s.handleClaimMultiple))
	r.Post("/v1/boosts/{id}/whitelist", s.instrument("boost_set_whitelist", s.handleSetWhitelist))
	r.Get("/v1/boosts/{id}", s.instrument("boost_get", s.handleGet))
	r.Get("/v1/boosts/{id}/claimed/{address}", s.instrument("boost_claimed", s.handleClaimed))
	r.Get("/v1/refs/{ref}", s.instrument("boost_by_ref", s.handleByRef))
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start serves the router on the given address and blocks.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting boost gateway", "addr", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) instrument(operation string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		outcome := "ok"
		if rec.status >= 400 {
			outcome = "error"
		}
		if s.metrics != nil {
			s.metrics.ObserveRequest(operation, outcome, time.Since(start))
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.allow(clientID(r)) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allow(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.visitors[id]
	if !ok {
		perSecond := s.limitPerMinute / 60.0
		if perSecond <= 0 {
			return true
		}
		limiter = rate.NewLimiter(rate.Limit(perSecond), s.limitBurst)
		s.visitors[id] = limiter
	}
	return limiter.Allow()
}

func clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeEngineError maps engine sentinel errors to HTTP statuses and stable
// error codes so clients can distinguish failure classes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, boost.ErrBoostDoesNotExist):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, boost.ErrOnlyBoostOwner),
		errors.Is(err, boost.ErrOnlyBoostGuard),
		errors.Is(err, boost.ErrOnlyProtocolOwner):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, boost.ErrInvalidSignature),
		errors.Is(err, boost.ErrInvalidWhitelistProof),
		errors.Is(err, boost.ErrInvalidClaim):
		writeError(w, http.StatusUnauthorized, "unauthorized_claim", err.Error())
	case errors.Is(err, boost.ErrRecipientAlreadyClaimed):
		writeError(w, http.StatusConflict, "already_claimed", err.Error())
	case errors.Is(err, boost.ErrBoostNotStarted),
		errors.Is(err, boost.ErrBoostEnded),
		errors.Is(err, boost.ErrBoostNotEnded):
		writeError(w, http.StatusConflict, "window_violation", err.Error())
	case errors.Is(err, boost.ErrDepositRequired),
		errors.Is(err, boost.ErrEndDateInPast),
		errors.Is(err, boost.ErrEndDateBeforeStart),
		errors.Is(err, boost.ErrInvalidGuard),
		errors.Is(err, boost.ErrInvalidRecipient),
		errors.Is(err, boost.ErrDepositLessThanAmountPerAccount),
		errors.Is(err, boost.ErrTooManyRecipients),
		errors.Is(err, boost.ErrInsufficientEthFee):
		writeError(w, http.StatusBadRequest, "invalid_params", err.Error())
	case errors.Is(err, boost.ErrInsufficientBoostBalance):
		writeError(w, http.StatusConflict, "insufficient_balance", err.Error())
	case errors.Is(err, common.ErrModulePaused):
		writeError(w, http.StatusServiceUnavailable, "paused", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
