package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"omenchain/core"
	"omenchain/observability"
)

// Config carries the deployment knobs of the JSON-RPC server.
type Config struct {
	// AuthToken guards the admin methods. Empty disables them entirely.
	AuthToken string
	// RateLimit is the sustained mutating-request budget per client IP and
	// second; Burst bounds short spikes. Zero values fall back to defaults.
	RateLimit float64
	Burst     int
}

// Server exposes the node over JSON-RPC 2.0 plus a websocket event stream.
type Server struct {
	node      *core.Node
	authToken string
	limit     rate.Limit
	burst     int
	logger    *slog.Logger
	metrics   *observability.RPCMetrics

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewServer builds a server over the node. The config's zero value yields a
// read-only endpoint with default rate limits.
func NewServer(node *core.Node, cfg Config) *Server {
	limit := rate.Limit(cfg.RateLimit)
	if limit <= 0 {
		limit = rate.Limit(10)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 20
	}
	return &Server{
		node:      node,
		authToken: strings.TrimSpace(cfg.AuthToken),
		limit:     limit,
		burst:     burst,
		logger:    slog.Default().With("component", "rpc"),
		metrics:   observability.RPC(),
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Handler returns the HTTP handler so hosts can mount it on their own server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.HandleFunc("/ws/events", s.handleEventsWS)
	return mux
}

// Start serves JSON-RPC on addr until the listener fails.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting JSON-RPC server", "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func (s *Server) writeCommandError(w http.ResponseWriter, id interface{}, err error) {
	writeError(w, http.StatusOK, id, errorCode(err), err.Error(), nil)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()
	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	started := time.Now()
	outcome := s.dispatch(w, r, req)
	s.metrics.Requests.WithLabelValues(req.Method, outcome).Inc()
	s.metrics.Latency.WithLabelValues(req.Method).Observe(time.Since(started).Seconds())
}

// dispatch routes one decoded request and reports the outcome label for the
// request counter.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) string {
	type route struct {
		admin   bool
		mutates bool
		handler func(http.ResponseWriter, *RPCRequest)
	}
	routes := map[string]route{
		"omen_tick":             {admin: true, mutates: true, handler: s.handleTick},
		"omen_installPlayer":    {mutates: true, handler: s.handleInstallPlayer},
		"omen_deposit":          {admin: true, mutates: true, handler: s.handleDeposit},
		"omen_withdraw":         {mutates: true, handler: s.handleWithdraw},
		"omen_flushSettlements": {admin: true, mutates: true, handler: s.handleFlushSettlements},
		"omen_stats":            {handler: s.handleStats},

		"market_bet":          {mutates: true, handler: s.handleBet},
		"market_sell":         {mutates: true, handler: s.handleSell},
		"market_resolve":      {admin: true, mutates: true, handler: s.handleResolve},
		"market_claim":        {mutates: true, handler: s.handleClaim},
		"market_withdrawFees": {admin: true, mutates: true, handler: s.handleWithdrawFees},
		"market_get":          {handler: s.handleMarketGet},
		"market_position":     {handler: s.handlePositionGet},
		"market_quote":        {handler: s.handleQuote},

		"launchpad_createProject":  {admin: true, mutates: true, handler: s.handleCreateProject},
		"launchpad_updateProject":  {admin: true, mutates: true, handler: s.handleUpdateProject},
		"launchpad_invest":         {mutates: true, handler: s.handleInvest},
		"launchpad_withdrawTokens": {mutates: true, handler: s.handleWithdrawTokens},
		"launchpad_getProject":     {handler: s.handleProjectGet},
		"launchpad_listProjects":   {handler: s.handleProjectList},
		"launchpad_getInvestment":  {handler: s.handleInvestmentGet},
	}

	rt, ok := routes[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return "not_found"
	}
	if rt.mutates && !s.allowSource(clientSource(r)) {
		writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", nil)
		return "throttled"
	}
	if rt.admin {
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return "unauthorized"
		}
	}
	rt.handler(w, req)
	return "ok"
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

func (s *Server) allowSource(source string) bool {
	if source == "" {
		source = "unknown"
	}
	s.mu.Lock()
	limiter, ok := s.limiters[source]
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
		s.limiters[source] = limiter
	}
	s.mu.Unlock()
	return limiter.Allow()
}

func clientSource(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if candidate := strings.TrimSpace(parts[0]); candidate != "" {
			return candidate
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
