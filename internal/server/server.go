// Package server exposes the proxy check service over HTTP.
//
// Routes:
//
//	POST /api/check   run one verification, body {proxy, type, timeoutMs}
//	GET  /api/ipinfo  geolocation of the caller, relayed from a lookup source
//	GET  /api/stats   counters since startup
//	GET  /healthz     liveness of the service itself
//
// CORS, per-client rate limiting, body size limits and panic recovery are
// applied ahead of every handler.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/August26/proxycheck-api/internal/analytics"
	"github.com/August26/proxycheck-api/internal/checker"
	"github.com/August26/proxycheck-api/internal/geo"
	"github.com/August26/proxycheck-api/internal/logging"
	"github.com/August26/proxycheck-api/internal/model"
	"github.com/August26/proxycheck-api/internal/parser"
)

const DefaultAddress = "127.0.0.1:8080"

// Error messages returned to clients.
const (
	msgMissingProxy    = "Missing or invalid proxy"
	msgInvalidType     = "Invalid proxy type. Use http, https, socks4 or socks5"
	msgBadCredential   = "Required format: user:pass@ip:port"
	msgInvalidJSON     = "Invalid JSON body"
	msgBodyTooLarge    = "Request body too large"
	msgInternal        = "Internal server error"
	msgIPInfoFailed    = "Failed to fetch IP info"
	msgTooManyRequests = "Too many requests"
	msgMethod          = "Method not allowed"
)

// Checker runs one proxy verification.
type Checker interface {
	Check(ctx context.Context, req model.CheckRequest) (model.VerificationReport, error)
}

// ServerOptions configures the HTTP server. Zero values get defaults.
type ServerOptions struct {
	Addr              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration

	// MaxTries is the checker's HTTP attempt count, used to size WriteTimeout.
	MaxTries int

	AllowedOrigins     []string
	RateLimitPerMinute int // 0 disables rate limiting
	MaxBodyBytes       int64

	Logger *slog.Logger
}

// Server holds everything a request needs; there is no package level state.
type Server struct {
	http    *http.Server
	checker Checker
	ipinfo  geo.Source
	stats   *analytics.Tracker
	limiter *clientLimiter
	logger  *slog.Logger
	opts    ServerOptions
}

// NewServer constructs the API server. It does not listen until Start.
func NewServer(c Checker, ipinfo geo.Source, stats *analytics.Tracker, opts ServerOptions) *Server {
	if c == nil {
		panic("server.NewServer: checker is nil")
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddress
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = 2 * time.Second
	}
	if opts.MaxTries < 1 {
		opts.MaxTries = checker.DefaultMaxTries
	}
	if opts.WriteTimeout == 0 {
		// Worst case check: TCP stage plus every HTTP attempt at the max timeout.
		opts.WriteTimeout = time.Duration(model.MaxTimeoutMs)*time.Millisecond*time.Duration(1+opts.MaxTries) + 10*time.Second
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 10 << 10
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if stats == nil {
		stats = analytics.NewTracker()
	}

	s := &Server{
		checker: c,
		ipinfo:  ipinfo,
		stats:   stats,
		logger:  opts.Logger,
		opts:    opts,
	}
	if opts.RateLimitPerMinute > 0 {
		s.limiter = newClientLimiter(opts.RateLimitPerMinute, time.Now)
	}

	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(opts.Logger.Handler(), slog.LevelWarn),
	}
	return s
}

// Handler returns the full middleware chain around the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/check", s.handleCheck)
	mux.HandleFunc("/api/ipinfo", s.handleIPInfo)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/healthz", s.handleHealthz)

	var h http.Handler = mux
	h = s.withRateLimit(h)
	h = withCORS(h, s.opts.AllowedOrigins)
	h = withRequestLog(h, s.logger)
	h = withRecovery(h, s.logger)
	return h
}

// Start binds the listen address and serves HTTP in a background
// goroutine. A bind failure is returned; use Stop for graceful shutdown.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	s.logger.Info("api listening", "addr", l.Addr().String())

	go func() {
		if err := s.http.Serve(l); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api Serve failed", "err", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the server, waiting up to ShutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	timeout := s.opts.ShutdownTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.http.Shutdown(ctx)
}

// handleCheck decodes the request strictly, runs the check and maps
// input errors to 400. A dead proxy is still a 200.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, msgMethod)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	req, status, msg := decodeCheckRequest(r.Body)
	if status != 0 {
		writeError(w, status, msg)
		return
	}

	report, err := s.checker.Check(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, checker.ErrMissingProxy):
		writeError(w, http.StatusBadRequest, msgMissingProxy)
		return
	case errors.Is(err, checker.ErrInvalidProxyType):
		writeError(w, http.StatusBadRequest, msgInvalidType)
		return
	case errors.Is(err, parser.ErrMalformedCredential):
		writeError(w, http.StatusBadRequest, msgBadCredential)
		return
	default:
		s.logger.Error("check failed", "err", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	s.stats.Record(report)
	writeJSON(w, http.StatusOK, report)
}

// decodeCheckRequest rejects unknown fields, wrong types and trailing
// data. A non-zero status means the request must be refused with msg.
func decodeCheckRequest(body io.Reader) (model.CheckRequest, int, string) {
	var req model.CheckRequest
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	err := dec.Decode(&req)
	if err == nil && dec.Decode(&struct{}{}) != io.EOF {
		err = errors.New("trailing data after JSON object")
	}
	if err == nil {
		return req, 0, ""
	}

	var (
		tooLarge *http.MaxBytesError
		typeErr  *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &tooLarge):
		return req, http.StatusRequestEntityTooLarge, msgBodyTooLarge
	case errors.As(err, &typeErr) && typeErr.Field == "proxy":
		return req, http.StatusBadRequest, msgMissingProxy
	case errors.As(err, &typeErr) && typeErr.Field == "type":
		return req, http.StatusBadRequest, msgInvalidType
	default:
		return req, http.StatusBadRequest, msgInvalidJSON
	}
}

// handleIPInfo is a pass-through to the configured lookup source.
func (s *Server) handleIPInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, msgMethod)
		return
	}
	if s.ipinfo == nil {
		writeError(w, http.StatusBadGateway, msgIPInfoFailed)
		return
	}

	body, err := s.ipinfo.Fetch(r.Context(), clientIP(r))
	if err != nil {
		s.logger.Warn("ip info lookup failed", "err", err)
		writeError(w, http.StatusBadGateway, msgIPInfoFailed)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, msgMethod)
		return
	}
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, msgMethod)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// APIError is the error payload of every non-2xx response.
type APIError struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIError{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

// clientIP is the host part of RemoteAddr. Forwarding headers are not
// trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
