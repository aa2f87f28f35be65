// Package server exposes package analysis over HTTP.
//
// Routes:
//
//	GET    /healthz                 liveness probe
//	GET    /metrics                 Prometheus metrics
//	GET    /v1/packages/{name...}   analyze the latest version (?refresh=true skips caches)
//	DELETE /v1/cache                clear the result store
//
// Failures are written as JSON {"code": ..., "message": ...} with a status
// derived from the error code.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/shakify/pkg/analyzer"
	shakerr "github.com/matzehuels/shakify/pkg/errors"
	"github.com/matzehuels/shakify/pkg/result"
)

// Defaults for [Options].
const (
	DefaultFrontCacheSize = 256
	DefaultFrontCacheTTL  = 5 * time.Minute
)

// RequestIDHeader carries the per-request id in responses.
const RequestIDHeader = "X-Request-ID"

// Service analyzes packages. [FromAnalyzer] adapts an [analyzer.Analyzer].
type Service interface {
	Analyze(ctx context.Context, pkg string, refresh bool) (*result.Result, error)
	Clear(ctx context.Context) (bool, error)
}

// FromAnalyzer returns a Service backed by a.
func FromAnalyzer(a *analyzer.Analyzer) Service {
	return analyzerService{a}
}

type analyzerService struct {
	a *analyzer.Analyzer
}

func (s analyzerService) Analyze(ctx context.Context, pkg string, refresh bool) (*result.Result, error) {
	return s.a.WithRefresh(refresh).Analyze(ctx, pkg)
}

func (s analyzerService) Clear(ctx context.Context) (bool, error) {
	return s.a.Clear(ctx)
}

// Options configures a [Server].
type Options struct {
	// Logger receives request logs. Nil discards them.
	Logger *log.Logger

	// FrontCacheSize bounds the in-memory result cache keyed by package
	// name. Negative disables it.
	FrontCacheSize int

	// FrontCacheTTL is how long a package's latest result is served from
	// memory without asking the registry for a newer version.
	FrontCacheTTL time.Duration

	// Registry receives the server's metrics. Nil creates a private one.
	Registry *prometheus.Registry
}

// Server is the HTTP API.
type Server struct {
	svc     Service
	logger  *log.Logger
	front   *expirable.LRU[string, *result.Result]
	group   singleflight.Group
	metrics *Metrics
	router  chi.Router
}

// New creates a Server. It does not register observability hooks; call
// [Server.Metrics] and [Metrics.Register] for that.
func New(svc Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &Server{
		svc:     svc,
		logger:  logger,
		metrics: NewMetrics(reg),
	}
	if opts.FrontCacheSize >= 0 {
		size, ttl := opts.FrontCacheSize, opts.FrontCacheTTL
		if size == 0 {
			size = DefaultFrontCacheSize
		}
		if ttl <= 0 {
			ttl = DefaultFrontCacheTTL
		}
		s.front = expirable.NewLRU[string, *result.Result](size, nil, ttl)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)
	r.Use(s.observe)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/v1/packages/*", s.handleAnalyze)
	r.Delete("/v1/cache", s.handleClear)
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || name == "" {
		s.writeError(w, r, shakerr.New(shakerr.ErrCodeInvalidInput, "missing package name"))
		return
	}
	if err := shakerr.ValidateNpmPackageName(name); err != nil {
		s.writeError(w, r, err)
		return
	}
	refresh := false
	if v := r.URL.Query().Get("refresh"); v != "" {
		if refresh, err = strconv.ParseBool(v); err != nil {
			s.writeError(w, r, shakerr.New(shakerr.ErrCodeInvalidInput, "invalid refresh value %q", v))
			return
		}
	}

	if !refresh && s.front != nil {
		if res, ok := s.front.Get(name); ok {
			out := res.Clone()
			out.Cached = true
			writeJSON(w, http.StatusOK, out)
			return
		}
	}

	key := name
	if refresh {
		key += "?refresh"
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.svc.Analyze(context.WithoutCancel(r.Context()), name, refresh)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res := v.(*result.Result)
	if s.front != nil {
		s.front.Add(name, res)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	cleared, err := s.svc.Clear(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.front != nil {
		s.front.Purge()
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": cleared})
}

// =============================================================================
// Middleware
// =============================================================================

type ctxKey int

const requestIDKey ctxKey = 0

// requestID tags each request with a uuid, reusing a caller-supplied one.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// observe logs each request and records it in the HTTP metrics.
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
		s.metrics.ObserveRequest(r.Method, route, status, elapsed)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", elapsed.Round(time.Millisecond),
			"id", requestIDFrom(r.Context()))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// =============================================================================
// Responses
// =============================================================================

type errorBody struct {
	Code    shakerr.Code `json:"code"`
	Message string       `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := shakerr.GetCode(err)
	status := statusFor(err)
	var rl *shakerr.RateLimitedError
	if stderrors.As(err, &rl) {
		code = rl.Code()
		if rl.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(max(1, int(rl.RetryAfter/time.Second))))
		}
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "id", requestIDFrom(r.Context()), "err", err)
	}
	if code == "" {
		code = shakerr.ErrCodeInternal
	}
	writeJSON(w, status, errorBody{Code: code, Message: shakerr.UserMessage(err)})
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case stderrors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case stderrors.As(err, new(*shakerr.RateLimitedError)):
		return http.StatusTooManyRequests
	}
	switch shakerr.GetCode(err) {
	case shakerr.ErrCodePackageNotFound, shakerr.ErrCodeNotFound:
		return http.StatusNotFound
	case shakerr.ErrCodeInvalidInput, shakerr.ErrCodeInvalidPackage, shakerr.ErrCodeInvalidManifest:
		return http.StatusBadRequest
	case shakerr.ErrCodeNetwork, shakerr.ErrCodeIntegrityMismatch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
