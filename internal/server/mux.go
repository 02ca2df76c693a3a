// internal/server/mux.go
// Package server implements the presentation API of luxyd: the HTTP surface
// a gallery front end or admin panel drives. Handlers translate requests into
// engine and session operations and render the results in the standard
// {"data": ...} / {"error": {...}} envelopes.
package server

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/P3dro7wz/Luxy/internal/engine"
	errordefs "github.com/P3dro7wz/Luxy/internal/errors"
	"github.com/P3dro7wz/Luxy/internal/event"
	"github.com/P3dro7wz/Luxy/internal/metrics"
	"github.com/P3dro7wz/Luxy/internal/session"
	"github.com/P3dro7wz/Luxy/internal/storage"
	"github.com/P3dro7wz/Luxy/internal/telemetry"
)

// CorrelationHeader carries the request correlation id in both directions.
const CorrelationHeader = "X-Correlation-Id"

// Request body limits
const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 64 << 20
)

// Options are the dependencies of the presentation API.
type Options struct {
	Engine   *engine.Engine
	Sessions *session.Manager
	State    storage.Store   // Probed by /readyz
	Changes  *event.Recorder // Backs /v1/changes; optional
	Logger   *slog.Logger
	Metrics  *metrics.Metrics

	CORSAllowedOrigins []string // Allowed origins for CORS (empty means deny all)
	RateLimit          float64  // Requests per second per client IP; zero disables limiting
}

// Mux handles HTTP requests for luxyd.
type Mux struct {
	mux      *http.ServeMux
	engine   *engine.Engine
	sessions *session.Manager
	state    storage.Store
	changes  *event.Recorder
	log      *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	limiter  *ipLimiter // Nil when rate limiting is disabled

	corsAllowedOrigins []string
}

// NewMux creates the presentation API handler with every endpoint registered.
func NewMux(o Options) http.Handler {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.NewMetrics()
	}
	m := &Mux{
		mux:                http.NewServeMux(),
		engine:             o.Engine,
		sessions:           o.Sessions,
		state:              o.State,
		changes:            o.Changes,
		log:                o.Logger,
		metrics:            o.Metrics,
		tracer:             telemetry.Tracer("luxyd/server"),
		corsAllowedOrigins: o.CORSAllowedOrigins,
	}
	if o.RateLimit > 0 {
		m.limiter = newIPLimiter(o.RateLimit)
	}

	// Health endpoints
	m.mux.HandleFunc("GET /healthz", m.handleHealthz)
	m.mux.HandleFunc("GET /readyz", m.handleReadyz)
	m.mux.Handle("GET /metrics", promhttp.Handler())

	// Gallery
	m.mux.HandleFunc("GET /v1/gallery", m.handleGallery)
	m.mux.HandleFunc("GET /v1/categories", m.handleCategories)
	m.mux.HandleFunc("POST /v1/gallery/reload", m.handleReload)
	m.mux.HandleFunc("POST /v1/content/{id}/like", m.handleLike)
	m.mux.HandleFunc("POST /v1/content/{id}/rate", m.handleRate)
	m.mux.HandleFunc("GET /v1/pending", m.handlePending)
	m.mux.HandleFunc("DELETE /v1/pending", m.handleCancelPending)
	m.mux.HandleFunc("GET /v1/changes", m.handleChanges)

	// Admin
	m.mux.HandleFunc("POST /v1/content", m.admin(m.handleCreateContent))
	m.mux.HandleFunc("PATCH /v1/content/{id}", m.admin(m.handleUpdateContent))
	m.mux.HandleFunc("DELETE /v1/content/{id}", m.admin(m.handleDeleteContent))
	m.mux.HandleFunc("GET /v1/admin/stats", m.admin(m.handleStats))

	// Session
	m.mux.HandleFunc("POST /v1/auth/login", m.handleLogin)
	m.mux.HandleFunc("POST /v1/auth/register", m.handleRegister)
	m.mux.HandleFunc("POST /v1/auth/admin-login", m.handleAdminLogin)
	m.mux.HandleFunc("POST /v1/auth/logout", m.handleLogout)
	m.mux.HandleFunc("GET /v1/me", m.handleMe)
	m.mux.HandleFunc("GET /v1/saved", m.handleSaved)
	m.mux.HandleFunc("PUT /v1/saved/{id}", m.handleSave)
	m.mux.HandleFunc("DELETE /v1/saved/{id}", m.handleUnsave)
	m.mux.HandleFunc("GET /v1/collections", m.handleCollections)
	m.mux.HandleFunc("POST /v1/collections", m.handleCreateCollection)
	m.mux.HandleFunc("GET /v1/collections/{cid}", m.handleCollection)
	m.mux.HandleFunc("POST /v1/collections/{cid}/items/{id}", m.handleAddToCollection)

	return m.withMiddleware(m.mux)
}

// withMiddleware applies CORS, correlation ids, rate limiting, tracing,
// metrics and request logging around the router.
func (m *Mux) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if !strings.HasPrefix(r.URL.Path, "/v1/") {
			next.ServeHTTP(w, r)
			return
		}

		allowed := m.setCORSHeaders(w, r)
		if r.Method == http.MethodOptions {
			if allowed {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+CorrelationHeader)
				w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Add correlation ID if not present
		correlationID := r.Header.Get(CorrelationHeader)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		w.Header().Set(CorrelationHeader, correlationID)

		ctx, span := m.tracer.Start(event.WithCorrelationID(r.Context(), correlationID), "http.request",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
				attribute.String("correlation_id", correlationID),
			))
		defer span.End()
		r = r.WithContext(ctx)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		if m.limiter != nil && !m.limiter.allow(clientIP(r)) {
			m.writeErrorDef(sw, errordefs.New(errordefs.LUXY_NETWORK, "rate limit exceeded").WithCorrelationID(correlationID), http.StatusTooManyRequests)
		} else {
			next.ServeHTTP(sw, r)
		}

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		span.SetName(route)
		span.SetAttributes(attribute.Int("http.status_code", sw.status))
		if sw.status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(sw.status))
		}
		status := strconv.Itoa(sw.status)
		m.metrics.HTTPRequestTotal.WithLabelValues(r.Method, route, status).Inc()
		m.metrics.HTTPRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		m.logRequest(r, sw.status, time.Since(start), correlationID)
	})
}

// setCORSHeaders reports whether the request origin is allowed.
func (m *Mux) setCORSHeaders(w http.ResponseWriter, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(m.corsAllowedOrigins) == 0 {
		return false
	}
	for _, allowedOrigin := range m.corsAllowedOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			return true
		}
	}
	return false
}

// admin rejects requests unless the session holds an admin token.
func (m *Mux) admin(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.sessions.Session().IsAdmin() {
			m.writeErr(w, r, errordefs.New(errordefs.LUXY_AUTH, "admin login required"))
			return
		}
		h(w, r)
	}
}

// statusWriter records the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// ipLimiter keeps one token bucket per client IP.
type ipLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*visitor
}

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// Idle buckets are pruned once the table grows past this size
const maxVisitors = 4096

func newIPLimiter(perSecond float64) *ipLimiter {
	return &ipLimiter{
		limit:   rate.Limit(perSecond),
		burst:   int(math.Max(1, math.Ceil(perSecond*2))),
		clients: make(map[string]*visitor),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	v, ok := l.clients[ip]
	if !ok {
		if len(l.clients) >= maxVisitors {
			for k, old := range l.clients {
				if now.Sub(old.seen) > 3*time.Minute {
					delete(l.clients, k)
				}
			}
		}
		v = &visitor{lim: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = v
	}
	v.seen = now
	return v.lim.AllowN(now, 1)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeSuccess writes a successful response
func (m *Mux) writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

// writeErrorDef writes an error envelope. A zero status uses the status of
// the error code.
func (m *Mux) writeErrorDef(w http.ResponseWriter, err *errordefs.Error, status int) {
	if status == 0 {
		status = err.HTTPStatus
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": err})
}

// writeErr renders err tagged with the request's correlation id. Errors
// from the gateway keep the correlation id of the upstream call.
func (m *Mux) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	e := errordefs.As(err)
	if e.CorrelationID == "" {
		e = e.WithCorrelationID(event.CorrelationID(r.Context()))
	}
	if e.Code == errordefs.LUXY_INTERNAL {
		m.log.Error("request failed", "path", r.URL.Path, "correlation_id", e.CorrelationID, "error", err)
	}
	trace.SpanFromContext(r.Context()).RecordError(err)
	m.writeErrorDef(w, e, 0)
}

// logRequest logs request details
func (m *Mux) logRequest(r *http.Request, status int, duration time.Duration, correlationID string) {
	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", duration),
		slog.String("user_agent", r.UserAgent()),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("correlation_id", correlationID),
	}
	level := slog.LevelInfo
	if status >= 500 {
		level = slog.LevelError
	}
	m.log.LogAttrs(r.Context(), level, "request completed", attrs...)
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v); err != nil {
		return errordefs.Newf(errordefs.LUXY_VALIDATION, "invalid JSON: %v", err)
	}
	return nil
}

// handleHealthz handles liveness health check requests
func (m *Mux) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz reports ready once the local state store answers.
func (m *Mux) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// We expect ErrNotFound, which means the state store is accessible
	if m.state != nil {
		if _, err := m.state.Get(ctx, "health-check"); err != nil && !errors.Is(err, storage.ErrNotFound) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
