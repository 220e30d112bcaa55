package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/wonny/pvpforecast/internal/api/handlers"
	"github.com/wonny/pvpforecast/internal/metrics"
	"github.com/wonny/pvpforecast/pkg/logger"
	"github.com/wonny/pvpforecast/pkg/redis"
)

// RequestIDHeader carries the per-request correlation id
const RequestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the id assigned by requestIDMiddleware
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// statusRecorder captures the response status for logs and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func recorderFor(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w}
}

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// requestIDMiddleware 요청마다 ULID 부여 (클라이언트가 보낸 값은 유지)
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = ulid.Make().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := recorderFor(w)

			// Call next handler
			next.ServeHTTP(rec, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"request_id": RequestID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.code(),
				"duration":   time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// metricsMiddleware 라우트 템플릿 단위로 집계 (sku 별 라벨 폭증 방지)
func metricsMiddleware(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := recorderFor(w)

			next.ServeHTTP(rec, r)

			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					path = tpl
				}
			}
			m.ObserveHTTP(r.Method, path, rec.code(), time.Since(start))
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"request_id": RequestID(r.Context()),
						"error":      err,
						"path":       r.URL.Path,
					}).Error("Panic recovered")

					handlers.RespondError(w, http.StatusInternalServerError, handlers.MsgInternal, handlers.CodeInternal)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Limiter admits or rejects a request from one client
type Limiter interface {
	Allow(ctx context.Context, clientID string) (bool, error)
}

// rateLimitMiddleware 429 on rejection; limiter errors fail open
func rateLimitMiddleware(l Limiter, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientID(r)
			allowed, err := l.Allow(r.Context(), client)
			if err != nil {
				log.WithError(err).WithField("client", client).Warn("Rate limiter unavailable, allowing request")
			} else if !allowed {
				handlers.RespondError(w, http.StatusTooManyRequests, "Too many requests", handlers.CodeRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

const localLimiterIdleTTL = 10 * time.Minute

// LocalLimiter 프로세스 내 클라이언트별 토큰 버킷
// idleTTL 동안 요청이 없던 클라이언트는 제거. 그 시점의 버킷은 이미 가득 차 있으므로 판정은 동일
type LocalLimiter struct {
	mu        sync.Mutex
	clients   map[string]*localClient
	rps       rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type localClient struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter creates a per-client token bucket limiter
func NewLocalLimiter(rps, burst int) *LocalLimiter {
	if burst < 1 {
		burst = 1
	}
	return &LocalLimiter{
		clients: make(map[string]*localClient),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: localLimiterIdleTTL,
		now:     time.Now,
	}
}

// Allow consumes one token for clientID
func (l *LocalLimiter) Allow(_ context.Context, clientID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}

	c, ok := l.clients[clientID]
	if !ok {
		c = &localClient{lim: rate.NewLimiter(l.rps, l.burst)}
		l.clients[clientID] = c
	}
	c.lastSeen = now

	return c.lim.AllowN(now, 1), nil
}

func (l *LocalLimiter) sweep(now time.Time) {
	for id, c := range l.clients {
		if now.Sub(c.lastSeen) >= l.idleTTL {
			delete(l.clients, id)
		}
	}
	l.lastSweep = now
}

// Len 추적 중인 클라이언트 수
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// RedisLimiter 인스턴스 간 공유되는 sliding window 리밋
type RedisLimiter struct {
	limiter *redis.RateLimiter
	limit   int
}

// NewRedisLimiter wraps a Redis sliding-window limiter allowing limit
// requests per client per second
func NewRedisLimiter(limiter *redis.RateLimiter, limit int) *RedisLimiter {
	return &RedisLimiter{limiter: limiter, limit: limit}
}

// Allow checks the shared window for clientID
func (l *RedisLimiter) Allow(ctx context.Context, clientID string) (bool, error) {
	allowed, _, err := l.limiter.Allow(ctx, redis.ClientRateLimit(clientID, l.limit))
	return allowed, err
}
