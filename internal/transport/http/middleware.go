package http

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"contest-service/internal/domain"
)

// route registers pattern with the standard middleware chain: request ID +
// access log, rate limit, and request metrics. The mux pattern doubles as the
// low-cardinality path label.
func (h *Handler) route(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	parts := strings.SplitN(pattern, " ", 2)
	method, path := parts[0], parts[1]

	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		if !h.limiter.allow(clientIP(r)) {
			h.metrics.RequestCounter.WithLabelValues(method, path, "429").Inc()
			h.writeErrorKind(w, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down")
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		elapsed := time.Since(start)

		h.metrics.RequestCounter.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		h.metrics.RequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
		h.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   elapsed.String(),
		}).Info("request handled")
	})
}

// authenticated wraps a handler that needs a verified principal. Role checks
// stay in the engine's permission table; this only establishes identity.
func (h *Handler) authenticated(fn func(http.ResponseWriter, *http.Request, domain.Principal)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			h.writeErrorKind(w, http.StatusUnauthorized, "bad_credentials", "missing bearer token")
			return
		}
		principal, err := h.identity.Verify(token)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		fn(w, r, principal)
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

const (
	limiterIdleTTL       = 10 * time.Minute
	limiterSweepInterval = time.Minute
)

// ipLimiter keeps one token bucket per client IP. Buckets idle longer than
// limiterIdleTTL are swept so the map stays bounded by recently active
// clients; an idle bucket is full again, so dropping it changes nothing.
type ipLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*ipBucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perSecond float64, burst int) *ipLimiter {
	return &ipLimiter{
		limiters: make(map[string]*ipBucket),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	now := l.now()
	l.mu.Lock()
	if now.Sub(l.lastSweep) >= limiterSweepInterval {
		for addr, b := range l.limiters {
			if now.Sub(b.lastSeen) >= limiterIdleTTL {
				delete(l.limiters, addr)
			}
		}
		l.lastSweep = now
	}
	b, ok := l.limiters[ip]
	if !ok {
		b = &ipBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = b
	}
	b.lastSeen = now
	l.mu.Unlock()
	return b.limiter.Allow()
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
