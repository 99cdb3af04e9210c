package server

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// GetRealIP attempts to determine the client's real IP address, trusting
// headers like CF-Connecting-IP or X-Forwarded-For if configured to do so.
func GetRealIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if cf := r.Header.Get("CF-Connecting-IP"); cf != "" {
			return cf
		}
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}

// ipLimiter keeps one token bucket per client IP.
type ipLimiter struct {
	clients map[string]*limitedClient
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
}

type limitedClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newIPLimiter allows count requests per window for every IP, with bursts up to count.
func newIPLimiter(count int, window time.Duration) *ipLimiter {
	return &ipLimiter{
		clients: make(map[string]*limitedClient),
		limit:   rate.Limit(float64(count) / window.Seconds()),
		burst:   count,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	cli, found := l.clients[ip]
	if !found {
		cli = &limitedClient{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = cli
	}
	cli.lastSeen = time.Now()
	limiter := cli.limiter
	l.mu.Unlock()

	return limiter.Allow()
}

// gc forgets clients idle for longer than idle.
func (l *ipLimiter) gc(now time.Time, idle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) > idle {
			delete(l.clients, ip)
		}
	}
}

func (l *ipLimiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.clients)
}

// RateLimitMiddleware applies the hard rate limit based on the client's IP address.
// It rejects requests with "429 Too Many Requests" if the limit is exceeded.
func (s *Server) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := GetRealIP(r, s.trustProxy)
		if !s.limiter.allow(ip) {
			log.Debug().Str("ip", ip).Str("path", r.URL.Path).Msg("Rate limit hit")
			writeError(w, http.StatusTooManyRequests, "Too Many Requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware logs the details of each HTTP request, including method, path, status, IP, and duration.
func (s *Server) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("query", r.URL.RawQuery).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Str("ip", GetRealIP(r, s.trustProxy)).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// AdminAuthMiddleware protects endpoints by requiring a valid Bearer token in the Authorization header.
func AdminAuthMiddleware(token string) func(http.Handler) http.Handler {
	want := []byte("Bearer " + token)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get("Authorization"))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
