// Package server implements the HTTP API, middleware, and background history workers.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/woozymasta/mcstatus/internal/config"
	"github.com/woozymasta/mcstatus/internal/game"
	"github.com/woozymasta/mcstatus/internal/geoip"
	"github.com/woozymasta/mcstatus/internal/metrics"
	"github.com/woozymasta/mcstatus/internal/models"
	"github.com/woozymasta/mcstatus/internal/storage"
)

// New creates a Server. store, geo and met may be nil to disable history, country lookup and metrics.
func New(store *storage.Repository, geo *geoip.Provider, met *metrics.Metrics, cfg *config.Config) *Server {
	block := game.NewBlocklist(cfg.Server.BlockHosts)

	return &Server{
		minecraft: met.Instrument(models.KindMinecraft, block.Guard(game.NewPinger(cfg.MC))),
		a2s:       met.Instrument(models.KindA2S, block.Guard(game.NewA2SQuerier(cfg.A2S))),
		storage:   store,
		geoip:     geo,
		metrics:   met,
		limiter:   newIPLimiter(cfg.RateLimit.HardLimitCount, cfg.RateLimit.HardLimitWin),

		authToken:    cfg.Server.AuthToken,
		allowOrigins: cfg.Server.AllowOrigins,
		workers:      cfg.Server.Workers,
		maxAddresses: cfg.Server.MaxAddresses,
		softLimitDur: cfg.Storage.HistoryInterval,
		trustProxy:   cfg.Server.TrustProxy,

		queue:    make(chan historyJob, cfg.Server.QueueSize),
		shutdown: make(chan struct{}),
	}
}

// StartWorkers starts the history writers and the cache cleanup routines.
func (s *Server) StartWorkers() {
	if s.storage != nil {
		for range s.workers {
			s.wg.Add(1)
			go s.worker()
		}
	}

	go s.gcCaches()
}

// StopWorkers stops accepting history jobs and waits until the queued ones are written.
// Requests still in flight keep answering; their history is dropped.
func (s *Server) StopWorkers() {
	s.queueMu.Lock()
	if s.stopped {
		s.queueMu.Unlock()
		return
	}
	s.stopped = true
	close(s.shutdown)
	close(s.queue)
	s.queueMu.Unlock()

	s.wg.Wait()
}

// Handler configures the routes and returns the root handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.LoggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Get("/api/version", s.handleVersion)

	r.Group(func(r chi.Router) {
		r.Use(s.RateLimitMiddleware)
		r.Get("/api/status", s.handleStatus)
		r.Get("/check_servers", s.handleStatus)
		r.Get("/api/a2s", s.handleA2S)
	})

	if s.authToken != "" {
		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(s.authToken))
			r.Get("/api/history", s.handleHistory)
			r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
		})
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})

	return r
}

// gcCaches periodically drops expired soft-limit entries and idle rate limiters.
func (s *Server) gcCaches() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case now := <-ticker.C:
			s.seenCache.Range(func(key, value any) bool {
				if t, ok := value.(time.Time); !ok || now.Sub(t) > s.softLimitDur {
					s.seenCache.Delete(key)
				}
				return true
			})
			s.limiter.gc(now, 10*time.Minute)
		}
	}
}
