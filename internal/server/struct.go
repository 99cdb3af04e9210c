package server

import (
	"sync"
	"time"

	"github.com/woozymasta/mcstatus/internal/game"
	"github.com/woozymasta/mcstatus/internal/geoip"
	"github.com/woozymasta/mcstatus/internal/metrics"
	"github.com/woozymasta/mcstatus/internal/models"
	"github.com/woozymasta/mcstatus/internal/storage"
)

// Server holds the dependencies, configuration, and runtime state required
// to answer status requests and record their history in the background.
type Server struct {
	// minecraft answers /api/status, already guarded by the block list and instrumented.
	minecraft game.Querier

	// a2s answers /api/a2s, guarded and instrumented the same way.
	a2s game.Querier

	// storage is the history database. Nil disables history.
	storage *storage.Repository

	// geoip resolves the country of a queried server. Nil disables lookups.
	geoip *geoip.Provider

	// metrics receives query and history counters. Nil disables metrics.
	metrics *metrics.Metrics

	// limiter is the per client IP hard rate limit for query endpoints.
	limiter *ipLimiter

	// queue passes finished queries from handlers to the history workers.
	queue chan historyJob

	// queueMu guards sends on queue against its close in StopWorkers.
	queueMu sync.RWMutex

	// shutdown is closed to stop the background goroutines.
	shutdown chan struct{}

	// seenCache maps kind+address to the time it was last written to history.
	seenCache sync.Map

	// authToken is the bearer token of admin endpoints. Admin endpoints are not routed when empty.
	authToken string

	// allowOrigins is the CORS origin list.
	allowOrigins []string

	wg sync.WaitGroup

	// workers is the number of history writers.
	workers int

	// maxAddresses caps the number of addresses in one request.
	maxAddresses int

	// softLimitDur skips history writes for an address recorded less than this long ago.
	softLimitDur time.Duration

	// trustProxy makes GetRealIP honour CF-Connecting-IP and X-Forwarded-For.
	trustProxy bool

	// stopped is set once the queue is closed; guarded by queueMu.
	stopped bool
}

// historyJob is one query outcome waiting to be stored.
type historyJob struct {
	CheckedAt time.Time
	Result    models.Result
	Address   string
	Kind      string
}
