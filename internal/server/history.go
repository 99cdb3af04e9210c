package server

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/mcstatus/internal/models"
)

const historyWriteTimeout = 5 * time.Second

// enqueueHistory hands a finished query to the history workers.
// Addresses written within softLimitDur are skipped; a full or stopped queue drops the job.
func (s *Server) enqueueHistory(job historyJob) {
	if s.storage == nil {
		return
	}

	softKey := job.Kind + "|" + job.Address
	if val, ok := s.seenCache.Load(softKey); ok {
		if lastSeen, ok := val.(time.Time); ok && job.CheckedAt.Sub(lastSeen) < s.softLimitDur {
			log.Trace().
				Str("kind", job.Kind).
				Str("address", job.Address).
				Msg("History write skipped by soft limit")
			return
		}
	}

	s.queueMu.RLock()
	defer s.queueMu.RUnlock()

	if s.stopped {
		s.metrics.HistoryDropped()
		log.Debug().
			Str("kind", job.Kind).
			Str("address", job.Address).
			Msg("History writers stopped, record dropped")
		return
	}

	select {
	case s.queue <- job:
		s.seenCache.Store(softKey, job.CheckedAt)
	default:
		s.metrics.HistoryDropped()
		log.Warn().
			Str("kind", job.Kind).
			Str("address", job.Address).
			Msg("History queue full, record dropped")
	}
}

// worker writes queued jobs until the queue is closed.
func (s *Server) worker() {
	defer s.wg.Done()

	for job := range s.queue {
		s.processJob(job)
	}
}

// processJob resolves the server country and stores the record.
func (s *Server) processJob(job historyJob) {
	rec := models.NewHistoryRecord(job.Address, job.Kind, job.Result, job.CheckedAt)
	rec.CountryCode = s.geoip.GetCountryCode(rec.RemoteIP)

	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()

	id, err := s.storage.InsertRecord(ctx, rec)
	s.metrics.HistoryWritten(err)
	if err != nil {
		log.Error().Err(err).Str("address", rec.Address).Msg("Failed to save history record")
		return
	}

	log.Trace().
		Int64("id", id).
		Str("address", rec.Address).
		Bool("online", rec.Online).
		Msg("History saved")
}
