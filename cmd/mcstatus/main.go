// main is the entry point of the mcstatus service.
// It initializes the configuration, logger, tracing, database, GeoIP provider, and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/mcstatus/internal/config"
	"github.com/woozymasta/mcstatus/internal/fake"
	"github.com/woozymasta/mcstatus/internal/geoip"
	"github.com/woozymasta/mcstatus/internal/logger"
	"github.com/woozymasta/mcstatus/internal/maintenance"
	"github.com/woozymasta/mcstatus/internal/metrics"
	"github.com/woozymasta/mcstatus/internal/server"
	"github.com/woozymasta/mcstatus/internal/storage"
	"github.com/woozymasta/mcstatus/internal/tracing"
	"github.com/woozymasta/mcstatus/internal/vars"
)

func main() {
	cfg := config.Parse()

	logger.Setup(cfg.Logger)
	log.Info().Str("version", vars.Version).Str("commit", vars.CommitShort()).Msg("Starting mcstatus service...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(cfg.Trace)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Error().Err(err).Msg("Error flushing traces")
		}
	}()

	geoProvider := openGeoIP(ctx, cfg.GeoIP)
	defer func() {
		if err := geoProvider.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing GeoIP provider")
		}
	}()

	// Database
	var store *storage.Repository
	if cfg.Storage.Path != "" {
		store, err = storage.New(cfg.Storage.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing database")
			}
		}()
	} else {
		log.Info().Msg("Database path is empty, history disabled")
	}

	// data generation or database maintenance
	if store != nil {
		if cfg.Storage.GenerateCount > 0 {
			if _, err := fake.GenerateData(ctx, store, cfg.Storage.GenerateCount); err != nil {
				log.Error().Err(err).Msg("Fake data generation failed")
			}
			return
		}

		ran, err := maintenance.Run(ctx, cfg, store, geoProvider)
		if err != nil {
			log.Error().Err(err).Msg("Maintenance task failed")
		}
		if ran {
			return
		}
	}

	srv := server.New(store, geoProvider, metrics.New(), cfg)
	srv.StartWorkers()

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      max(cfg.MC.Timeout, cfg.A2S.Timeout) + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful Shutdown
	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	// in-flight queries may run up to their own timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpServer.WriteTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop workers (wait queue done)
	srv.StopWorkers()

	log.Info().Msg("Server exited")
}

// openGeoIP refreshes and opens the GeoIP database; lookups are disabled on any failure.
func openGeoIP(ctx context.Context, cfg config.GeoIP) *geoip.Provider {
	if cfg.Path == "" {
		log.Info().Msg("GeoIP path is empty, country detection disabled")
		return nil
	}

	log.Info().Msg("Checking GeoIP database...")
	if err := geoip.EnsureDB(ctx, cfg.Path, cfg.URL, cfg.Interval); err != nil {
		log.Error().Err(err).Msg("Failed to download GeoIP database")
	}

	provider, err := geoip.Open(cfg.Path)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open GeoIP database, country detection disabled")
		return nil
	}

	return provider
}
