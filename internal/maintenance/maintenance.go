// Package maintenance provides one-shot tasks over the history database.
package maintenance

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/mcstatus/internal/config"
	"github.com/woozymasta/mcstatus/internal/game"
	"github.com/woozymasta/mcstatus/internal/geoip"
	"github.com/woozymasta/mcstatus/internal/models"
	"github.com/woozymasta/mcstatus/internal/storage"
)

// DefaultBatchSize is how many addresses are queried concurrently by CheckAll.
const DefaultBatchSize = 16

// Checker re-queries the addresses tracked in history.
type Checker struct {
	Store *storage.Repository

	// Geo resolves the country of online servers. May be nil.
	Geo *geoip.Provider

	// Queriers maps a history kind to the querier used for it.
	Queriers map[string]game.Querier

	// BatchSize caps concurrent queries, DefaultBatchSize when zero.
	BatchSize int
}

// CheckResult summarizes a CheckAll run.
type CheckResult struct {
	Checked int
	Online  int
	Skipped int
}

// Run checks if any maintenance flags are set and executes the corresponding task.
// It returns true if a task was executed, indicating the program should exit.
func Run(ctx context.Context, cfg *config.Config, store *storage.Repository, geo *geoip.Provider) (bool, error) {
	switch {
	case cfg.Storage.PruneBefore > 0:
		before := time.Now().Add(-cfg.Storage.PruneBefore)
		log.Info().Time("before", before).Msg("Pruning history...")

		count, err := store.PruneBefore(ctx, before)
		if err != nil {
			return true, err
		}
		log.Info().Int64("deleted", count).Msg("Prune finished")

		return true, nil

	case cfg.Storage.CheckAll:
		block := game.NewBlocklist(cfg.Server.BlockHosts)
		c := &Checker{
			Store: store,
			Geo:   geo,
			Queriers: map[string]game.Querier{
				models.KindMinecraft: block.Guard(game.NewPinger(cfg.MC)),
				models.KindA2S:       block.Guard(game.NewA2SQuerier(cfg.A2S)),
			},
			BatchSize: cfg.Server.MaxAddresses,
		}

		log.Info().Msg("Re-checking all tracked addresses...")
		res, err := c.CheckAll(ctx)
		if err != nil {
			return true, err
		}
		log.Info().
			Int("checked", res.Checked).
			Int("online", res.Online).
			Int("skipped", res.Skipped).
			Msg("Maintenance task completed")

		return true, nil
	}

	return false, nil
}

// CheckAll queries every distinct address in history in batches and appends the outcomes.
func (c *Checker) CheckAll(ctx context.Context) (CheckResult, error) {
	var res CheckResult

	tracked, err := c.Store.GetAddresses(ctx)
	if err != nil {
		return res, err
	}
	if len(tracked) == 0 {
		log.Info().Msg("No addresses found for maintenance")
		return res, nil
	}

	byKind := make(map[string][]string)
	for _, t := range tracked {
		if _, ok := c.Queriers[t.Kind]; !ok {
			log.Warn().Str("address", t.Address).Str("kind", t.Kind).Msg("Unknown query kind, skipping")
			res.Skipped++
			continue
		}
		byKind[t.Kind] = append(byKind[t.Kind], t.Address)
	}

	size := c.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	for kind, addresses := range byKind {
		for batch := range slices.Chunk(addresses, size) {
			if err := ctx.Err(); err != nil {
				return res, err
			}

			checkedAt := time.Now()
			results := game.QueryAll(ctx, batch, c.Queriers[kind])
			for addr, r := range results {
				rec := models.NewHistoryRecord(addr, kind, r, checkedAt)
				rec.CountryCode = c.Geo.GetCountryCode(rec.RemoteIP)

				if _, err := c.Store.InsertRecord(ctx, rec); err != nil {
					return res, err
				}

				res.Checked++
				if rec.Online {
					res.Online++
				}
				log.Debug().Str("address", addr).Str("kind", kind).Bool("online", rec.Online).Msg("Address checked")
			}
		}
	}

	return res, nil
}
