// Package fake generates random history records for development.
package fake

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/mcstatus/internal/models"
	"github.com/woozymasta/mcstatus/internal/storage"
)

var (
	hosts    = []string{"play", "mc", "survival", "skyblock", "creative", "hub"}
	domains  = []string{"example.com", "example.net", "example.org", "craft.test"}
	versions = []string{"1.20.4", "1.20.6", "1.21.1", "1.21.4", "Paper 1.21.1", "Velocity 3.3.0"}
	motds    = []string{"A Minecraft Server", "Welcome! Survival + Economy", "Skyblock | Season 4", "Maintenance soon"}
	failures = []string{
		"connect: connection refused",
		"read: i/o timeout",
		"parse: unexpected packet ID",
		"decode status: status has no players field",
	}
	countries = []string{"US", "DE", "FR", "GB", "PL", "NL", "BR", "RU", "CN", "JP", "CA", "SE"}
)

// Record returns one random record for address, checked at the given time.
func Record(r *rand.Rand, address string, checkedAt time.Time) models.HistoryRecord {
	rec := models.HistoryRecord{
		Address:   address,
		Kind:      models.KindMinecraft,
		CheckedAt: checkedAt,
	}

	// about one check in ten fails
	if r.Float32() < 0.1 {
		rec.Error = failures[r.IntN(len(failures))]
		return rec
	}

	rec.Online = true
	rec.MaxPlayers = []int{20, 50, 100, 500}[r.IntN(4)]
	rec.Players = r.IntN(rec.MaxPlayers + 1)
	rec.MOTD = motds[r.IntN(len(motds))]
	rec.Version = versions[r.IntN(len(versions))]
	rec.RemoteIP = fmt.Sprintf("%d.%d.%d.%d", r.IntN(220)+1, r.IntN(255), r.IntN(255), r.IntN(254)+1)
	rec.CountryCode = countries[r.IntN(len(countries))]
	rec.LatencyMS = int64(10 + r.IntN(250))

	return rec
}

// GenerateData stores count random records spread over the last 30 days across a small pool of addresses.
func GenerateData(ctx context.Context, store *storage.Repository, count int) (int, error) {
	r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6d63))

	pool := make([]string, 0, 8+count/50)
	for range cap(pool) {
		addr := hosts[r.IntN(len(hosts))] + "." + domains[r.IntN(len(domains))]
		if r.Float32() < 0.3 {
			addr = fmt.Sprintf("%s:%d", addr, 25565+r.IntN(10))
		}
		pool = append(pool, addr)
	}

	written := 0
	for range count {
		checkedAt := time.Now().
			Add(-time.Duration(r.IntN(30)) * 24 * time.Hour).
			Add(-time.Duration(r.IntN(1440)) * time.Minute)

		rec := Record(r, pool[r.IntN(len(pool))], checkedAt)
		if _, err := store.InsertRecord(ctx, rec); err != nil {
			log.Warn().Err(err).Msg("Failed to generate fake record")
			return written, err
		}
		written++
	}

	log.Info().Int("count", written).Int("addresses", len(pool)).Msg("Fake history generated")

	return written, nil
}
