package game

import (
	"context"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/woozymasta/mcstatus/internal/models"
)

// Querier queries a single server address.
type Querier interface {
	Query(ctx context.Context, address string) models.Result
}

// QuerierFunc adapts a function to the Querier interface.
type QuerierFunc func(ctx context.Context, address string) models.Result

// Query calls f(ctx, address).
func (f QuerierFunc) Query(ctx context.Context, address string) models.Result {
	return f(ctx, address)
}

// QueryAll runs one query per unique address concurrently and waits for all of them.
// The returned map is keyed by the address strings exactly as given.
func QueryAll(ctx context.Context, addresses []string, q Querier) map[string]models.Result {
	unique := make([]string, 0, len(addresses))
	seen := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		unique = append(unique, addr)
	}

	// each goroutine owns exactly one slot
	results := make([]models.Result, len(unique))
	var wg sync.WaitGroup
	for i, addr := range unique {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = q.Query(ctx, addr)
		}()
	}
	wg.Wait()

	out := make(map[string]models.Result, len(unique))
	for i, addr := range unique {
		out[addr] = results[i]
	}

	return out
}

// SplitAddresses splits a comma separated list, trimming blanks and dropping empty entries.
func SplitAddresses(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

// Blocklist is a set of host names that must never be queried.
type Blocklist struct {
	hosts map[uint64]struct{}
}

// NewBlocklist builds a case-insensitive host set.
func NewBlocklist(hosts []string) *Blocklist {
	b := &Blocklist{hosts: make(map[uint64]struct{}, len(hosts))}
	for _, h := range hosts {
		if h = normalizeHost(h); h != "" {
			b.hosts[xxhash.Sum64String(h)] = struct{}{}
		}
	}

	return b
}

// Len returns the number of blocked hosts.
func (b *Blocklist) Len() int {
	if b == nil {
		return 0
	}

	return len(b.hosts)
}

// Contains reports whether host is blocked.
func (b *Blocklist) Contains(host string) bool {
	if b.Len() == 0 {
		return false
	}
	_, ok := b.hosts[xxhash.Sum64String(normalizeHost(host))]

	return ok
}

// Guard wraps q so that blocked hosts fail with an input error without any network activity.
func (b *Blocklist) Guard(q Querier) Querier {
	if b.Len() == 0 {
		return q
	}

	return QuerierFunc(func(ctx context.Context, address string) models.Result {
		addr, err := ParseAddress(address, 0)
		if err != nil {
			return models.Result{Err: inputError("address", err)}
		}
		if b.Contains(addr.Host) {
			return models.Result{Err: inputError("address", ErrBlockedHost)}
		}

		return q.Query(ctx, address)
	})
}

func normalizeHost(h string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(h)), ".")
}
