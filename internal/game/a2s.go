package game

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/woozymasta/a2s/pkg/a2s"
	"github.com/woozymasta/mcstatus/internal/config"
	"github.com/woozymasta/mcstatus/internal/models"
)

// QueryServer connects to a game server via UDP and requests A2S_INFO.
// It returns server details (such as name, map, players) or an error if the server is unreachable.
func QueryServer(ip string, port int, options config.A2S) (*a2s.Info, error) {
	client, err := a2s.New(ip, port)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Close() }()

	client.BufferSize = options.BufferSize
	client.Timeout = options.Timeout

	return client.GetInfo()
}

// IPResolver resolves host names. *net.Resolver satisfies it.
type IPResolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// A2SQuerier answers status queries for Source engine servers using the same result shape
// as Minecraft servers; the server name is used as the description.
type A2SQuerier struct {
	// Resolver turns host names into IPv4 addresses. Nil uses net.DefaultResolver.
	Resolver IPResolver

	// Info is the A2S_INFO transport, QueryServer by default.
	Info func(ip string, port int, options config.A2S) (*a2s.Info, error)

	Options config.A2S
}

// NewA2SQuerier creates an A2S querier with the given options.
func NewA2SQuerier(options config.A2S) *A2SQuerier {
	return &A2SQuerier{Options: options}
}

// Query queries address ("host" or "host:port", default port from options).
func (q *A2SQuerier) Query(ctx context.Context, address string) models.Result {
	addr, err := ParseAddress(address, q.Options.DefaultPort)
	if err != nil {
		return models.Result{Err: inputError("address", err)}
	}

	ip, err := q.lookupIPv4(ctx, addr.Host)
	if err != nil {
		return models.Result{Err: transportError("resolve", err)}
	}

	query := q.Info
	if query == nil {
		query = QueryServer
	}

	start := time.Now()
	info, err := query(ip, int(addr.Port), q.Options)
	if err != nil {
		return models.Result{Err: transportError("a2s info", err)}
	}

	desc, err := json.Marshal(info.Name)
	if err != nil {
		return models.Result{Err: payloadError("a2s info", err)}
	}

	return models.Result{Status: &models.Status{
		MaxPlayers:    int(info.MaxPlayers),
		OnlinePlayers: int(info.Players),
		Description:   desc,
		MOTD:          info.Name,
		Version:       info.Version,
		RemoteIP:      ip,
		Latency:       time.Since(start),
	}}
}

// lookupIPv4 returns host itself when it is an IPv4 literal, otherwise its first IPv4 address.
func (q *A2SQuerier) lookupIPv4(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() == nil {
			return "", fmt.Errorf("IPv6 address %s is not supported", host)
		}
		return ip.String(), nil
	}

	var resolver IPResolver = net.DefaultResolver
	if q.Resolver != nil {
		resolver = q.Resolver
	}

	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return "", err
	}
	for _, a := range addrs {
		if v4 := a.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
	}

	return "", fmt.Errorf("no IPv4 address for %s", host)
}
