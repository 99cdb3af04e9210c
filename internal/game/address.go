package game

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Address is a parsed query target.
type Address struct {
	Host string
	Port uint16

	// Explicit is false when Port was filled in from the default.
	Explicit bool
}

// String returns host:port, bracketing IPv6 literals.
func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

// ParseAddress splits "host", "host:port" or "[ipv6]:port".
// The default port is used when the port is omitted or not numeric;
// a numeric port outside 0-65535 or an empty host is an error.
func ParseAddress(address string, defaultPort uint16) (Address, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Address{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	var host, portStr string
	switch {
	case strings.HasPrefix(address, "["):
		h, p, err := net.SplitHostPort(address)
		if err != nil {
			host = strings.TrimSuffix(strings.TrimPrefix(address, "["), "]")
		} else {
			host, portStr = h, p
		}
	case strings.Count(address, ":") == 1:
		host, portStr, _ = strings.Cut(address, ":")
	default:
		// bare hostname or unbracketed IPv6 literal
		host = address
	}

	if host == "" {
		return Address{}, fmt.Errorf("%w: %q has no host", ErrInvalidAddress, address)
	}

	addr := Address{Host: host, Port: defaultPort}
	if portStr == "" {
		return addr, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return addr, nil
	}
	if port < 0 || port > 65535 {
		return Address{}, fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}

	addr.Port = uint16(port)
	addr.Explicit = true

	return addr, nil
}
