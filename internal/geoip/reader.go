package geoip

import (
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Provider wraps the GeoIP2 database reader to provide country lookup functionality.
// A nil *Provider answers every lookup with an empty code.
type Provider struct {
	db *geoip2.Reader
}

// Open initializes the GeoIP database reader from a specific file path.
func Open(path string) (*Provider, error) {
	if path == "" {
		return nil, ErrDisabled
	}

	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}

	return &Provider{db: db}, nil
}

// Close closes the underlying GeoIP database reader.
func (p *Provider) Close() error {
	if p == nil {
		return nil
	}

	return p.db.Close()
}

// GetCountryCode looks up the ISO country code (e.g., "US", "DE") for a given IP address string.
// Private, loopback and unknown addresses give an empty string.
func (p *Provider) GetCountryCode(ipStr string) string {
	if p == nil {
		return ""
	}

	ip := net.ParseIP(ipStr)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return ""
	}

	record, err := p.db.Country(ip)
	if err != nil {
		return ""
	}

	return record.Country.IsoCode
}
