// Package config handles the parsing and validation of application configuration
// from command-line arguments and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/woozymasta/mcstatus/internal/logger"
	"github.com/woozymasta/mcstatus/internal/tracing"
	"github.com/woozymasta/mcstatus/internal/vars"
)

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Server    Server         `group:"Server Options" env-namespace:"MCSTATUS"`
	MC        MC             `group:"Minecraft Options" namespace:"mc" env-namespace:"MCSTATUS_MC"`
	A2S       A2S            `group:"A2S Options" namespace:"a2s" env-namespace:"MCSTATUS_A2S"`
	Storage   Storage        `group:"Storage Options" namespace:"db" env-namespace:"MCSTATUS_DB"`
	GeoIP     GeoIP          `group:"GeoIP Options" namespace:"geoip" env-namespace:"MCSTATUS_GEOIP"`
	RateLimit RateLimit      `group:"Rate Limit Options" namespace:"rate-limit" env-namespace:"MCSTATUS_RATE_LIMIT"`
	Logger    logger.Config  `group:"Logger Options" namespace:"log" env-namespace:"MCSTATUS_LOG"`
	Trace     tracing.Config `group:"Tracing Options" namespace:"trace" env-namespace:"MCSTATUS_TRACE"`

	Version bool `short:"v" long:"version" description:"Print version and build info"`
}

// Server holds web server configuration.
type Server struct {
	// betteralign:ignore

	Address      string   `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Server listen address" default:":8000"`
	AuthToken    string   `short:"t" long:"auth-token" env:"AUTH_TOKEN" description:"Admin authentication token, admin endpoints are disabled when empty"`
	AllowOrigins []string `long:"allow-origin" env:"ALLOW_ORIGINS" description:"CORS allowed origins" default:"*" env-delim:","`
	BlockHosts   []string `long:"block-host" env:"BLOCK_HOSTS" description:"Hosts that must never be queried" env-delim:","`
	MaxAddresses int      `long:"max-addresses" env:"MAX_ADDRESSES" description:"Max addresses per request" default:"16"`
	Workers      int      `long:"history-workers" env:"HISTORY_WORKERS" description:"Background history writers" default:"4"`
	QueueSize    int      `long:"history-queue" env:"HISTORY_QUEUE" description:"History queue capacity" default:"1000"`
	TrustProxy   bool     `long:"trust-proxy" env:"TRUST_PROXY" description:"Trust X-Forwarded-For headers"`
}

// MC holds Minecraft server list ping configuration.
type MC struct {
	// betteralign:ignore

	Timeout       time.Duration `long:"timeout" env:"TIMEOUT" description:"Query timeout, connect included" default:"10s"`
	BufferSize    int           `long:"buffer-size" env:"BUFFER_SIZE" description:"Read buffer size" default:"4096"`
	MaxPacketSize int           `long:"max-packet-size" env:"MAX_PACKET_SIZE" description:"Largest accepted status response" default:"2097151"`
	NoSRV         bool          `long:"no-srv" env:"NO_SRV" description:"Disable _minecraft._tcp SRV lookup for addresses without port"`
}

// A2S holds Source Query protocol configuration.
type A2S struct {
	// betteralign:ignore

	Timeout     time.Duration `long:"timeout" env:"TIMEOUT" description:"Query timeout" default:"3s"`
	BufferSize  uint16        `long:"buffer-size" env:"BUFFER_SIZE" description:"Response body buffer size" default:"1400"`
	DefaultPort uint16        `long:"default-port" env:"DEFAULT_PORT" description:"Query port used when the address has none" default:"27016"`
}

// Storage holds database configuration.
type Storage struct {
	// betteralign:ignore

	Path            string        `short:"d" long:"path" env:"PATH" description:"Path to SQLite database, history is disabled when empty" default:"mcstatus.db"`
	HistoryInterval time.Duration `long:"history-interval" env:"HISTORY_INTERVAL" description:"Skip history write if the address was recorded within duration" default:"1m"`
	PruneBefore     time.Duration `long:"prune-before" description:"Delete history older than duration and exit"`
	CheckAll        bool          `long:"check-all" description:"Re-query every tracked address, record results and exit"`
	GenerateCount   int           `long:"gen-fake-data" hidden:"true"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file, lookup is disabled when empty" default:"mcstatus.mmdb"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"24h"`
}

// RateLimit holds API rate limiting configuration.
type RateLimit struct {
	// betteralign:ignore

	HardLimitCount int           `long:"hard-count" env:"HARD_COUNT" description:"Hard IP limit: requests count" default:"30"`
	HardLimitWin   time.Duration `long:"hard-window" env:"HARD_WINDOW" description:"Hard IP limit: window duration" default:"1m"`
}

// ParseArgs parses args (without the program name) and validates the result.
func ParseArgs(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default&^flags.PrintErrors)
	parser.NamespaceDelimiter = "-"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that go-flags cannot express.
func (c *Config) Validate() error {
	if c.Server.MaxAddresses < 1 {
		return errors.New("max-addresses must be at least 1")
	}
	if c.Server.Workers < 1 {
		return errors.New("history-workers must be at least 1")
	}
	if c.Server.QueueSize < 1 {
		return errors.New("history-queue must be at least 1")
	}
	if c.MC.MaxPacketSize < 1 {
		return errors.New("mc-max-packet-size must be positive")
	}
	if c.RateLimit.HardLimitCount < 1 || c.RateLimit.HardLimitWin <= 0 {
		return errors.New("rate-limit-hard-count and rate-limit-hard-window must be positive")
	}

	return c.Trace.Validate()
}

// Parse reads the configuration from flags and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	cfg, err := ParseArgs(os.Args[1:])
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, flagsErr.Message)
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	return cfg
}
