// Package logger initializes and configures the global zerolog instance.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds configuration options for the application logger.
type Config struct {
	Level  string `long:"level" env:"LEVEL" description:"Log level (trace, debug, info, warn, error)" default:"info" json:"level"`
	Format string `long:"format" env:"FORMAT" description:"Log format (console or json)" default:"console" json:"format"`
	Output string `long:"output" env:"OUTPUT" description:"Log output (stdout, stderr or file path)" default:"stderr" json:"output"`
}

// Setup initializes the global logger based on the provided configuration options.
// It sets the log level, output destination (stdout, stderr, or file), and format (JSON or Console).
func Setup(cfg Config) {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	log.Logger = New(cfg, openOutput(cfg.Output))
}

// ParseLevel returns the zerolog level for name, falling back to info.
func ParseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		return zerolog.InfoLevel
	}

	return level
}

// New builds a logger writing to w in the configured format.
func New(cfg Config, w io.Writer) zerolog.Logger {
	if cfg.Format == "json" {
		return zerolog.New(w).With().Timestamp().Logger()
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}

	// Detect colors: check if writer is file/tty AND NO_COLOR is not set
	consoleWriter.NoColor = true
	if f, ok := w.(*os.File); ok && os.Getenv("NO_COLOR") == "" && isTerminal(f) {
		consoleWriter.NoColor = false
	}

	return zerolog.New(consoleWriter).With().Timestamp().Logger()
}

// openOutput resolves stdout, stderr or a file path, falling back to stderr.
func openOutput(output string) io.Writer {
	switch output {
	case "stdout":
		return os.Stdout
	case "stderr", "":
		return os.Stderr
	}

	file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		tempLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		tempLogger.Error().Err(err).Str("path", output).Msg("Failed to open log file, falling back to stderr")
		return os.Stderr
	}

	return file
}

// isTerminal checks if the provided file descriptor refers to a character device (terminal).
func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}

	return (stat.Mode() & os.ModeCharDevice) != 0
}
