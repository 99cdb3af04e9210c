package config

import (
	"testing"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsDefaults(t *testing.T) {
	cfg, err := ParseArgs(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Address)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowOrigins)
	assert.Equal(t, 16, cfg.Server.MaxAddresses)
	assert.Equal(t, 10*time.Second, cfg.MC.Timeout)
	assert.Equal(t, 4096, cfg.MC.BufferSize)
	assert.Equal(t, 2097151, cfg.MC.MaxPacketSize)
	assert.False(t, cfg.MC.NoSRV)
	assert.Equal(t, uint16(27016), cfg.A2S.DefaultPort)
	assert.Equal(t, "mcstatus.db", cfg.Storage.Path)
	assert.Equal(t, time.Minute, cfg.Storage.HistoryInterval)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Empty(t, cfg.Server.AuthToken)
	assert.Empty(t, cfg.Trace.Output)
	assert.Equal(t, 1.0, cfg.Trace.SampleRatio)
}

func TestParseArgsFlags(t *testing.T) {
	cfg, err := ParseArgs([]string{
		"-l", "127.0.0.1:9000",
		"--auth-token", "secret",
		"--block-host", "localhost",
		"--block-host", "metadata.internal",
		"--mc-timeout", "2s",
		"--mc-no-srv",
		"--db-path", "",
		"--log-level", "debug",
		"--rate-limit-hard-count", "5",
		"--trace-output=-",
		"--trace-sample-ratio", "0.25",
	})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	assert.Equal(t, "secret", cfg.Server.AuthToken)
	assert.Equal(t, []string{"localhost", "metadata.internal"}, cfg.Server.BlockHosts)
	assert.Equal(t, 2*time.Second, cfg.MC.Timeout)
	assert.True(t, cfg.MC.NoSRV)
	assert.Empty(t, cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, 5, cfg.RateLimit.HardLimitCount)
	assert.Equal(t, "-", cfg.Trace.Output)
	assert.Equal(t, 0.25, cfg.Trace.SampleRatio)
}

func TestParseArgsEnv(t *testing.T) {
	t.Setenv("MCSTATUS_AUTH_TOKEN", "from-env")
	t.Setenv("MCSTATUS_MC_BUFFER_SIZE", "8192")
	t.Setenv("MCSTATUS_BLOCK_HOSTS", "a.example,b.example")

	cfg, err := ParseArgs(nil)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Server.AuthToken)
	assert.Equal(t, 8192, cfg.MC.BufferSize)
	assert.Equal(t, []string{"a.example", "b.example"}, cfg.Server.BlockHosts)
}

func TestParseArgsValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "zero max addresses", args: []string{"--max-addresses", "0"}},
		{name: "zero workers", args: []string{"--history-workers", "0"}},
		{name: "zero queue", args: []string{"--history-queue", "0"}},
		{name: "zero packet size", args: []string{"--mc-max-packet-size", "0"}},
		{name: "zero rate window", args: []string{"--rate-limit-hard-window", "0s"}},
		{name: "sample ratio above one", args: []string{"--trace-sample-ratio", "2"}},
		{name: "unknown flag", args: []string{"--nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args)
			assert.Error(t, err)
		})
	}
}

func TestParseArgsHelp(t *testing.T) {
	_, err := ParseArgs([]string{"--help"})
	require.Error(t, err)

	var flagsErr *flags.Error
	require.ErrorAs(t, err, &flagsErr)
	assert.Equal(t, flags.ErrHelp, flagsErr.Type)
}
