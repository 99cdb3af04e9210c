package vars

import (
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func restore(t *testing.T) {
	t.Helper()

	version, commit, built := Version, Commit, BuildTime
	t.Cleanup(func() { Version, Commit, BuildTime = version, commit, built })
}

func TestFromBuildInfo(t *testing.T) {
	restore(t)
	Version, Commit, BuildTime = "dev", "unknown", time.Time{}

	fromBuildInfo(&debug.BuildInfo{
		Main: debug.Module{Version: "v1.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "da15c174cd2ada1ad247906536c101e8f6799def"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	})

	assert.Equal(t, "v1.4.0", Version)
	assert.Equal(t, "da15c17", CommitShort())
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), BuildTime)
	assert.Equal(t, "mcstatus/v1.4.0", UserAgent())
}

func TestFromBuildInfoKeepsLinkerValues(t *testing.T) {
	restore(t)
	built := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	Version, Commit, BuildTime = "v2.0.0", "abc1234", built

	fromBuildInfo(&debug.BuildInfo{
		Main: debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "ffffffffffffffffffffffffffffffffffffffff"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	})

	assert.Equal(t, "v2.0.0", Version)
	assert.Equal(t, "abc1234", Commit)
	assert.Equal(t, built, BuildTime)
}

func TestFromBuildInfoDevel(t *testing.T) {
	restore(t)
	Version = "dev"

	fromBuildInfo(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})

	assert.Equal(t, "dev", Version)
}

func TestInfo(t *testing.T) {
	info := Info()

	assert.Equal(t, "mcstatus", info.Name)
	assert.NotEmpty(t, info.GoVersion)
	assert.Equal(t, Version, info.Version)
}
