// Package vars holds build metadata set with -ldflags "-X".
// Values left unset are filled from the module build info when available.
package vars

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"time"
)

var (
	// Name of the service, also used as the tracing service name.
	Name = "mcstatus"

	// Version is the release tag, e.g. v1.2.3.
	Version = "dev"

	// Commit is the git SHA the binary was built from.
	Commit = "unknown"

	// BuildTime is when the binary was built.
	BuildTime time.Time

	// URL of the source repository.
	URL = "https://github.com/woozymasta/mcstatus"

	_buildTime string
)

// BuildInfo is the JSON body of /api/version.
type BuildInfo struct {
	BuildTime time.Time `json:"build_time,omitzero"`
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Commit    string    `json:"commit"`
	GoVersion string    `json:"go_version"`
	URL       string    `json:"url"`
}

func init() {
	if t, err := time.Parse(time.RFC3339, _buildTime); err == nil {
		BuildTime = t.UTC()
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		fromBuildInfo(bi)
	}
}

// fromBuildInfo fills the values -ldflags did not set from the go toolchain stamp.
func fromBuildInfo(bi *debug.BuildInfo) {
	if Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		Version = bi.Main.Version
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "unknown" {
				Commit = s.Value
			}
		case "vcs.time":
			if BuildTime.IsZero() {
				if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
					BuildTime = t.UTC()
				}
			}
		}
	}
}

// Print writes the build information to the standard output.
func Print() {
	fmt.Printf("%s %s (%s) built %s with %s\n%s\n",
		Name, Version, CommitShort(), BuildTime.Format(time.RFC3339), runtime.Version(), URL)
	fmt.Printf("binary: %s\n", os.Args[0])
}

// Info returns the build metadata.
func Info() BuildInfo {
	return BuildInfo{
		Name:      Name,
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		URL:       URL,
	}
}

// UserAgent returns "name/version", used for outbound HTTP requests.
func UserAgent() string {
	return Name + "/" + Version
}

// CommitShort returns the first 7 characters of the git commit hash.
func CommitShort() string {
	if len(Commit) > 7 {
		return Commit[:7]
	}

	return Commit
}
