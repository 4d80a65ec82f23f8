// Package version holds the wpcc-triage version string. Release builds set it
// with: go build -ldflags "-X wpcc/cli/internal/version.Version=v1.0.0"
package version

// Version is the CLI version. Set at build time for releases.
var Version = "dev"

// Commit is the short git commit hash, set via ldflags for dev builds.
var Commit = ""

// String returns the version for display and for run history records.
// Dev builds with Commit set render as "dev (abc1234)".
func String() string {
	if Version != "dev" || Commit == "" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
