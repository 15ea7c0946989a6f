// Package version holds build metadata injected by the linker.
package version

import "fmt"

// Set via -ldflags "-X github.com/dkoosis/gradefetch/internal/version.Version=...".
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// String formats the build metadata for `gradefetch version`.
func String() string {
	return fmt.Sprintf("gradefetch %s (commit %s, built %s)", Version, CommitHash, BuildDate)
}
