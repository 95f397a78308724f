// Package version holds build-time version metadata, set via -ldflags.
package version

import "fmt"

// Version and CommitHash are set at build time with -ldflags. Defaults are
// useful for local development.
var (
	Version    string = "dev"
	CommitHash string = "unknown"
)

// Describe returns a one-line human-readable version string for --version.
func Describe() string {
	return fmt.Sprintf("retrieval-core %s (%s)", Version, CommitHash)
}
