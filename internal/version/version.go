// Package version holds build-time version information for the tdsta binary.
// The variables are populated at build time via -ldflags:
//
//	go build -ldflags="-X github.com/Tejaswini050302/TDS-Project-1/internal/version.Version=v1.2.3 \
//	                    -X github.com/Tejaswini050302/TDS-Project-1/internal/version.Commit=abc1234 \
//	                    -X github.com/Tejaswini050302/TDS-Project-1/internal/version.BuildDate=2025-01-01"
package version

import "fmt"

// Version is the semantic version of the binary. Defaults to "dev".
var Version = "dev"

// Commit is the short git SHA the binary was built from.
var Commit = "unknown"

// BuildDate is the UTC build date (RFC3339).
var BuildDate = "unknown"

// String renders the version line printed by `tdsta version` and logged at
// server start.
func String() string {
	return fmt.Sprintf("tdsta %s (commit %s, built %s)", Version, Commit, BuildDate)
}
