// Package version exposes build metadata stamped at link time, surfaced by
// the eksops -version flag and the lambda startup log.
package version

import "fmt"

// Injected via -ldflags "-X github.com/majiny/eksops/pkg/version.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime)
}
