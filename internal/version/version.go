// Package version holds build metadata injected via -ldflags.
package version

import "fmt"

// Set at build time:
//
//	go build -ldflags "-X github.com/sydlexius/pitwall/internal/version.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// UserAgent is the User-Agent header sent to remote sources.
func UserAgent() string {
	return fmt.Sprintf("Pitwall/%s (https://github.com/sydlexius/pitwall)", Version)
}

// String formats the version for the version command.
func String() string {
	return fmt.Sprintf("pitwall %s (commit %s, built %s)", Version, Commit, Date)
}
