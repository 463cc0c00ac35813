// Package version holds the devgate build version.
package version

// Version is the current devgate release. Overridden at build time via
// -ldflags "-X github.com/quillfox/devgate/internal/version.Version=...".
var Version = "0.3.0"
