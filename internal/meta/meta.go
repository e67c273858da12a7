// Package meta holds build information injected at link time.
package meta

// Version is the release version of redock, set with
// -ldflags "-X github.com/nicholas-fedor/redock/internal/meta.Version=...".
var Version = "v0.0.0-unknown"
