package types

import (
	dockerContainer "github.com/docker/docker/api/types/container"
	dockerMount "github.com/docker/docker/api/types/mount"
	"github.com/docker/go-connections/nat"
)

// RunSpec describes the replacement container.
//
// Entrypoint and Cmd are nil when unset so the image default applies; an empty
// non-nil slice is never produced by the override diff.
type RunSpec struct {
	Name        string
	Image       string
	Hostname    string
	User        string
	WorkingDir  string
	Env         []string
	Labels      map[string]string
	Volumes     map[string]struct{}
	Entrypoint  []string
	Cmd         []string
	NetworkMode string
	// NetworkAliases are the aliases held on the NetworkMode network, if it is user-defined.
	NetworkAliases []string
	// PortBindings are copied verbatim from the old host config.
	PortBindings nat.PortMap
	// Binds, Mounts and RestartPolicy are carried from the old host config so
	// the replacement keeps its data and restart behaviour.
	Binds         []string
	Mounts        []dockerMount.Mount
	RestartPolicy dockerContainer.RestartPolicy
}
