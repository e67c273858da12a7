package container

import (
	dockerContainerType "github.com/docker/docker/api/types/container"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/redock/internal/util"
	"github.com/nicholas-fedor/redock/pkg/types"
)

// Container represents a running Docker container as seen by redock.
//
// It implements the types.Container interface over an inspect response.
type Container struct {
	containerInfo *dockerContainerType.InspectResponse // Docker container metadata
}

// NewContainer creates a new Container instance with the specified metadata.
//
// Parameters:
//   - containerInfo: Docker container metadata.
//
// Returns:
//   - *Container: Initialized container instance.
func NewContainer(containerInfo *dockerContainerType.InspectResponse) *Container {
	c := &Container{containerInfo: containerInfo}

	logrus.WithFields(logrus.Fields{
		"container": c.Name(),
		"id":        c.ID().ShortID(),
		"image":     c.ImageID().ShortID(),
	}).Trace("Created new container instance")

	return c
}

// ContainerInfo returns the full Docker container metadata.
//
// Returns:
//   - *dockerContainerType.InspectResponse: Container metadata.
func (c Container) ContainerInfo() *dockerContainerType.InspectResponse {
	return c.containerInfo
}

// ID returns the unique identifier of the container.
//
// Returns:
//   - types.ContainerID: Container ID.
func (c Container) ID() types.ContainerID {
	return types.ContainerID(c.containerInfo.ID)
}

// IsRunning checks if the container is currently running.
//
// Returns:
//   - bool: True if running, false otherwise.
func (c Container) IsRunning() bool {
	if c.containerInfo == nil || c.containerInfo.State == nil {
		return false
	}

	return c.containerInfo.State.Running
}

// Name returns the name of the container without the leading slash.
//
// Returns:
//   - string: Container name.
func (c Container) Name() string {
	return util.NormalizeContainerName(c.containerInfo.Name)
}

// ImageID returns the ID of the image the container is bound to.
//
// Returns:
//   - types.ImageID: Image ID.
func (c Container) ImageID() types.ImageID {
	return types.ImageID(c.containerInfo.Image)
}

// ImageName returns the image reference the container was created with.
//
// Returns:
//   - string: Image reference, empty if the config is missing.
func (c Container) ImageName() string {
	if c.containerInfo.Config == nil {
		return ""
	}

	return c.containerInfo.Config.Image
}

// Labels returns the container labels.
//
// Returns:
//   - map[string]string: Labels, nil if the config is missing.
func (c Container) Labels() map[string]string {
	if c.containerInfo.Config == nil {
		return nil
	}

	return c.containerInfo.Config.Labels
}

// StopSignal returns the stop signal configured on the container.
//
// Returns:
//   - string: Signal name, empty for the engine default.
func (c Container) StopSignal() string {
	if c.containerInfo.Config == nil {
		return ""
	}

	return c.containerInfo.Config.StopSignal
}

// Config returns the container config.
//
// Returns:
//   - *dockerContainerType.Config: Config.
func (c Container) Config() *dockerContainerType.Config {
	return c.containerInfo.Config
}

// HostConfig returns the host config.
//
// Returns:
//   - *dockerContainerType.HostConfig: Host config.
func (c Container) HostConfig() *dockerContainerType.HostConfig {
	return c.containerInfo.HostConfig
}
