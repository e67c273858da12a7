package container

import (
	"context"
	"fmt"
	"maps"

	"github.com/docker/go-connections/nat"
	"github.com/sirupsen/logrus"

	dockerContainerType "github.com/docker/docker/api/types/container"
	dockerNetworkType "github.com/docker/docker/api/types/network"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/nicholas-fedor/redock/pkg/types"
)

// Operations defines the minimal interface for creating and starting containers.
type Operations interface {
	ContainerCreate(
		ctx context.Context,
		config *dockerContainerType.Config,
		hostConfig *dockerContainerType.HostConfig,
		networkingConfig *dockerNetworkType.NetworkingConfig,
		platform *ocispec.Platform,
		containerName string,
	) (dockerContainerType.CreateResponse, error)
	ContainerStart(
		ctx context.Context,
		containerID string,
		options dockerContainerType.StartOptions,
	) error
}

// StartTargetContainer creates and starts a detached container from a run spec.
//
// A start failure is returned with the created container's ID; the container
// is left in place for inspection.
//
// Parameters:
//   - ctx: Context bounding the engine calls.
//   - api: Interface for container operations (Operations).
//   - spec: Replacement container description.
//
// Returns:
//   - types.ContainerID: ID of the new container, empty if creation failed.
//   - error: Non-nil if creation or start fails, nil on success.
func StartTargetContainer(
	ctx context.Context,
	api Operations,
	spec types.RunSpec,
) (types.ContainerID, error) {
	clog := logrus.WithFields(logrus.Fields{
		"container": spec.Name,
		"image":     spec.Image,
	})

	config, hostConfig, networkConfig := buildCreateConfig(spec)

	clog.Debug("Creating new container")

	createdContainer, err := api.ContainerCreate(ctx, config, hostConfig, networkConfig, nil, spec.Name)
	if err != nil {
		clog.WithError(err).Debug("Failed to create new container")

		return "", fmt.Errorf("%w: %w", errCreateContainerFailed, err)
	}

	createdContainerID := types.ContainerID(createdContainer.ID)
	for _, warning := range createdContainer.Warnings {
		clog.WithField("new_id", createdContainerID.ShortID()).Warn(warning)
	}

	if err := api.ContainerStart(ctx, createdContainer.ID, dockerContainerType.StartOptions{}); err != nil {
		clog.WithError(err).
			WithField("new_id", createdContainerID.ShortID()).
			Debug("Failed to start new container")

		return createdContainerID, fmt.Errorf("%w: %w", errStartContainerFailed, err)
	}

	clog.WithField("new_id", createdContainerID.ShortID()).Info("Started new container")

	return createdContainerID, nil
}

// buildCreateConfig translates a run spec into Docker create arguments.
//
// Bound ports are also exposed so bindings to ports the image does not expose
// still take effect.
//
// Parameters:
//   - spec: Replacement container description.
//
// Returns:
//   - *dockerContainerType.Config: Container config.
//   - *dockerContainerType.HostConfig: Host config.
//   - *dockerNetworkType.NetworkingConfig: Endpoint config for a user-defined network, nil otherwise.
func buildCreateConfig(spec types.RunSpec) (
	*dockerContainerType.Config,
	*dockerContainerType.HostConfig,
	*dockerNetworkType.NetworkingConfig,
) {
	var exposedPorts nat.PortSet

	if len(spec.PortBindings) > 0 {
		exposedPorts = make(nat.PortSet, len(spec.PortBindings))
		for port := range spec.PortBindings {
			exposedPorts[port] = struct{}{}
		}
	}

	config := &dockerContainerType.Config{
		Hostname:     spec.Hostname,
		User:         spec.User,
		WorkingDir:   spec.WorkingDir,
		Env:          spec.Env,
		Labels:       spec.Labels,
		Volumes:      spec.Volumes,
		Entrypoint:   spec.Entrypoint,
		Cmd:          spec.Cmd,
		Image:        spec.Image,
		ExposedPorts: exposedPorts,
	}

	networkMode := dockerContainerType.NetworkMode(spec.NetworkMode)
	hostConfig := &dockerContainerType.HostConfig{
		NetworkMode:   networkMode,
		PortBindings:  maps.Clone(spec.PortBindings),
		Binds:         spec.Binds,
		Mounts:        spec.Mounts,
		RestartPolicy: spec.RestartPolicy,
	}

	var networkConfig *dockerNetworkType.NetworkingConfig

	if networkMode.IsUserDefined() && len(spec.NetworkAliases) > 0 {
		networkConfig = &dockerNetworkType.NetworkingConfig{
			EndpointsConfig: map[string]*dockerNetworkType.EndpointSettings{
				spec.NetworkMode: {Aliases: spec.NetworkAliases},
			},
		}
	}

	return config, hostConfig, networkConfig
}
