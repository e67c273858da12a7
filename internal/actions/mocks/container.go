package mocks

import (
	dockerContainer "github.com/docker/docker/api/types/container"
	dockerNetwork "github.com/docker/docker/api/types/network"
	dockerspec "github.com/moby/docker-image-spec/specs-go/v1"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/nicholas-fedor/redock/pkg/compose"
	"github.com/nicholas-fedor/redock/pkg/container"
	"github.com/nicholas-fedor/redock/pkg/types"
)

// ComposeLabels returns the labels compose puts on a service container.
func ComposeLabels(project, service string) map[string]string {
	return map[string]string{
		compose.ComposeProjectLabel:    project,
		compose.ComposeServiceLabel:    service,
		compose.ComposeContainerNumber: "1",
	}
}

// CreateMockContainer creates a running container substitute valid for testing.
//
// A nil config or host config gets an empty one. The image reference recorded
// on the config defaults to imageRef.
func CreateMockContainer(
	id, name, imageID, imageRef string,
	config *dockerContainer.Config,
	hostConfig *dockerContainer.HostConfig,
) types.Container {
	if config == nil {
		config = &dockerContainer.Config{}
	}

	if config.Image == "" {
		config.Image = imageRef
	}

	if hostConfig == nil {
		hostConfig = &dockerContainer.HostConfig{}
	}

	return container.NewContainer(&dockerContainer.InspectResponse{
		ContainerJSONBase: &dockerContainer.ContainerJSONBase{
			ID:         id,
			Name:       "/" + name,
			Image:      imageID,
			State:      &dockerContainer.State{Running: true, Status: "running"},
			HostConfig: hostConfig,
		},
		Config: config,
		NetworkSettings: &dockerContainer.NetworkSettings{
			Networks: map[string]*dockerNetwork.EndpointSettings{},
		},
	})
}

// WithNetworkAliases attaches the container to a network with the given aliases.
func WithNetworkAliases(c types.Container, networkName string, aliases ...string) types.Container {
	c.ContainerInfo().NetworkSettings.Networks[networkName] = &dockerNetwork.EndpointSettings{
		Aliases: aliases,
	}

	return c
}

// CreateMockImage creates an image record with the given defaults.
func CreateMockImage(id string, tags []string, defaults ocispec.ImageConfig) types.Image {
	return types.Image{
		ID:   types.ImageID(id),
		Tags: tags,
		Config: &dockerspec.DockerOCIImageConfig{
			ImageConfig: defaults,
		},
	}
}
