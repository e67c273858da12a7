package types

import (
	"context"
)

// Client is the engine collaborator used by the recreate pipeline.
//
// Every blocking method takes a context that bounds the engine call.
type Client interface {
	// ListRunningContainers returns all running containers in engine listing order.
	ListRunningContainers(ctx context.Context) ([]Container, error)
	// GetImage inspects an image by ID or reference, failing with ErrNotFound when absent.
	GetImage(ctx context.Context, ref string) (Image, error)
	// PullImage pulls a tag from its registry and returns the resulting local image.
	PullImage(ctx context.Context, tag string) (Image, error)
	// StopContainer stops a running container.
	StopContainer(ctx context.Context, c Container) error
	// RemoveContainer removes a stopped container.
	RemoveContainer(ctx context.Context, c Container) error
	// RunContainer creates and starts a detached container from spec.
	RunContainer(ctx context.Context, spec RunSpec) (Container, error)
	// GetVersion returns the negotiated engine API version.
	GetVersion() string
}
