// Package mocks provides an in-memory container engine for testing update actions.
package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	dockerContainer "github.com/docker/docker/api/types/container"

	"github.com/nicholas-fedor/redock/internal/util"
	"github.com/nicholas-fedor/redock/pkg/types"
)

// MockClient is an in-memory implementation of types.Client.
//
// Every call is recorded in Calls as "<operation>:<subject>" (list has no
// subject). The same string keys TestData.Errors, TestData.Delays and
// TestData.Gates, so a test can fail, slow down or hold any single call.
type MockClient struct {
	TestData *TestData

	mu    sync.Mutex
	calls []string
	specs []types.RunSpec
}

// TestData holds the engine state and the injected behaviour of a MockClient.
type TestData struct {
	Containers     []types.Container        // Running containers in listing order.
	Images         map[string]types.Image   // Local image store by id or reference.
	Pulls          map[string]types.Image   // Pull results by tag.
	Errors         map[string]error         // Failures by call.
	Delays         map[string]time.Duration // Latency by call, cut short by the context.
	Gates          map[string]chan struct{} // Calls block until their gate is closed.
	NewContainerID string                   // ID given to the next run container, random when empty.
}

// CreateMockClient constructs a new MockClient around the given state.
func CreateMockClient(data *TestData) *MockClient {
	if data.Images == nil {
		data.Images = map[string]types.Image{}
	}

	if data.Pulls == nil {
		data.Pulls = map[string]types.Image{}
	}

	return &MockClient{TestData: data}
}

// Calls returns the recorded calls in order.
func (client *MockClient) Calls() []string {
	client.mu.Lock()
	defer client.mu.Unlock()

	return append([]string(nil), client.calls...)
}

// CallsOf returns the recorded calls of one operation.
func (client *MockClient) CallsOf(operation string) []string {
	var matching []string

	for _, call := range client.Calls() {
		if call == operation || strings.HasPrefix(call, operation+":") {
			matching = append(matching, call)
		}
	}

	return matching
}

// RunSpecs returns the specs passed to RunContainer.
func (client *MockClient) RunSpecs() []types.RunSpec {
	client.mu.Lock()
	defer client.mu.Unlock()

	return append([]types.RunSpec(nil), client.specs...)
}

// ListRunningContainers returns the running containers.
func (client *MockClient) ListRunningContainers(ctx context.Context) ([]types.Container, error) {
	if err := client.enter(ctx, "list"); err != nil {
		return nil, err
	}

	client.mu.Lock()
	defer client.mu.Unlock()

	return append([]types.Container(nil), client.TestData.Containers...), nil
}

// GetImage looks an image up in the local store.
func (client *MockClient) GetImage(ctx context.Context, ref string) (types.Image, error) {
	if err := client.enter(ctx, "image:"+ref); err != nil {
		return types.Image{}, err
	}

	client.mu.Lock()
	defer client.mu.Unlock()

	image, ok := client.TestData.Images[ref]
	if !ok {
		return types.Image{}, fmt.Errorf("%w: no such image: %s", cerrdefs.ErrNotFound, ref)
	}

	return image, nil
}

// PullImage returns the configured pull result and stores it locally.
func (client *MockClient) PullImage(ctx context.Context, tag string) (types.Image, error) {
	if err := client.enter(ctx, "pull:"+tag); err != nil {
		return types.Image{}, err
	}

	client.mu.Lock()
	defer client.mu.Unlock()

	image, ok := client.TestData.Pulls[tag]
	if !ok {
		return types.Image{}, fmt.Errorf("%w: manifest unknown: %s", cerrdefs.ErrNotFound, tag)
	}

	client.TestData.Images[tag] = image
	client.TestData.Images[string(image.ID)] = image

	return image, nil
}

// StopContainer marks the container as stopped.
func (client *MockClient) StopContainer(ctx context.Context, c types.Container) error {
	if err := client.enter(ctx, "stop:"+c.Name()); err != nil {
		return err
	}

	client.mu.Lock()
	defer client.mu.Unlock()

	c.ContainerInfo().State.Running = false

	return nil
}

// RemoveContainer drops the container from the running list.
func (client *MockClient) RemoveContainer(ctx context.Context, c types.Container) error {
	if err := client.enter(ctx, "remove:"+c.Name()); err != nil {
		return err
	}

	client.mu.Lock()
	defer client.mu.Unlock()

	kept := client.TestData.Containers[:0]

	for _, existing := range client.TestData.Containers {
		if existing.ID() != c.ID() {
			kept = append(kept, existing)
		}
	}

	client.TestData.Containers = kept

	return nil
}

// RunContainer records the spec and adds a running container built from it.
func (client *MockClient) RunContainer(ctx context.Context, spec types.RunSpec) (types.Container, error) {
	client.mu.Lock()
	client.specs = append(client.specs, spec)
	client.mu.Unlock()

	if err := client.enter(ctx, "run:"+spec.Name); err != nil {
		return nil, err
	}

	client.mu.Lock()
	defer client.mu.Unlock()

	id := client.TestData.NewContainerID
	if id == "" {
		id = util.GenerateRandomSHA256()
	}

	created := CreateMockContainer(
		id,
		spec.Name,
		string(client.TestData.Images[spec.Image].ID),
		spec.Image,
		&dockerContainer.Config{
			Image:      spec.Image,
			User:       spec.User,
			WorkingDir: spec.WorkingDir,
			Env:        spec.Env,
			Labels:     spec.Labels,
			Volumes:    spec.Volumes,
			Entrypoint: spec.Entrypoint,
			Cmd:        spec.Cmd,
		},
		&dockerContainer.HostConfig{
			NetworkMode:  dockerContainer.NetworkMode(spec.NetworkMode),
			PortBindings: spec.PortBindings,
		},
	)

	client.TestData.Containers = append(client.TestData.Containers, created)

	return created, nil
}

// GetVersion returns a fixed API version.
func (client *MockClient) GetVersion() string {
	return "1.51"
}

// enter records a call and applies its injected gate, delay and error.
func (client *MockClient) enter(ctx context.Context, call string) error {
	client.mu.Lock()
	client.calls = append(client.calls, call)
	gate := client.TestData.Gates[call]
	delay := client.TestData.Delays[call]
	err := client.TestData.Errors[call]
	client.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", call, ctx.Err())
		}
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", call, ctx.Err())
		}
	}

	return err
}
