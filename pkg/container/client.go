package container

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	dockerClient "github.com/docker/docker/client"

	"github.com/nicholas-fedor/redock/pkg/types"
)

// defaultStopTimeout bounds the wait for a signalled container when none is configured.
const defaultStopTimeout = 10 * time.Second

// client is the concrete implementation of the types.Client interface.
//
// It wraps the Docker API client and applies custom behavior via ClientOptions.
type client struct {
	api dockerClient.APIClient
	ClientOptions
}

// ClientOptions configures the behavior of the client wrapper around the Docker API.
type ClientOptions struct {
	// RemoveVolumes removes anonymous volumes together with the old container.
	RemoveVolumes bool
	// StopTimeout is how long a signalled container gets to exit, and how long removal is awaited.
	StopTimeout time.Duration
}

// NewClient initializes a new Client instance for Docker API interactions.
//
// It configures the client from DOCKER_HOST, DOCKER_TLS_VERIFY and
// DOCKER_CERT_PATH. A DOCKER_API_VERSION the daemon rejects falls back to
// version negotiation.
//
// Parameters:
//   - opts: Options to customize container management behavior.
//
// Returns:
//   - types.Client: Initialized client instance (exits on failure).
func NewClient(opts ClientOptions) types.Client {
	ctx := context.Background()

	cli, err := dockerClient.NewClientWithOpts(
		dockerClient.FromEnv,
		dockerClient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize Docker client")
	}

	if version := strings.Trim(os.Getenv("DOCKER_API_VERSION"), "\""); version != "" {
		pingCli, err := dockerClient.NewClientWithOpts(
			dockerClient.FromEnv,
			dockerClient.WithVersion(version),
		)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to create test client")
		}

		if _, err := pingCli.Ping(ctx); err != nil && strings.Contains(err.Error(), "page not found") {
			logrus.WithFields(logrus.Fields{
				"version":  version,
				"error":    err,
				"endpoint": "/_ping",
			}).Warn("Invalid API version; falling back to autonegotiation")
			cli.NegotiateAPIVersion(ctx)
		} else {
			cli = pingCli
		}
	} else {
		cli.NegotiateAPIVersion(ctx)
	}

	if serverVersion, err := cli.ServerVersion(ctx); err != nil {
		logrus.WithFields(logrus.Fields{
			"error":    err,
			"endpoint": "/version",
		}).Error("Failed to retrieve server version")
	} else {
		logrus.WithFields(logrus.Fields{
			"client_version": cli.ClientVersion(),
			"server_version": serverVersion.APIVersion,
		}).Debug("Initialized Docker client")
	}

	return NewClientWithAPI(cli, opts)
}

// NewClientWithAPI wraps an existing Docker API client.
//
// Parameters:
//   - api: Docker API client.
//   - opts: Options to customize container management behavior.
//
// Returns:
//   - types.Client: Client instance.
func NewClientWithAPI(api dockerClient.APIClient, opts ClientOptions) types.Client {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaultStopTimeout
	}

	return &client{api: api, ClientOptions: opts}
}

// ListRunningContainers retrieves the running containers in engine listing order.
//
// Parameters:
//   - ctx: Context bounding the engine calls.
//
// Returns:
//   - []types.Container: Running containers.
//   - error: Non-nil if listing fails, nil on success.
func (c *client) ListRunningContainers(ctx context.Context) ([]types.Container, error) {
	return ListSourceContainers(ctx, c.api)
}

// GetImage inspects a local image.
//
// Parameters:
//   - ctx: Context bounding the engine call.
//   - ref: Image ID or reference.
//
// Returns:
//   - types.Image: Inspected image.
//   - error: Non-nil if inspection fails.
func (c *client) GetImage(ctx context.Context, ref string) (types.Image, error) {
	return newImageClient(c.api).GetImage(ctx, ref)
}

// PullImage pulls a tag and returns the resulting local image.
//
// Parameters:
//   - ctx: Context bounding the engine calls.
//   - tag: Tagged image reference.
//
// Returns:
//   - types.Image: Pulled image.
//   - error: Non-nil if the pull fails.
func (c *client) PullImage(ctx context.Context, tag string) (types.Image, error) {
	return newImageClient(c.api).PullImage(ctx, tag)
}

// StopContainer stops a running container with its stop signal.
//
// Parameters:
//   - ctx: Context bounding the engine calls.
//   - container: Container to stop.
//
// Returns:
//   - error: Non-nil if stopping fails, nil on success.
func (c *client) StopContainer(ctx context.Context, container types.Container) error {
	return StopSourceContainer(ctx, c.api, container, c.StopTimeout)
}

// RemoveContainer removes a container, optionally with its anonymous volumes.
//
// Parameters:
//   - ctx: Context bounding the engine calls.
//   - container: Container to remove.
//
// Returns:
//   - error: Non-nil if removal fails, nil on success.
func (c *client) RemoveContainer(ctx context.Context, container types.Container) error {
	return RemoveSourceContainer(ctx, c.api, container, c.RemoveVolumes, c.StopTimeout)
}

// RunContainer creates and starts the replacement container and inspects it.
//
// Parameters:
//   - ctx: Context bounding the engine calls.
//   - spec: Replacement container description.
//
// Returns:
//   - types.Container: Started container.
//   - error: Non-nil if creation, start or inspection fails.
func (c *client) RunContainer(ctx context.Context, spec types.RunSpec) (types.Container, error) {
	containerID, err := StartTargetContainer(ctx, c.api, spec)
	if err != nil {
		return nil, err
	}

	return GetSourceContainer(ctx, c.api, containerID)
}

// GetVersion returns the client's API version.
//
// Returns:
//   - string: Docker API version (e.g., "1.44").
func (c *client) GetVersion() string {
	return strings.Trim(c.api.ClientVersion(), "\"")
}
