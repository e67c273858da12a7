package container

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	cerrdefs "github.com/containerd/errdefs"
	dockerContainerType "github.com/docker/docker/api/types/container"
	dockerFiltersType "github.com/docker/docker/api/types/filters"
	dockerClient "github.com/docker/docker/client"

	"github.com/nicholas-fedor/redock/pkg/types"
)

// defaultStopSignal is the default signal for stopping containers ("SIGTERM").
const defaultStopSignal = "SIGTERM"

// pollInterval is the delay between state checks while waiting on the engine.
var pollInterval = time.Second

// ListSourceContainers retrieves the running containers from the Docker host.
//
// Containers that disappear between listing and inspection are skipped.
//
// Parameters:
//   - ctx: Context bounding the engine calls.
//   - api: Docker API client.
//
// Returns:
//   - []types.Container: Running containers in engine listing order.
//   - error: Non-nil if listing or inspection fails.
func ListSourceContainers(
	ctx context.Context,
	api dockerClient.APIClient,
) ([]types.Container, error) {
	filterArgs := dockerFiltersType.NewArgs()
	filterArgs.Add("status", "running")

	containers, err := api.ContainerList(ctx, dockerContainerType.ListOptions{Filters: filterArgs})
	if err != nil {
		logrus.WithError(err).Debug("Failed to list containers")

		return nil, fmt.Errorf("%w: %w", errListContainersFailed, err)
	}

	hostContainers := make([]types.Container, 0, len(containers))

	for _, summary := range containers {
		container, err := GetSourceContainer(ctx, api, types.ContainerID(summary.ID))
		if err != nil {
			if cerrdefs.IsNotFound(err) {
				logrus.WithField("id", types.ContainerID(summary.ID).ShortID()).
					Debug("Container vanished before inspection, skipping")

				continue
			}

			return nil, err
		}

		hostContainers = append(hostContainers, container)
	}

	logrus.WithField("count", len(hostContainers)).Debug("Listed running containers")

	return hostContainers, nil
}

// GetSourceContainer retrieves detailed information about a container by its ID.
//
// A network mode referencing another container by ID is rewritten to use its
// name so the replacement survives recreation of that container.
//
// Parameters:
//   - ctx: Context bounding the engine calls.
//   - api: Docker API client.
//   - containerID: ID of the container to inspect.
//
// Returns:
//   - types.Container: Container object if successful.
//   - error: Non-nil if inspection fails, nil on success.
func GetSourceContainer(
	ctx context.Context,
	api dockerClient.APIClient,
	containerID types.ContainerID,
) (types.Container, error) {
	clog := logrus.WithField("id", containerID.ShortID())

	containerInfo, err := api.ContainerInspect(ctx, string(containerID))
	if err != nil {
		clog.WithError(err).Debug("Failed to inspect container")

		return nil, fmt.Errorf("%w: %w", errInspectContainerFailed, err)
	}

	netType, netContainerID, found := strings.Cut(string(containerInfo.HostConfig.NetworkMode), ":")
	if found && netType == "container" {
		parentContainer, err := api.ContainerInspect(ctx, netContainerID)
		if err != nil {
			clog.WithError(err).WithFields(logrus.Fields{
				"container":         containerInfo.Name,
				"network_container": netContainerID,
			}).Warn("Unable to resolve network container")
		} else {
			containerInfo.HostConfig.NetworkMode = dockerContainerType.NetworkMode(
				"container:" + strings.TrimPrefix(parentContainer.Name, "/"),
			)
		}
	}

	return NewContainer(&containerInfo), nil
}

// StopSourceContainer signals a running container and waits for it to exit.
//
// A container still running after the timeout is left for the forced removal.
//
// Parameters:
//   - ctx: Context bounding the engine calls.
//   - api: Docker API client.
//   - sourceContainer: Container to stop.
//   - timeout: Duration to wait after signalling.
//
// Returns:
//   - error: Non-nil if signalling or polling fails, nil on success.
func StopSourceContainer(
	ctx context.Context,
	api dockerClient.APIClient,
	sourceContainer types.Container,
	timeout time.Duration,
) error {
	clog := logrus.WithFields(logrus.Fields{
		"container": sourceContainer.Name(),
		"id":        sourceContainer.ID().ShortID(),
	})

	if !sourceContainer.IsRunning() {
		clog.Debug("Container not running, nothing to stop")

		return nil
	}

	signal := sourceContainer.StopSignal()
	if signal == "" {
		signal = defaultStopSignal
	}

	clog.WithField("signal", signal).Info("Stopping container")

	if err := api.ContainerKill(ctx, string(sourceContainer.ID()), signal); err != nil {
		if cerrdefs.IsNotFound(err) {
			return nil
		}

		clog.WithError(err).Debug("Failed to stop container")

		return fmt.Errorf("%w: %w", errStopContainerFailed, err)
	}

	stopped, err := waitForStopOrTimeout(ctx, api, sourceContainer, timeout)
	if err != nil {
		return err
	}

	if !stopped {
		clog.WithField("timeout", timeout).Warn("Container did not stop within timeout, removal will kill it")
	}

	return nil
}

// RemoveSourceContainer force-removes a container and waits until it is gone.
//
// A container that is already gone, for example because of AutoRemove, is
// treated as removed.
//
// Parameters:
//   - ctx: Context bounding the engine calls.
//   - api: Docker API client.
//   - sourceContainer: Container to remove.
//   - removeVolumes: Whether to remove anonymous volumes.
//   - timeout: Duration to wait for the container to disappear.
//
// Returns:
//   - error: Non-nil if removal fails, nil on success.
func RemoveSourceContainer(
	ctx context.Context,
	api dockerClient.APIClient,
	sourceContainer types.Container,
	removeVolumes bool,
	timeout time.Duration,
) error {
	clog := logrus.WithFields(logrus.Fields{
		"container": sourceContainer.Name(),
		"id":        sourceContainer.ID().ShortID(),
	})

	clog.Debug("Removing container")

	err := api.ContainerRemove(ctx, string(sourceContainer.ID()), dockerContainerType.RemoveOptions{
		Force:         true,
		RemoveVolumes: removeVolumes,
	})

	switch {
	case err == nil:
	case cerrdefs.IsNotFound(err):
		clog.Debug("Container already removed")

		return nil
	case cerrdefs.IsConflict(err) && sourceContainer.HostConfig() != nil && sourceContainer.HostConfig().AutoRemove:
		clog.Debug("AutoRemove already in progress, waiting for removal")
	default:
		clog.WithError(err).Debug("Failed to remove container")

		return fmt.Errorf("%w: %w", errRemoveContainerFailed, err)
	}

	gone, err := waitForRemovalOrTimeout(ctx, api, sourceContainer, timeout)
	if err != nil {
		return err
	}

	if !gone {
		return fmt.Errorf(
			"%w: %s (%s)",
			errContainerNotRemoved,
			sourceContainer.Name(),
			sourceContainer.ID().ShortID(),
		)
	}

	clog.Debug("Confirmed container removal")

	return nil
}

// waitForStopOrTimeout polls a container until it stops, disappears, or the wait expires.
//
// Parameters:
//   - ctx: Context bounding the engine calls.
//   - api: Docker API client.
//   - container: Container to monitor.
//   - waitTime: Duration to wait.
//
// Returns:
//   - bool: True if stopped or gone, false if still running.
//   - error: Non-nil if inspection fails or ctx ends.
func waitForStopOrTimeout(
	ctx context.Context,
	api dockerClient.APIClient,
	container types.Container,
	waitTime time.Duration,
) (bool, error) {
	return pollContainer(ctx, api, container, waitTime, func(info dockerContainerType.InspectResponse) bool {
		return info.State == nil || !info.State.Running
	})
}

// waitForRemovalOrTimeout polls a container until it disappears or the wait expires.
//
// Parameters:
//   - ctx: Context bounding the engine calls.
//   - api: Docker API client.
//   - container: Container to monitor.
//   - waitTime: Duration to wait.
//
// Returns:
//   - bool: True if gone, false if still present.
//   - error: Non-nil if inspection fails or ctx ends.
func waitForRemovalOrTimeout(
	ctx context.Context,
	api dockerClient.APIClient,
	container types.Container,
	waitTime time.Duration,
) (bool, error) {
	return pollContainer(ctx, api, container, waitTime, func(dockerContainerType.InspectResponse) bool {
		return false
	})
}

// pollContainer inspects a container until done reports true, it is gone, or waitTime passes.
func pollContainer(
	ctx context.Context,
	api dockerClient.APIClient,
	container types.Container,
	waitTime time.Duration,
	done func(dockerContainerType.InspectResponse) bool,
) (bool, error) {
	deadline := time.NewTimer(waitTime)
	defer deadline.Stop()

	for {
		containerInfo, err := api.ContainerInspect(ctx, string(container.ID()))
		if err != nil {
			if cerrdefs.IsNotFound(err) {
				return true, nil
			}

			return false, fmt.Errorf("%w: %w", errInspectContainerFailed, err)
		}

		if done(containerInfo) {
			return true, nil
		}

		select {
		case <-ctx.Done():
			return false, fmt.Errorf("%w: %w", errInspectContainerFailed, ctx.Err())
		case <-deadline.C:
			return false, nil
		case <-time.After(pollInterval):
		}
	}
}
