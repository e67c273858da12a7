package actions

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	cerrdefs "github.com/containerd/errdefs"
	dockerContainerType "github.com/docker/docker/api/types/container"

	"github.com/nicholas-fedor/redock/internal/util"
	"github.com/nicholas-fedor/redock/pkg/filters"
	"github.com/nicholas-fedor/redock/pkg/metrics"
	"github.com/nicholas-fedor/redock/pkg/overrides"
	"github.com/nicholas-fedor/redock/pkg/types"
)

// Recreator replaces compose service containers whose image tag moved.
type Recreator struct {
	client      types.Client
	notifier    types.Notifier
	metrics     *metrics.Metrics
	locks       *KeyedLock
	lockTimeout time.Duration
}

// NewRecreator creates a Recreator.
//
// Parameters:
//   - client: Container engine client.
//   - notifier: Outcome notifier, may be nil.
//   - m: Metrics handler, may be nil.
//   - lockTimeout: Maximum wait for a concurrent update of the same service, zero to wait for the caller.
//
// Returns:
//   - *Recreator: Ready to serve updates.
func NewRecreator(
	client types.Client,
	notifier types.Notifier,
	m *metrics.Metrics,
	lockTimeout time.Duration,
) *Recreator {
	return &Recreator{
		client:      client,
		notifier:    notifier,
		metrics:     m,
		locks:       NewKeyedLock(),
		lockTimeout: lockTimeout,
	}
}

// Update brings the container of a compose service onto the latest image of its tag.
//
// It holds the service's lock for the whole operation. When the container
// already runs the pulled image nothing but the pull happens.
//
// Parameters:
//   - ctx: Request context.
//   - params: Target service and limits.
//
// Returns:
//   - *types.UpdateResult: Outcome on success.
//   - error: *types.UpdateError classifying the failure.
func (r *Recreator) Update(ctx context.Context, params types.UpdateParams) (*types.UpdateResult, error) {
	startTime := time.Now()
	clog := logrus.WithFields(logrus.Fields{
		"project": params.Project,
		"service": params.Service,
	})

	release, err := r.locks.Acquire(ctx, params.Key(), r.lockTimeout)
	if err != nil {
		clog.WithError(err).Warn("Could not acquire update lock")
		r.report(params, nil, err, startTime)

		return nil, err
	}
	defer release()

	clog.Debug("Starting update")

	result, err := r.recreate(ctx, clog, params)
	if err != nil {
		clog.WithError(err).Error("Update failed")
	}

	r.report(params, result, err, startTime)

	return result, err
}

// recreate runs the update steps in order, stopping at the first failure.
func (r *Recreator) recreate(
	ctx context.Context,
	clog *logrus.Entry,
	params types.UpdateParams,
) (*types.UpdateResult, error) {
	startTime := time.Now()

	containers, err := withTimeout(ctx, params.Timeout, r.client.ListRunningContainers)
	if err != nil {
		return nil, engineError(errListContainersFailed, err)
	}

	current, err := filters.Locate(containers, params.Project, params.Service, params.StrictMatch)
	if err != nil {
		return nil, err
	}

	if current == nil {
		return nil, types.NewUpdateError(types.ErrNotFound, "Container not found", nil)
	}

	clog = clog.WithFields(logrus.Fields{
		"container": current.Name(),
		"id":        current.ID().ShortID(),
	})

	oldImage, err := withTimeout(ctx, params.Timeout, func(ctx context.Context) (types.Image, error) {
		return r.client.GetImage(ctx, current.ImageName())
	})
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return nil, types.NewUpdateError(types.ErrNotFound, "Image not found", err)
		}

		return nil, engineError(errInspectImageFailed, err)
	}

	tag := oldImage.FirstTag()
	if tag == "" {
		return nil, types.NewUpdateError(types.ErrNotFound, "Tags not found", nil)
	}

	clog = clog.WithField("image", tag)

	pulled, err := withTimeout(ctx, params.Timeout, func(ctx context.Context) (types.Image, error) {
		return r.client.PullImage(ctx, tag)
	})
	if err != nil {
		return nil, engineError(errPullImageFailed, err)
	}

	if pulled.ID == oldImage.ID {
		clog.Infof("Image %s is already up to date (%s)", tag, pulled.ID.ShortID())
	} else {
		clog.Infof("Image updated %s: %s -> %s", tag, oldImage.ID.ShortID(), pulled.ID.ShortID())
	}

	result := &types.UpdateResult{
		ContainerName: current.Name(),
		OldImageID:    current.ImageID(),
		NewImageID:    pulled.ID,
		ImageTag:      tag,
	}

	if current.ImageID() == pulled.ID {
		clog.Infof("Container %s is already up to date", current.Name())

		return result, nil
	}

	// From here on the old container goes away, so a caller hanging up must
	// not stop the replacement from being started.
	detached := context.WithoutCancel(ctx)

	clog.Info("Stopping container")

	if err := withTimeoutErr(detached, params.Timeout, func(ctx context.Context) error {
		return r.client.StopContainer(ctx, current)
	}); err != nil {
		return nil, engineError(errStopContainerFailed, err)
	}

	if err := withTimeoutErr(detached, params.Timeout, func(ctx context.Context) error {
		return r.client.RemoveContainer(ctx, current)
	}); err != nil {
		return nil, engineError(errRemoveContainerFailed, err)
	}

	spec := buildRunSpec(current, oldImage, pulled, tag)

	clog.WithFields(logrus.Fields{
		"new_image": spec.Image,
		"env":       len(spec.Env),
		"labels":    len(spec.Labels),
	}).Debug("Starting replacement container")

	created, err := withTimeout(detached, params.Timeout, func(ctx context.Context) (types.Container, error) {
		return r.client.RunContainer(ctx, spec)
	})
	if err != nil {
		return nil, engineError(errRunContainerFailed, err)
	}

	result.Recreated = true
	result.NewContainerID = created.ID()

	clog.WithField("new_id", created.ID().ShortID()).
		Infof("Container %s restarted in %s", current.Name(), util.FormatDuration(time.Since(startTime)))

	return result, nil
}

// buildRunSpec assembles the replacement container from the old one.
//
// Parameters:
//   - current: Container being replaced.
//   - oldImage: Image the container was created from.
//   - pulled: Freshly pulled image.
//   - tag: Tag that was pulled.
//
// Returns:
//   - types.RunSpec: Spec for the replacement.
func buildRunSpec(current types.Container, oldImage, pulled types.Image, tag string) types.RunSpec {
	carried := overrides.Compute(
		overrides.FromContainerConfig(current.Config()),
		overrides.FromImageConfig(oldImage.Config),
	)

	image := pulled.FirstTag()
	if image == "" {
		image = tag
	}

	spec := types.RunSpec{
		Name:       current.Name(),
		Image:      image,
		Hostname:   "",
		User:       carried.User,
		WorkingDir: carried.WorkingDir,
		Env:        carried.Env,
		Labels:     carried.Labels,
		Volumes:    carried.Volumes,
		Entrypoint: carried.Entrypoint,
		Cmd:        carried.Cmd,
	}

	if hostConfig := current.HostConfig(); hostConfig != nil {
		spec.NetworkMode = string(hostConfig.NetworkMode)
		spec.PortBindings = hostConfig.PortBindings
		spec.Binds = hostConfig.Binds
		spec.Mounts = hostConfig.Mounts
		spec.RestartPolicy = hostConfig.RestartPolicy
	}

	spec.NetworkAliases = networkAliases(current, spec.NetworkMode)

	return spec
}

// networkAliases returns the user-assigned aliases on a user-defined primary
// network. The engine's own short id alias is dropped.
func networkAliases(current types.Container, networkMode string) []string {
	if !dockerContainerType.NetworkMode(networkMode).IsUserDefined() {
		return nil
	}

	info := current.ContainerInfo()
	if info == nil || info.NetworkSettings == nil {
		return nil
	}

	endpoint, ok := info.NetworkSettings.Networks[networkMode]
	if !ok || endpoint == nil {
		return nil
	}

	shortID := current.ID().ShortID()

	aliases := slices.DeleteFunc(slices.Clone(endpoint.Aliases), func(alias string) bool {
		return alias == shortID || alias == string(current.ID())
	})
	if len(aliases) == 0 {
		return nil
	}

	return aliases
}

// report records the outcome in metrics and notifications.
func (r *Recreator) report(
	params types.UpdateParams,
	result *types.UpdateResult,
	err error,
	startTime time.Time,
) {
	if r.metrics != nil {
		r.metrics.Register(metrics.NewMetric(params, result, err, time.Since(startTime)))
	}

	if r.notifier != nil {
		r.notifier.SendUpdate(params, result, err)
	}
}

// withTimeout runs one engine call under its own deadline. A call failing
// after the deadline passed is reported as a timeout.
func withTimeout[T any](
	ctx context.Context,
	timeout time.Duration,
	call func(context.Context) (T, error),
) (T, error) {
	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)

	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	value, err := call(callCtx)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return value, fmt.Errorf("%w: %w", types.ErrTimeout, err)
	}

	return value, err
}

// withTimeoutErr is withTimeout for calls without a result.
func withTimeoutErr(ctx context.Context, timeout time.Duration, call func(context.Context) error) error {
	_, err := withTimeout(ctx, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, call(ctx)
	})

	return err
}

// engineError classifies a failed engine call. Details stay server-side.
func engineError(step error, err error) error {
	wrapped := fmt.Errorf("%w: %w", step, err)

	if errors.Is(err, types.ErrTimeout) {
		return types.NewUpdateError(types.ErrTimeout, "Engine call timed out", wrapped)
	}

	return types.NewUpdateError(types.ErrEngine, "Internal server error", wrapped)
}
