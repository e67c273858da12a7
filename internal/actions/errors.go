package actions

import "errors"

// Errors for the steps of an update.
var (
	// errListContainersFailed flags failures in listing running containers.
	errListContainersFailed = errors.New("failed to list containers")
	// errInspectImageFailed flags failures in reading the container's current image.
	errInspectImageFailed = errors.New("failed to inspect current image")
	// errPullImageFailed flags failures in pulling the current image's tag.
	errPullImageFailed = errors.New("failed to pull image")
	// errStopContainerFailed flags failures in stopping the old container.
	errStopContainerFailed = errors.New("failed to stop container")
	// errRemoveContainerFailed flags failures in removing the old container.
	errRemoveContainerFailed = errors.New("failed to remove container")
	// errRunContainerFailed flags failures in creating or starting the new container.
	errRunContainerFailed = errors.New("failed to run container")
)

// Errors for update serialization.
var (
	// errLockTimeout indicates the lock wait exceeded its bound.
	errLockTimeout = errors.New("timed out waiting for update lock")
	// errLockCancelled indicates the caller went away while waiting for the lock.
	errLockCancelled = errors.New("cancelled while waiting for update lock")
)
