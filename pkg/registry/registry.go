package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/docker/docker/api/types/image"
	"github.com/sirupsen/logrus"
)

// Errors for registry operations.
var (
	// errFailedGetAuth indicates a failure to retrieve authentication credentials for an image.
	errFailedGetAuth = errors.New("failed to get authentication credentials")
)

// GetPullOptions creates the options needed for pulling an image from its registry.
//
// Credentials are optional: an image with none configured is pulled anonymously.
//
// Parameters:
//   - imageName: Image reference to pull.
//
// Returns:
//   - image.PullOptions: Pull options, with RegistryAuth set when credentials exist.
//   - error: Non-nil if credential lookup fails.
func GetPullOptions(imageName string) (image.PullOptions, error) {
	clog := logrus.WithField("image", imageName)

	auth, err := EncodedAuth(imageName)
	if err != nil {
		clog.WithError(err).Debug("Failed to get authentication credentials")

		return image.PullOptions{}, fmt.Errorf("%w: %w", errFailedGetAuth, err)
	}

	if auth == "" {
		clog.Debug("No authentication credentials found, pulling anonymously")

		return image.PullOptions{}, nil
	}

	clog.Debug("Configured authenticated pull")

	return image.PullOptions{
		RegistryAuth:  auth,
		PrivilegeFunc: DefaultAuthHandler,
	}, nil
}

// DefaultAuthHandler is called by the Docker client when the registry rejects the credentials.
//
// Retrying with the same credentials cannot succeed, so it retries anonymously.
//
// Returns:
//   - string: Empty auth.
//   - error: Always nil.
func DefaultAuthHandler(_ context.Context) (string, error) {
	logrus.Debug("Authentication rejected, retrying without credentials")

	return "", nil
}
