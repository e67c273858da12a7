package container

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	dockerImageType "github.com/docker/docker/api/types/image"
	dockerClient "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"

	"github.com/nicholas-fedor/redock/pkg/registry"
	"github.com/nicholas-fedor/redock/pkg/registry/helpers"
	"github.com/nicholas-fedor/redock/pkg/types"
)

// imageClient manages image-related operations for redock.
type imageClient struct {
	api dockerClient.APIClient
}

// newImageClient creates a new imageClient instance.
//
// Parameters:
//   - api: Docker API client.
//
// Returns:
//   - imageClient: Initialized client for image operations.
func newImageClient(api dockerClient.APIClient) imageClient {
	return imageClient{api: api}
}

// GetImage inspects a local image by ID or reference.
//
// Parameters:
//   - ctx: Context bounding the engine call.
//   - ref: Image ID or reference.
//
// Returns:
//   - types.Image: Inspected image.
//   - error: Non-nil if inspection fails; a missing image keeps its not-found classification.
func (c imageClient) GetImage(ctx context.Context, ref string) (types.Image, error) {
	imageInfo, err := c.api.ImageInspect(ctx, ref)
	if err != nil {
		logrus.WithError(err).WithField("image", ref).Debug("Failed to inspect image")

		return types.Image{}, fmt.Errorf("%w: %s: %w", errInspectImageFailed, ref, err)
	}

	return toImage(imageInfo), nil
}

// PullImage pulls a tag from its registry and inspects the result.
//
// The progress stream is drained to completion; an error reported inside the
// stream fails the pull.
//
// Parameters:
//   - ctx: Context bounding the engine calls.
//   - tag: Tagged image reference.
//
// Returns:
//   - types.Image: Local image the tag points at after the pull.
//   - error: Non-nil if the pull or the inspection fails.
func (c imageClient) PullImage(ctx context.Context, tag string) (types.Image, error) {
	clog := logrus.WithField("image", tag)

	ref, err := helpers.NormalizeTag(tag)
	if err != nil {
		return types.Image{}, fmt.Errorf("%w: %s: %w", errPullImageFailed, tag, err)
	}

	opts, err := registry.GetPullOptions(ref)
	if err != nil {
		return types.Image{}, fmt.Errorf("%w: %s: %w", errPullImageFailed, ref, err)
	}

	clog.Debug("Initiating image pull")

	response, err := c.api.ImagePull(ctx, ref, opts)
	if err != nil {
		clog.WithError(err).Debug("Failed to initiate image pull")

		return types.Image{}, fmt.Errorf("%w: %s: %w", errPullImageFailed, ref, err)
	}
	defer response.Close()

	if err := drainPullResponse(response, clog); err != nil {
		return types.Image{}, fmt.Errorf("%w: %s: %w", errReadPullResponseFailed, ref, err)
	}

	clog.Debug("Image pull completed")

	return c.GetImage(ctx, ref)
}

// drainPullResponse reads the pull progress stream, forwarding it to the trace log.
func drainPullResponse(response io.Reader, clog *logrus.Entry) error {
	progress := clog.WriterLevel(logrus.TraceLevel)
	defer progress.Close()

	return jsonmessage.DisplayJSONMessagesStream(response, progress, 0, false, nil)
}

// toImage converts an inspect response into the redock image record.
func toImage(imageInfo dockerImageType.InspectResponse) types.Image {
	return types.Image{
		ID:     types.ImageID(imageInfo.ID),
		Tags:   imageInfo.RepoTags,
		Config: imageInfo.Config,
	}
}
