package types

import (
	dockerspec "github.com/moby/docker-image-spec/specs-go/v1"
)

// Image is an inspected image as seen by the recreate pipeline.
type Image struct {
	// ID is the content-addressed image ID.
	ID ImageID
	// Tags holds the repository tags in the order the engine reports them.
	Tags []string
	// Config carries the defaults declared by the image. It may be nil.
	Config *dockerspec.DockerOCIImageConfig
}

// FirstTag returns the first repository tag of the image.
//
// Returns:
//   - string: First tag, or empty when the image has none.
func (i Image) FirstTag() string {
	if len(i.Tags) == 0 {
		return ""
	}

	return i.Tags[0]
}
