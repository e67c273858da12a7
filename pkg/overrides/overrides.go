package overrides

import (
	"maps"
	"slices"

	dockerContainerType "github.com/docker/docker/api/types/container"
	dockerspec "github.com/moby/docker-image-spec/specs-go/v1"

	"github.com/nicholas-fedor/redock/internal/util"
)

// Config is the subset of container settings that can be inherited from an image.
//
// The same shape describes both a container's effective values and an image's
// declared defaults.
type Config struct {
	User       string
	WorkingDir string
	Env        []string
	Labels     map[string]string
	Volumes    map[string]struct{}
	Entrypoint []string
	Cmd        []string
}

// FromContainerConfig extracts the inheritable settings of a container.
//
// Parameters:
//   - config: Container config, may be nil.
//
// Returns:
//   - Config: Extracted settings, empty when config is nil.
func FromContainerConfig(config *dockerContainerType.Config) Config {
	if config == nil {
		return Config{}
	}

	return Config{
		User:       config.User,
		WorkingDir: config.WorkingDir,
		Env:        config.Env,
		Labels:     config.Labels,
		Volumes:    config.Volumes,
		Entrypoint: config.Entrypoint,
		Cmd:        config.Cmd,
	}
}

// FromImageConfig extracts the defaults declared by an image.
//
// Parameters:
//   - config: Image config, may be nil for images that declare nothing.
//
// Returns:
//   - Config: Declared defaults, empty when config is nil.
func FromImageConfig(config *dockerspec.DockerOCIImageConfig) Config {
	if config == nil {
		return Config{}
	}

	return Config{
		User:       config.User,
		WorkingDir: config.WorkingDir,
		Env:        config.Env,
		Labels:     config.Labels,
		Volumes:    config.Volumes,
		Entrypoint: config.Entrypoint,
		Cmd:        config.Cmd,
	}
}

// Scalar returns the container value when it differs from the image default.
//
// Parameters:
//   - containerValue: Effective value.
//   - imageValue: Image default.
//
// Returns:
//   - string: containerValue, or empty when both are equal.
func Scalar(containerValue, imageValue string) string {
	if containerValue == imageValue {
		return ""
	}

	return containerValue
}

// Map returns the container entries that are not image defaults.
//
// When the image declares no entries the whole container map is carried.
//
// Parameters:
//   - containerMap: Effective entries.
//   - imageMap: Image defaults.
//
// Returns:
//   - map[string]V: Entries absent from imageMap or differing in value.
func Map[V comparable](containerMap, imageMap map[string]V) map[string]V {
	if len(imageMap) == 0 {
		return maps.Clone(containerMap)
	}

	return util.MapSubtract(containerMap, imageMap)
}

// List returns the container list unless it equals the image default.
//
// Parameters:
//   - containerList: Effective list.
//   - imageList: Image default.
//
// Returns:
//   - []string: nil when equal, else a copy of containerList.
func List(containerList, imageList []string) []string {
	if util.SliceEqual(containerList, imageList) {
		return nil
	}

	return slices.Clone(containerList)
}

// Env returns the container environment entries the image does not declare.
//
// Parameters:
//   - containerEnv: Effective "KEY=value" entries.
//   - imageEnv: Image default entries.
//
// Returns:
//   - []string: Entries of containerEnv absent from imageEnv, in container order.
func Env(containerEnv, imageEnv []string) []string {
	return util.SliceSubtract(containerEnv, imageEnv)
}

// Compute derives the override set from a container and its image defaults.
//
// Parameters:
//   - container: Effective container settings.
//   - image: Defaults of the image the container was created from.
//
// Returns:
//   - Config: Settings to pass to the replacement container.
func Compute(container, image Config) Config {
	return Config{
		User:       Scalar(container.User, image.User),
		WorkingDir: Scalar(container.WorkingDir, image.WorkingDir),
		Env:        Env(container.Env, image.Env),
		Labels:     Map(container.Labels, image.Labels),
		Volumes:    Map(container.Volumes, image.Volumes),
		Entrypoint: List(container.Entrypoint, image.Entrypoint),
		Cmd:        List(container.Cmd, image.Cmd),
	}
}
