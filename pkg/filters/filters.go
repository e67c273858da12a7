package filters

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/redock/pkg/compose"
	"github.com/nicholas-fedor/redock/pkg/types"
)

// ErrAmbiguous indicates more than one running container matched a compose service.
var ErrAmbiguous = errors.New("multiple containers match compose service")

// NoFilter allows all containers through.
//
// Returns:
//   - bool: Always true.
func NoFilter(c types.FilterableContainer) bool {
	logrus.WithField("container", c.Name()).Debug("No filter applied")

	return true
}

// FilterByComposeService selects containers belonging to a compose project and service.
//
// Containers lacking either compose label never match.
//
// Parameters:
//   - project: Compose project name.
//   - service: Compose service name.
//   - baseFilter: Base filter to chain.
//
// Returns:
//   - types.Filter: Filter function matching both labels and applying base filter.
func FilterByComposeService(project, service string, baseFilter types.Filter) types.Filter {
	return func(c types.FilterableContainer) bool {
		if !compose.IsService(c.Labels(), project, service) {
			return false
		}

		logrus.WithFields(logrus.Fields{
			"container": c.Name(),
			"project":   project,
			"service":   service,
		}).Debug("Container matched compose service")

		return baseFilter(c)
	}
}

// Locate returns the first container, in listing order, running the given compose service.
//
// A missing container is not an error. When several containers match, the
// first one is returned and the others are logged, unless strict is set, in
// which case a Conflict is returned instead.
//
// Parameters:
//   - containers: Running containers in engine listing order.
//   - project: Compose project name.
//   - service: Compose service name.
//   - strict: Reject ambiguous matches.
//
// Returns:
//   - types.Container: Matching container, or nil when none matches.
//   - error: Non-nil only for an ambiguous match in strict mode.
func Locate(
	containers []types.Container,
	project, service string,
	strict bool,
) (types.Container, error) {
	filter := FilterByComposeService(project, service, NoFilter)

	var matches []types.Container

	for _, c := range containers {
		if filter(c) {
			matches = append(matches, c)
		}
	}

	if len(matches) == 0 {
		return nil, nil //nolint:nilnil // absence is a valid outcome, not an error
	}

	if len(matches) > 1 {
		names := make([]string, 0, len(matches))
		replicas := make([]string, 0, len(matches))

		for _, c := range matches {
			names = append(names, c.Name())
			replicas = append(replicas, compose.GetContainerNumber(c.Labels()))
		}

		clog := logrus.WithFields(logrus.Fields{
			"project":    project,
			"service":    service,
			"containers": names,
			"replicas":   replicas,
		})

		if strict {
			clog.Warn("Refusing to pick between containers matching compose service")

			return nil, types.NewUpdateError(types.ErrConflict, "Multiple containers match", ErrAmbiguous)
		}

		clog.WithField("container", names[0]).Warn("Multiple containers match compose service, using the first")
	}

	return matches[0], nil
}
