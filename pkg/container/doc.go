// Package container implements the redock engine collaborator on top of the Docker API.
//
// It lists and inspects running containers, pulls and inspects images, and
// stops, removes and runs containers. Every call honours the caller's context
// so the recreate pipeline can bound each engine call.
//
// Key components:
//   - NewClient: Builds a client from DOCKER_HOST, DOCKER_TLS_VERIFY and DOCKER_API_VERSION.
//   - Container: types.Container backed by a container inspect response.
//   - ListSourceContainers / StopSourceContainer / RemoveSourceContainer: Old container side.
//   - StartTargetContainer: Creates and starts the replacement.
//
// Usage example:
//
//	cli := container.NewClient(container.ClientOptions{StopTimeout: 10 * time.Second})
//	containers, err := cli.ListRunningContainers(ctx)
package container
