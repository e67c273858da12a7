// Package registry provides the registry side of image pulls in redock.
// It resolves credentials for an image reference and builds Docker pull options.
//
// Key components:
//   - GetPullOptions: Builds image.PullOptions with encoded credentials.
//   - EncodedAuth: Resolves credentials from REPO_USER/REPO_PASS or the Docker config file.
//   - helpers: Registry address parsing.
//
// Usage example:
//
//	opts, err := registry.GetPullOptions("ghcr.io/acme/web:1.4")
//	if err != nil {
//	    logrus.WithError(err).Error("Failed to get pull options")
//	}
//	rc, err := api.ImagePull(ctx, "ghcr.io/acme/web:1.4", opts)
package registry
