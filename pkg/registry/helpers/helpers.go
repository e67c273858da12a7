// Package helpers provides registry reference parsing for redock.
package helpers

import (
	"errors"
	"fmt"

	"github.com/distribution/reference"
)

// Domains for Docker Hub, the default registry.
const (
	DefaultRegistryDomain = "docker.io"
	DefaultRegistryHost   = "index.docker.io"
)

// errParseReference indicates an image reference could not be parsed.
var errParseReference = errors.New("failed to parse image reference")

// GetRegistryAddress extracts the registry address from an image reference.
//
// Docker Hub's domain is mapped to the host its credentials are stored under.
//
// Parameters:
//   - imageRef: Image reference.
//
// Returns:
//   - string: Registry address.
//   - error: Non-nil if the reference is invalid.
func GetRegistryAddress(imageRef string) (string, error) {
	normalizedRef, err := reference.ParseNormalizedNamed(imageRef)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errParseReference, err)
	}

	address := reference.Domain(normalizedRef)
	if address == DefaultRegistryDomain {
		address = DefaultRegistryHost
	}

	return address, nil
}

// NormalizeTag returns the familiar form of a tag reference, defaulting to "latest".
//
// Parameters:
//   - imageRef: Image reference such as "nginx" or "ghcr.io/acme/web:1.4".
//
// Returns:
//   - string: Familiar tagged reference, e.g. "nginx:latest".
//   - error: Non-nil if the reference is invalid.
func NormalizeTag(imageRef string) (string, error) {
	normalizedRef, err := reference.ParseNormalizedNamed(imageRef)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errParseReference, err)
	}

	return reference.FamiliarString(reference.TagNameOnly(normalizedRef)), nil
}
