package registry

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	dockerCliConfig "github.com/docker/cli/cli/config"
	dockerConfigConfigfile "github.com/docker/cli/cli/config/configfile"
	dockerConfigCredentials "github.com/docker/cli/cli/config/credentials"
	dockerConfigTypes "github.com/docker/cli/cli/config/types"

	"github.com/nicholas-fedor/redock/pkg/registry/helpers"
)

// Environment variables holding static registry credentials.
const (
	repoUserEnv     = "REPO_USER"
	repoPassEnv     = "REPO_PASS"
	dockerConfigEnv = "DOCKER_CONFIG"
)

// Errors for registry authentication operations.
var (
	// errUnsetRegAuthVars indicates REPO_USER and REPO_PASS are not both set.
	errUnsetRegAuthVars = errors.New("registry auth environment variables (REPO_USER, REPO_PASS) not set")
	// errFailedGetRegistryAddress indicates a failure to extract the registry address from an image reference.
	errFailedGetRegistryAddress = errors.New("failed to get registry address")
	// errFailedLoadDockerConfig indicates a failure to load the Docker configuration file.
	errFailedLoadDockerConfig = errors.New("failed to load Docker config")
	// errFailedMarshalAuthConfig indicates a failure to marshal the auth config to JSON.
	errFailedMarshalAuthConfig = errors.New("failed to marshal auth config to JSON")
)

// EncodedAuth resolves encoded credentials for an image reference.
//
// Environment credentials take precedence over the Docker config file.
//
// Parameters:
//   - ref: Image reference.
//
// Returns:
//   - string: Encoded credentials, empty when none are configured.
//   - error: Non-nil if the config file lookup fails.
func EncodedAuth(ref string) (string, error) {
	auth, err := EncodedEnvAuth()
	if err == nil {
		return auth, nil
	}

	logrus.WithField("image", ref).Debug("Environment auth not available, trying config file")

	return EncodedConfigAuth(ref)
}

// EncodedEnvAuth encodes REPO_USER and REPO_PASS when both are set.
//
// Returns:
//   - string: Encoded credentials.
//   - error: errUnsetRegAuthVars when either variable is empty.
func EncodedEnvAuth() (string, error) {
	username := os.Getenv(repoUserEnv)
	password := os.Getenv(repoPassEnv)

	if username == "" || password == "" {
		return "", errUnsetRegAuthVars
	}

	logrus.WithField("username", username).Debug("Loaded auth credentials from environment")

	return EncodeAuth(dockerConfigTypes.AuthConfig{
		Username: username,
		Password: password,
	})
}

// EncodedConfigAuth looks up credentials for the image's registry in the Docker config file.
//
// The config directory comes from DOCKER_CONFIG, defaulting to "/" where a
// config.json is typically mounted into the redock container.
//
// Parameters:
//   - imageRef: Image reference.
//
// Returns:
//   - string: Encoded credentials, empty when the registry has no entry.
//   - error: Non-nil if the reference or config file cannot be read.
func EncodedConfigAuth(imageRef string) (string, error) {
	server, err := helpers.GetRegistryAddress(imageRef)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errFailedGetRegistryAddress, err)
	}

	configDir := os.Getenv(dockerConfigEnv)
	if configDir == "" {
		configDir = "/"
	}

	clog := logrus.WithFields(logrus.Fields{
		"server":     server,
		"config_dir": configDir,
	})

	configFile, err := dockerCliConfig.Load(configDir)
	if err != nil {
		clog.WithError(err).Debug("Failed to load Docker config")

		return "", fmt.Errorf("%w: %w", errFailedLoadDockerConfig, err)
	}

	auth, _ := CredentialsStore(*configFile).Get(server)
	if auth == (dockerConfigTypes.AuthConfig{}) {
		clog.Debug("No credentials found in config")

		return "", nil
	}

	clog.WithField("username", auth.Username).Debug("Loaded auth credentials from config")

	return EncodeAuth(auth)
}

// CredentialsStore returns the native store named in the config, or the file store.
//
// Parameters:
//   - configFile: Loaded Docker config.
//
// Returns:
//   - dockerConfigCredentials.Store: Credentials store.
func CredentialsStore(configFile dockerConfigConfigfile.ConfigFile) dockerConfigCredentials.Store {
	if configFile.CredentialsStore != "" {
		return dockerConfigCredentials.NewNativeStore(&configFile, configFile.CredentialsStore)
	}

	return dockerConfigCredentials.NewFileStore(&configFile)
}

// EncodeAuth encodes credentials for the X-Registry-Auth header.
//
// Parameters:
//   - authConfig: Credentials.
//
// Returns:
//   - string: URL-safe base64 of the JSON encoding.
//   - error: Non-nil if marshalling fails.
func EncodeAuth(authConfig dockerConfigTypes.AuthConfig) (string, error) {
	buf, err := json.Marshal(authConfig)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errFailedMarshalAuthConfig, err)
	}

	return base64.URLEncoding.EncodeToString(buf), nil
}
