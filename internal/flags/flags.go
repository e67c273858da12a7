package flags

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DockerAPIMinVersion specifies the minimum Docker API version required by redock.
const DockerAPIMinVersion string = "1.44"

// APIKeyEnv is the environment variable holding the API key, or a path to a file containing it.
const APIKeyEnv = "API_KEY"

// Defaults for the timing flags.
const (
	defaultStopTimeout   = 10 * time.Second
	defaultEngineTimeout = 2 * time.Minute
	defaultLockTimeout   = time.Minute
)

// errInvalidLogFormat indicates an invalid log format was specified.
var errInvalidLogFormat = errors.New("invalid log format specified")

// errInvalidLogLevel indicates an invalid log level was specified.
var errInvalidLogLevel = errors.New("invalid log level specified")

// errSetEnvFailed indicates a failure to set an environment variable.
var errSetEnvFailed = errors.New("failed to set environment variable")

// errOpenFileFailed indicates a failure to open a file for reading secrets.
var errOpenFileFailed = errors.New("failed to open secret file")

// errReplaceSliceFailed indicates a failure to replace a slice value in a flag.
var errReplaceSliceFailed = errors.New("failed to replace slice value in flag")

// errReadFileFailed indicates a failure to read a file’s contents.
var errReadFileFailed = errors.New("failed to read secret file")

// errSetFlagFailed indicates a failure to read or set a flag’s value.
var errSetFlagFailed = errors.New("failed to set flag value")

// errInvalidFlagName indicates an invalid flag name was provided.
var errInvalidFlagName = errors.New("invalid flag name provided")

// errNotSliceValue indicates a flag does not support slice values.
var errNotSliceValue = errors.New("flag does not support slice values")

// RegisterDockerFlags adds flags used directly by the Docker API client to the root command.
func RegisterDockerFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringP("host", "H", envString("DOCKER_HOST"), "daemon socket to connect to")
	flags.BoolP("tlsverify", "v", envBool("DOCKER_TLS_VERIFY"), "use TLS and verify the remote")
	flags.StringP(
		"api-version",
		"a",
		envString("DOCKER_API_VERSION"),
		"api version to use by docker client",
	)
}

// RegisterSystemFlags adds flags that control the HTTP API, updates and logging to the root command.
func RegisterSystemFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.String(
		"http-api-host",
		envString("REDOCK_HTTP_API_HOST"),
		"Address the HTTP API listens on (all interfaces when empty)")

	flags.String(
		"http-api-port",
		envString("REDOCK_HTTP_API_PORT"),
		"Port the HTTP API listens on")

	flags.Bool(
		"http-api-metrics",
		envBool("REDOCK_HTTP_API_METRICS"),
		"Serve Prometheus metrics on /metrics (requires the API key)")

	flags.Duration(
		"timeout",
		envDuration("REDOCK_TIMEOUT"),
		"Upper bound for each Docker engine call made by an update")

	flags.DurationP(
		"stop-timeout",
		"t",
		envDuration("REDOCK_STOP_TIMEOUT"),
		"Timeout before a container is forcefully stopped")

	flags.Duration(
		"lock-timeout",
		envDuration("REDOCK_LOCK_TIMEOUT"),
		"How long a request waits for another update of the same service")

	flags.Bool(
		"strict-match",
		envBool("REDOCK_STRICT_MATCH"),
		"Reject services matched by more than one running container")

	flags.Bool(
		"remove-volumes",
		envBool("REDOCK_REMOVE_VOLUMES"),
		"Remove anonymous volumes of replaced containers")

	flags.Bool(
		"no-startup-message",
		envBool("REDOCK_NO_STARTUP_MESSAGE"),
		"Prevents redock from logging a startup message")

	flags.StringP(
		"porcelain",
		"P",
		envString("REDOCK_PORCELAIN"),
		`Write session results to stdout using a stable versioned format. Supported values: "v1"`)

	flags.String(
		"log-format",
		envString("REDOCK_LOG_FORMAT"),
		"Sets what logging format to use for console output. Possible values: Auto, LogFmt, Pretty, JSON")

	flags.String(
		"log-level",
		envString("REDOCK_LOG_LEVEL"),
		"The maximum log level that will be written to STDERR. Possible values: panic, fatal, error, warn, info, debug or trace")

	flags.BoolP(
		"debug",
		"d",
		envBool("REDOCK_DEBUG"),
		"Enable debug mode with verbose logging")

	flags.Bool(
		"trace",
		envBool("REDOCK_TRACE"),
		"Enable trace mode with very verbose logging - caution, exposes credentials")

	flags.Bool(
		"no-color",
		viper.IsSet("NO_COLOR"),
		"Disable ANSI color escape codes in log output")
}

// RegisterNotificationFlags adds flags for configuring notifications to the root command.
func RegisterNotificationFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringArray(
		"notification-url",
		envStringSlice("REDOCK_NOTIFICATION_URL"),
		"The shoutrrr URL to send notifications to")

	flags.String(
		"notification-template",
		envString("REDOCK_NOTIFICATION_TEMPLATE"),
		"The shoutrrr text/template for the messages")

	flags.String(
		"notification-title-tag",
		envString("REDOCK_NOTIFICATION_TITLE_TAG"),
		"Title prefix tag for notifications")

	flags.Bool(
		"notification-skip-title",
		envBool("REDOCK_NOTIFICATION_SKIP_TITLE"),
		"Do not pass the title param to notifications")

	flags.String(
		"notifications-hostname",
		envString("REDOCK_NOTIFICATIONS_HOSTNAME"),
		"Custom hostname for notification titles")

	flags.Bool(
		"notification-log-stdout",
		envBool("REDOCK_NOTIFICATION_LOG_STDOUT"),
		"Write notification logs to stdout instead of logging (to stderr)")
}

// envString retrieves a string value from an environment variable via Viper.
func envString(key string) string {
	viper.MustBindEnv(key)

	return viper.GetString(key)
}

// envStringSlice retrieves a string slice from an environment variable via Viper.
func envStringSlice(key string) []string {
	viper.MustBindEnv(key)

	return viper.GetStringSlice(key)
}

// envBool retrieves a boolean value from an environment variable via Viper.
func envBool(key string) bool {
	viper.MustBindEnv(key)

	return viper.GetBool(key)
}

// envDuration retrieves a duration value from an environment variable via Viper.
func envDuration(key string) time.Duration {
	viper.MustBindEnv(key)

	return viper.GetDuration(key)
}

// SetDefaults configures default values for environment variables.
func SetDefaults() {
	viper.AutomaticEnv()
	viper.SetDefault("DOCKER_HOST", "unix:///var/run/docker.sock")
	viper.SetDefault("DOCKER_API_VERSION", DockerAPIMinVersion)
	viper.SetDefault("REDOCK_HTTP_API_PORT", "8080")
	viper.SetDefault("REDOCK_TIMEOUT", defaultEngineTimeout)
	viper.SetDefault("REDOCK_STOP_TIMEOUT", defaultStopTimeout)
	viper.SetDefault("REDOCK_LOCK_TIMEOUT", defaultLockTimeout)
	viper.SetDefault("REDOCK_NOTIFICATION_URL", []string{})
	viper.SetDefault("REDOCK_LOG_LEVEL", "info")
	viper.SetDefault("REDOCK_LOG_FORMAT", "auto")
}

// EnvConfig sets environment variables based on Docker-related flags so the
// Docker client picks them up through FromEnv.
//
// Parameters:
//   - cmd: Command carrying the Docker flags.
//
// Returns:
//   - error: Non-nil if a flag is missing or the environment cannot be set.
func EnvConfig(cmd *cobra.Command) error {
	flags := cmd.PersistentFlags()

	host, err := flags.GetString("host")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	tls, err := flags.GetBool("tlsverify")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	version, err := flags.GetString("api-version")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if err = setEnvOptStr("DOCKER_HOST", host); err != nil {
		return err
	}

	if err = setEnvOptBool("DOCKER_TLS_VERIFY", tls); err != nil {
		return err
	}

	return setEnvOptStr("DOCKER_API_VERSION", version)
}

// Options holds the operational settings read from the flags.
type Options struct {
	ListenAddr    string        // HTTP API listen address.
	EnableMetrics bool          // Serve /metrics.
	Timeout       time.Duration // Bound for each engine call.
	StopTimeout   time.Duration // Grace period before a container is killed.
	LockTimeout   time.Duration // Wait bound for a busy service.
	StrictMatch   bool          // Reject ambiguous services.
	RemoveVolumes bool          // Remove anonymous volumes with the container.
}

// ReadFlags retrieves the operational flags used in redock's main flow, exiting on error.
//
// Parameters:
//   - cmd: Root command.
//
// Returns:
//   - Options: Parsed settings.
func ReadFlags(cmd *cobra.Command) Options {
	flags := cmd.PersistentFlags()

	var (
		opts Options
		err  error
		host string
		port string
	)

	if host, err = flags.GetString("http-api-host"); err != nil {
		logrus.Fatal(err)
	}

	if port, err = flags.GetString("http-api-port"); err != nil {
		logrus.Fatal(err)
	}

	opts.ListenAddr = net.JoinHostPort(host, port)

	if opts.EnableMetrics, err = flags.GetBool("http-api-metrics"); err != nil {
		logrus.Fatal(err)
	}

	if opts.Timeout, err = flags.GetDuration("timeout"); err != nil {
		logrus.Fatal(err)
	}

	if opts.StopTimeout, err = flags.GetDuration("stop-timeout"); err != nil {
		logrus.Fatal(err)
	}

	if opts.LockTimeout, err = flags.GetDuration("lock-timeout"); err != nil {
		logrus.Fatal(err)
	}

	if opts.StrictMatch, err = flags.GetBool("strict-match"); err != nil {
		logrus.Fatal(err)
	}

	if opts.RemoveVolumes, err = flags.GetBool("remove-volumes"); err != nil {
		logrus.Fatal(err)
	}

	return opts
}

// setEnvOptStr sets an environment variable to a specified string value if needed.
func setEnvOptStr(env string, opt string) error {
	if opt == "" || opt == os.Getenv(env) {
		return nil
	}

	if err := os.Setenv(env, opt); err != nil {
		return fmt.Errorf("%w: %s: %w", errSetEnvFailed, env, err)
	}

	return nil
}

// setEnvOptBool sets an environment variable to "1" if the boolean is true.
func setEnvOptBool(env string, opt bool) error {
	if opt {
		return setEnvOptStr(env, "1")
	}

	return nil
}

// APIKeyProvider returns a function resolving the API key on every call.
//
// The key comes from the API_KEY environment variable. When its value names
// an existing file, the trimmed file content is used instead, so the key can
// be mounted as a secret. Read failures are logged and yield an empty key.
//
// Parameters:
//   - fs: Filesystem holding secret files.
//
// Returns:
//   - func() string: Key lookup, empty when unset.
func APIKeyProvider(fs afero.Fs) func() string {
	viper.MustBindEnv(APIKeyEnv)

	return func() string {
		value := viper.GetString(APIKeyEnv)
		if value == "" || !isFilePath(fs, value) {
			return value
		}

		content, err := afero.ReadFile(fs, value)
		if err != nil {
			logrus.WithError(err).WithField("path", value).Error("Failed to read API key file")

			return ""
		}

		return strings.TrimSpace(string(content))
	}
}

// GetSecretsFromFiles replaces flag values with file contents if they reference files.
//
// Parameters:
//   - fs: Filesystem holding secret files.
//   - rootCmd: Root command.
func GetSecretsFromFiles(fs afero.Fs, rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	secrets := []string{
		"notification-url",
	}
	for _, secret := range secrets {
		if err := getSecretFromFile(fs, flags, secret); err != nil {
			logrus.Fatalf("failed to get secret from flag %v: %s", secret, err)
		}
	}
}

// getSecretFromFile updates a flag’s value with file contents if it references a file.
// Slice flags take one value per non-empty line.
func getSecretFromFile(fs afero.Fs, flags *pflag.FlagSet, secret string) error {
	flag := flags.Lookup(secret)
	if flag == nil {
		return fmt.Errorf("%w: %q", errInvalidFlagName, secret)
	}

	if sliceValue, ok := flag.Value.(pflag.SliceValue); ok {
		oldValues := sliceValue.GetSlice()
		values := make([]string, 0, len(oldValues))

		for _, value := range oldValues {
			if value == "" || !isFilePath(fs, value) {
				values = append(values, value)

				continue
			}

			lines, err := readLines(fs, value)
			if err != nil {
				return err
			}

			values = append(values, lines...)
		}

		if err := sliceValue.Replace(values); err != nil {
			return fmt.Errorf("%w: %w", errReplaceSliceFailed, err)
		}

		return nil
	}

	value := flag.Value.String()
	if value != "" && isFilePath(fs, value) {
		content, err := afero.ReadFile(fs, value)
		if err != nil {
			return fmt.Errorf("%w: %w", errReadFileFailed, err)
		}

		if err := flags.Set(secret, strings.TrimSpace(string(content))); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	return nil
}

// readLines returns the non-empty lines of a file.
func readLines(fs afero.Fs, path string) ([]string, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errOpenFileFailed, err)
	}
	defer file.Close()

	var lines []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errReadFileFailed, err)
	}

	return lines, nil
}

// isFilePath determines if a string likely represents a file path.
// It checks for file existence, avoiding false positives from URLs or invalid Windows paths.
func isFilePath(fs afero.Fs, path string) bool {
	firstColon := strings.IndexRune(path, ':')
	if firstColon != 1 && firstColon != -1 {
		// A colon past the drive letter position means a URL, not a path.
		return false
	}

	exists, err := afero.Exists(fs, path)

	return err == nil && exists
}

// ProcessFlagAliases synchronizes flag values based on helper flags.
// Porcelain output routes notifications to stdout; debug and trace raise the log level.
func ProcessFlagAliases(flags *pflag.FlagSet) {
	porcelain, err := flags.GetString("porcelain")
	if err != nil {
		logrus.Fatalf("Failed to get flag: %v", err)
	}

	if porcelain != "" {
		if porcelain != "v1" {
			logrus.Fatalf("Unknown porcelain version %q. Supported values: \"v1\"", porcelain)
		}

		if err = appendFlagValue(flags, "notification-url", "logger://"); err != nil {
			logrus.Errorf("Failed to set flag: %v", err)
		}

		setFlagIfDefault(flags, "notification-log-stdout", "true")

		tpl := fmt.Sprintf("porcelain.%s.summary", porcelain)
		setFlagIfDefault(flags, "notification-template", tpl)
	}

	if flagIsEnabled(flags, "debug") {
		if err := flags.Set("log-level", "debug"); err != nil {
			logrus.Errorf("Failed to set log-level flag: %v", err)
		}
	}

	if flagIsEnabled(flags, "trace") {
		if err := flags.Set("log-level", "trace"); err != nil {
			logrus.Errorf("Failed to set log-level flag: %v", err)
		}
	}
}

// SetupLogging configures the global logger based on log-related flags.
//
// Parameters:
//   - flags: Flag set carrying log-format, no-color and log-level.
//
// Returns:
//   - error: Non-nil for an unknown format or level.
func SetupLogging(flags *pflag.FlagSet) error {
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if err := configureLogFormat(logFormat, noColor); err != nil {
		return err
	}

	rawLogLevel, err := flags.GetString("log-level")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	logLevel, err := logrus.ParseLevel(rawLogLevel)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	logrus.SetLevel(logLevel)

	return nil
}

// configureLogFormat sets the logrus formatter based on the specified format and color preference.
func configureLogFormat(logFormat string, noColor bool) error {
	switch strings.ToLower(logFormat) {
	case "auto":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors:             noColor,
			EnvironmentOverrideColors: true,
		})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "logfmt":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	case "pretty":
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !noColor,
			FullTimestamp: false,
		})
	default:
		return fmt.Errorf("%w: %s", errInvalidLogFormat, logFormat)
	}

	return nil
}

// flagIsEnabled checks if a boolean flag is set to true.
// It exits with a fatal error if the flag is not defined.
func flagIsEnabled(flags *pflag.FlagSet, name string) bool {
	value, err := flags.GetBool(name)
	if err != nil {
		logrus.Fatalf("The flag %q is not defined", name)
	}

	return value
}

// appendFlagValue appends values to a slice-type flag.
func appendFlagValue(flags *pflag.FlagSet, name string, values ...string) error {
	flag := flags.Lookup(name)
	if flag == nil {
		return fmt.Errorf("%w: %q", errInvalidFlagName, name)
	}

	flagValues, ok := flag.Value.(pflag.SliceValue)
	if !ok {
		return fmt.Errorf("%w: %q", errNotSliceValue, name)
	}

	for _, value := range values {
		if err := flagValues.Append(value); err != nil {
			logrus.Errorf("Failed to append value to flag %q: %v", name, err)
		}
	}

	return nil
}

// setFlagIfDefault sets a flag’s value if it hasn’t been explicitly changed.
func setFlagIfDefault(flags *pflag.FlagSet, name string, value string) {
	if flags.Changed(name) {
		return
	}

	if err := flags.Set(name, value); err != nil {
		logrus.Errorf("Failed to set flag: %v", err)
	}
}
