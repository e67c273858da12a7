package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/redock/internal/actions"
	apiInternal "github.com/nicholas-fedor/redock/internal/api"
	"github.com/nicholas-fedor/redock/internal/flags"
	"github.com/nicholas-fedor/redock/internal/logging"
	"github.com/nicholas-fedor/redock/internal/meta"
	"github.com/nicholas-fedor/redock/pkg/api"
	"github.com/nicholas-fedor/redock/pkg/container"
	"github.com/nicholas-fedor/redock/pkg/metrics"
	"github.com/nicholas-fedor/redock/pkg/notifications"
	"github.com/nicholas-fedor/redock/pkg/types"
)

var (
	// client is the Docker client used for all engine calls.
	client types.Client
	// notifier reports update outcomes.
	notifier types.Notifier
	// options holds the operational settings read in preRun.
	options flags.Options
	// secretsFs is the filesystem secret files are read from.
	secretsFs = afero.NewOsFs()
	// rootCmd is the root command, populated with flags in init.
	rootCmd = NewRootCommand()
)

// RunConfig encapsulates the configuration parameters for the runMain function.
type RunConfig struct {
	Command  *cobra.Command       // Executed command, for startup message flags.
	Client   types.Client         // Docker engine client.
	Notifier types.Notifier       // Outcome notifier.
	Options  flags.Options        // Operational settings.
	APIKey   api.KeyProvider      // API key lookup.
	Registry *prometheus.Registry // Registry for update and runtime collectors.
	Server   []api.HTTPServer     // Optional server replacing the real one in tests.
}

// NewRootCommand creates and configures the root command for the redock CLI.
//
// Returns:
//   - *cobra.Command: The root command, ready for flag registration and execution.
func NewRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "redock",
		Short: "Recreates compose services on demand when their image changes",
		Long: "\nRedock serves GET /update/{project}/{service}. Each call pulls the image tag of the" +
			"\nservice's running container and, if it changed, recreates the container from it.",
		Run:    run,
		PreRun: preRun,
		Args:   cobra.NoArgs,
	}
}

// init registers command-line flags for the root command during package initialization.
func init() {
	flags.SetDefaults()
	flags.RegisterDockerFlags(rootCmd)
	flags.RegisterSystemFlags(rootCmd)
	flags.RegisterNotificationFlags(rootCmd)
}

// Execute runs the root command and manages any errors encountered during its execution.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("Failed to execute root command")
	}
}

// preRun prepares logging, the Docker environment, the client and the notifier.
//
// Parameters:
//   - cmd: The cobra.Command instance being executed, providing access to parsed flags.
//   - _: Unused positional arguments.
func preRun(cmd *cobra.Command, _ []string) {
	flagsSet := cmd.PersistentFlags()
	flags.ProcessFlagAliases(flagsSet)

	// Setup logging based on flags such as --debug, --trace, and --log-format.
	if err := flags.SetupLogging(flagsSet); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize logging")
	}

	flags.GetSecretsFromFiles(secretsFs, cmd)
	options = flags.ReadFlags(cmd)

	if err := validateOptions(cmd, options); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	// Set Docker environment variables (e.g., DOCKER_HOST) based on flags for client initialization.
	if err := flags.EnvConfig(cmd); err != nil {
		logrus.WithError(err).Fatal("Failed to configure Docker environment")
	}

	client = container.NewClient(container.ClientOptions{
		RemoveVolumes: options.RemoveVolumes,
		StopTimeout:   options.StopTimeout,
	})

	notifier = notifications.NewNotifier(cmd)
}

// run serves the HTTP API until SIGINT or SIGTERM, then exits with runMain's status.
//
// Parameters:
//   - c: The cobra.Command instance being executed.
//   - _: Unused positional arguments.
func run(c *cobra.Command, _ []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitCode := runMain(ctx, RunConfig{
		Command:  c,
		Client:   client,
		Notifier: notifier,
		Options:  options,
		APIKey:   flags.APIKeyProvider(secretsFs),
		Registry: newRegistry(),
	})
	if exitCode != 0 {
		logrus.WithField("exit_code", exitCode).Debug("Exiting with non-zero status")
		stop()
		os.Exit(exitCode)
	}
}

// newRegistry creates the Prometheus registry with the Go runtime and process collectors.
func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return registry
}

// runMain wires the update pipeline and serves the HTTP API until ctx is cancelled.
//
// Parameters:
//   - ctx: Lifetime of the server.
//   - cfg: The RunConfig struct containing all collaborators and settings.
//
// Returns:
//   - int: An exit code (0 after a clean shutdown, 1 for failure).
func runMain(ctx context.Context, cfg RunConfig) int {
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	updateMetrics, err := metrics.NewWithRegistry(registry)
	if err != nil {
		logrus.WithError(err).Error("Failed to register metrics")

		return 1
	}
	defer updateMetrics.Shutdown()

	if cfg.Notifier != nil {
		defer cfg.Notifier.Close()
	}

	recreator := actions.NewRecreator(cfg.Client, cfg.Notifier, updateMetrics, cfg.Options.LockTimeout)

	logging.WriteStartupMessage(cfg.Command, cfg.Client, cfg.Notifier, logging.StartupInfo{
		Version:       meta.Version,
		ListenAddr:    cfg.Options.ListenAddr,
		EnableMetrics: cfg.Options.EnableMetrics,
		Timeout:       cfg.Options.Timeout,
		LockTimeout:   cfg.Options.LockTimeout,
	})

	err = apiInternal.SetupAndStartAPI(ctx, apiInternal.Config{
		Addr:          cfg.Options.ListenAddr,
		EnableMetrics: cfg.Options.EnableMetrics,
		StrictMatch:   cfg.Options.StrictMatch,
		Timeout:       cfg.Options.Timeout,
	}, apiInternal.Dependencies{
		APIKey:   cfg.APIKey,
		Updater:  recreator,
		Gatherer: registry,
		Metrics:  updateMetrics,
	}, cfg.Server...)
	if err != nil {
		return 1
	}

	logrus.Info("Shut down HTTP API")

	return 0
}

// validateOptions rejects settings the update pipeline cannot honour.
//
// Parameters:
//   - cmd: Command carrying the http-api-host flag.
//   - opts: Settings read from the flags.
//
// Returns:
//   - error: Non-nil for a negative duration or a host that is not an IP address.
func validateOptions(cmd *cobra.Command, opts flags.Options) error {
	if opts.Timeout < 0 || opts.StopTimeout < 0 || opts.LockTimeout < 0 {
		return errNegativeTimeout
	}

	apiHost, _ := cmd.PersistentFlags().GetString("http-api-host")
	if apiHost != "" && net.ParseIP(apiHost) == nil {
		return fmt.Errorf("%w: %q", errInvalidAPIHost, apiHost)
	}

	return nil
}
