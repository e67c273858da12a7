// Package flags manages command-line flags and environment variables for redock configuration.
// It configures the Docker connection, the HTTP API, update behaviour and notifications via Cobra and Viper.
//
// Key components:
//   - RegisterDockerFlags: Adds Docker API client flags.
//   - RegisterSystemFlags: Adds HTTP API, update and logging flags.
//   - RegisterNotificationFlags: Adds notification settings.
//   - SetupLogging: Configures logrus based on flags.
//   - APIKeyProvider: Resolves the API key on every request.
//
// Usage example:
//
//	cmd := &cobra.Command{}
//	flags.SetDefaults()
//	flags.RegisterSystemFlags(cmd)
//	err := flags.SetupLogging(cmd.PersistentFlags())
//	if err != nil {
//	    logrus.WithError(err).Fatal("Logging setup failed")
//	}
package flags
