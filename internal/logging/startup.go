// Package logging provides functions for logging startup information in redock.
// It reports the version, the Docker API in use, the notifier setup and the HTTP API settings.
package logging

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/redock/internal/util"
	"github.com/nicholas-fedor/redock/pkg/types"
)

// StartupInfo holds the runtime settings reported at startup.
type StartupInfo struct {
	Version       string        // Release version.
	ListenAddr    string        // HTTP API listen address.
	EnableMetrics bool          // Whether /metrics is served.
	Timeout       time.Duration // Bound for each engine call.
	LockTimeout   time.Duration // Wait bound for a busy service.
}

// WriteStartupMessage logs startup information unless --no-startup-message is set.
//
// It reports redock's version, the negotiated Docker API version, the
// configured notifiers and where the HTTP API listens.
//
// Parameters:
//   - c: The cobra.Command instance, providing access to --no-startup-message.
//   - client: The Docker client used to retrieve the API version, may be nil.
//   - notifier: The notifier whose services are listed, may be nil.
//   - info: Runtime settings to report.
func WriteStartupMessage(
	c *cobra.Command,
	client types.Client,
	notifier types.Notifier,
	info StartupInfo,
) {
	noStartupMessage, _ := c.PersistentFlags().GetBool("no-startup-message")
	if noStartupMessage {
		return
	}

	startupLog := logrus.NewEntry(logrus.StandardLogger())

	var apiVersion string
	if client != nil {
		apiVersion = client.GetVersion()
	}

	startupLog.Info("Redock ", info.Version, " using Docker API v", apiVersion)

	var notifierNames []string
	if notifier != nil {
		notifierNames = notifier.GetNames()
	}

	LogNotifierInfo(startupLog, notifierNames)
	LogUpdateSettings(startupLog, info)

	startupLog.WithField("addr", info.ListenAddr).Info("The HTTP API is enabled")

	if info.EnableMetrics {
		startupLog.Info("Metrics are served on /metrics")
	}

	// Trace output includes registry credentials and notification tokens.
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		startupLog.Warn(
			"Trace level enabled: log will include sensitive information as credentials and tokens",
		)
	}
}

// LogNotifierInfo logs details about the notification setup.
//
// Parameters:
//   - log: The logrus.Entry used to write the notification information.
//   - notifierNames: Names of the configured notification services.
func LogNotifierInfo(log *logrus.Entry, notifierNames []string) {
	if len(notifierNames) > 0 {
		log.Info("Using notifications: " + strings.Join(notifierNames, ", "))
	} else {
		log.Info("Using no notifications")
	}
}

// LogUpdateSettings logs the limits applied to update requests.
//
// Parameters:
//   - log: The logrus.Entry used to write the settings.
//   - info: Runtime settings holding the timeouts.
func LogUpdateSettings(log *logrus.Entry, info StartupInfo) {
	if info.Timeout > 0 {
		log.Info("Docker engine calls time out after " + util.FormatDuration(info.Timeout))
	} else {
		log.Info("Docker engine calls are not time limited")
	}

	if info.LockTimeout > 0 {
		log.Info("Requests wait up to " + util.FormatDuration(info.LockTimeout) + " for a running update of the same service")
	} else {
		log.Info("Requests wait for a running update of the same service until the client gives up")
	}
}
