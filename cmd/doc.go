// Package cmd contains the command-line interface (CLI) definitions and execution logic for redock.
// It provides the root command, which reads the configuration, connects to the Docker daemon and
// serves the HTTP API until the process is interrupted.
//
// Key components:
//   - rootCmd: Root command serving the update API.
//   - RunConfig: Struct for configuring execution.
//
// Usage example:
//   - Run the CLI from main.go:
//     cmd.Execute()
//
// The package integrates with actions, container, notifications, metrics and flags packages,
// using Cobra for CLI parsing and logrus for logging.
package cmd
