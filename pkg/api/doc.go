// Package api provides the HTTP server in front of redock's update operation.
//
// Key components:
//   - API: Owns the route table, the health endpoint and the server lifecycle.
//   - RequireAPIKey: Checks the X-Api-Key header against the configured key.
//   - AccessLog: Logs every request except health checks.
//
// Usage example:
//
//	server := api.New(flags.APIKeyProvider(afero.NewOsFs()), ":8080")
//	server.RegisterHandler(handler.Path, server.RequireAPIKey(http.HandlerFunc(handler.Handle)))
//	if err := server.Start(ctx, true); err != nil {
//	    logrus.WithError(err).Error("API server failed")
//	}
package api
