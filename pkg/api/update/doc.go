// Package update provides the HTTP handler that recreates a compose service
// container on a newer image.
//
// Usage example:
//
//	handler := update.New(recreator, false, 2*time.Minute)
//	server.RegisterHandler(handler.Path, server.RequireAPIKey(http.HandlerFunc(handler.Handle)))
package update
