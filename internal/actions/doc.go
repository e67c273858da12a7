// Package actions implements the recreate-on-new-image operation behind the
// update endpoint.
//
// A Recreator locates the running container of a compose service, pulls the
// first tag of its current image and, when the pull produced a different
// image, replaces the container with one running the new image. Settings the
// operator customized away from the old image's defaults are carried over;
// everything else is left to the new image.
//
// Requests for the same project and service are serialized with a KeyedLock.
// Every engine call is bounded by the request's timeout.
//
// Usage example:
//
//	recreator := actions.NewRecreator(client, notifier, metrics.Default(), time.Minute)
//	result, err := recreator.Update(ctx, types.UpdateParams{
//	    Project: "shop",
//	    Service: "web",
//	    Timeout: 2 * time.Minute,
//	})
package actions
