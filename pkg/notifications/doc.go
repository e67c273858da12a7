// Package notifications reports update outcomes through Shoutrrr.
//
// A notifier renders each recreated or failed update with a text template and
// hands the message to a background goroutine that delivers it to every
// configured service URL. Requests that found the container already up to
// date are not reported.
//
// Usage example:
//
//	notifier := notifications.NewNotifier(cmd)
//	notifier.SendUpdate(params, result, err)
//	notifier.Close()
package notifications
