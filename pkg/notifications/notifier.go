package notifications

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/redock/pkg/types"
)

// NewNotifier creates and returns a new Notifier, using global configuration.
//
// Parameters:
//   - c: Command carrying the notification flags.
//
// Returns:
//   - types.Notifier: Configured notifier, possibly with no services.
func NewNotifier(c *cobra.Command) types.Notifier {
	flag := c.Flags()

	urls, _ := flag.GetStringArray("notification-url")
	tplString, _ := flag.GetString("notification-template")
	stdout, _ := flag.GetBool("notification-log-stdout")

	data := GetTemplateData(c)

	logrus.WithFields(logrus.Fields{
		"services": len(urls),
		"template": tplString,
		"stdout":   stdout,
		"hostname": data.Host,
		"title":    data.Title,
	}).Debug("Creating notifier with configuration")

	return createNotifier(urls, tplString, data, stdout)
}

// GetTitle formats the title based on the passed hostname and tag.
//
// Parameters:
//   - hostname: Host name to mention, may be empty.
//   - tag: Optional prefix tag.
//
// Returns:
//   - string: Notification title.
func GetTitle(hostname string, tag string) string {
	titleBuilder := strings.Builder{}
	if tag != "" {
		titleBuilder.WriteRune('[')
		titleBuilder.WriteString(tag)
		titleBuilder.WriteRune(']')
		titleBuilder.WriteRune(' ')
	}

	titleBuilder.WriteString("Redock updates")

	if hostname != "" {
		titleBuilder.WriteString(" on ")
		titleBuilder.WriteString(hostname)
	}

	return titleBuilder.String()
}

// GetTemplateData populates the static notification data from flags and environment.
//
// Parameters:
//   - c: Command carrying the notification flags.
//
// Returns:
//   - StaticData: Title and host name.
func GetTemplateData(c *cobra.Command) StaticData {
	flag := c.Flags()

	hostname, _ := flag.GetString("notifications-hostname")
	if hostname == "" {
		hostname, _ = os.Hostname()
	}

	title := ""

	if skip, _ := flag.GetBool("notification-skip-title"); !skip {
		tag, _ := flag.GetString("notification-title-tag")
		title = GetTitle(hostname, tag)
	}

	return StaticData{
		Host:  hostname,
		Title: title,
	}
}
