package notifications

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strings"
	"text/template"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/sirupsen/logrus"

	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/nicholas-fedor/redock/pkg/notifications/templates"
	"github.com/nicholas-fedor/redock/pkg/types"
)

// LocalLog is a logrus logger for messages about notification delivery itself.
var LocalLog = logrus.WithField("notify", "no")

// messageQueueSize bounds the number of rendered messages awaiting delivery.
const messageQueueSize = 16

// router defines the interface for sending Shoutrrr notifications.
type router interface {
	Send(message string, params *shoutrrrTypes.Params) []error
}

// shoutrrrTypeNotifier delivers update outcomes to Shoutrrr services.
type shoutrrrTypeNotifier struct {
	Urls     []string
	Router   router
	template *template.Template
	messages chan string
	done     chan bool
	params   *shoutrrrTypes.Params
	data     StaticData
}

// GetScheme extracts the scheme part of a Shoutrrr URL.
// It returns "invalid" if no scheme is found.
func GetScheme(url string) string {
	schemeEnd := strings.Index(url, ":")
	if schemeEnd <= 0 {
		return "invalid"
	}

	return url[:schemeEnd]
}

// GetNames returns a list of notification service names derived from URLs.
func (n *shoutrrrTypeNotifier) GetNames() []string {
	names := make([]string, len(n.Urls))
	for i, u := range n.Urls {
		names[i] = GetScheme(u)
	}

	return names
}

// createNotifier builds a notifier for the given service URLs and starts its
// delivery goroutine. Shoutrrr's own log goes to stdout when requested and to
// the logrus trace level otherwise.
func createNotifier(urls []string, tplString string, data StaticData, stdout bool) *shoutrrrTypeNotifier {
	tpl, err := getShoutrrrTemplate(tplString)
	if err != nil {
		logrus.Errorf(
			"Could not use configured notification template: %s. Using default template",
			err,
		)

		tpl, _ = getShoutrrrTemplate("")
	}

	notifier := &shoutrrrTypeNotifier{
		Urls:     urls,
		template: tpl,
		messages: make(chan string, messageQueueSize),
		done:     make(chan bool),
		data:     data,
		params:   &shoutrrrTypes.Params{},
	}

	if data.Title != "" {
		notifier.params.SetTitle(data.Title)
	}

	if len(urls) > 0 {
		var logger shoutrrrTypes.StdLogger
		if stdout {
			logger = log.New(os.Stdout, ``, 0)
		} else {
			logger = log.New(logrus.StandardLogger().WriterLevel(logrus.TraceLevel), "Shoutrrr: ", 0)
		}

		notifier.Router, err = shoutrrr.NewSender(logger, urls...)
		if err != nil {
			logrus.Fatalf("Failed to initialize Shoutrrr notifications: %s\n", err.Error())
		}
	}

	go sendNotifications(notifier)

	return notifier
}

// sendNotifications delivers queued messages until the queue is closed.
func sendNotifications(notifier *shoutrrrTypeNotifier) {
	for msg := range notifier.messages {
		errs := notifier.Router.Send(msg, notifier.params)

		for i, err := range errs {
			if err != nil {
				LocalLog.WithFields(logrus.Fields{
					"service": GetScheme(notifier.Urls[i]),
					"index":   i,
				}).WithError(err).Error("Failed to send shoutrrr notification")
			}
		}
	}

	notifier.done <- true
}

// buildMessage renders the template for one update outcome.
func (n *shoutrrrTypeNotifier) buildMessage(data Data) (string, error) {
	var body bytes.Buffer

	if err := n.template.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to execute notification template: %w", err)
	}

	return body.String(), nil
}

// SendUpdate queues a notification for a recreated or failed update.
// Up-to-date outcomes and notifiers without services are ignored. A full
// queue drops the message instead of delaying the update.
//
// Parameters:
//   - params: Request parameters.
//   - result: Update result, nil on failure.
//   - err: Update error, nil on success.
func (n *shoutrrrTypeNotifier) SendUpdate(params types.UpdateParams, result *types.UpdateResult, err error) {
	if n.Router == nil {
		return
	}

	if err == nil && (result == nil || !result.Recreated) {
		return
	}

	data := Data{
		StaticData: n.data,
		Project:    params.Project,
		Service:    params.Service,
	}

	if result != nil {
		data.ContainerName = result.ContainerName
		data.ImageTag = result.ImageTag
		data.OldImageID = result.OldImageID.ShortID()
		data.NewImageID = result.NewImageID.ShortID()
		data.Recreated = result.Recreated
	}

	if err != nil {
		data.Error = err.Error()
	}

	msg, buildErr := n.buildMessage(data)
	if buildErr != nil {
		LocalLog.WithError(buildErr).Error("Notification template error")

		return
	}

	if msg == "" {
		LocalLog.Debug("Skipping notification due to empty message")

		return
	}

	select {
	case n.messages <- msg:
	default:
		LocalLog.WithField("service", params.Service).Warn("Notification queue is full, dropping message")
	}
}

// Close prevents further messages from being queued and waits until all queued messages are sent.
func (n *shoutrrrTypeNotifier) Close() {
	close(n.messages)

	LocalLog.Debug("Waiting for the notification goroutine to finish")

	<-n.done
}

// getShoutrrrTemplate resolves a builtin template name or parses a custom
// template string, falling back to the default when none is configured.
func getShoutrrrTemplate(tplString string) (*template.Template, error) {
	tplBase := template.New("").Funcs(templates.Funcs)

	if builtin, found := commonTemplates[tplString]; found {
		logrus.WithField(`template`, tplString).Debug(`Using common template`)
		tplString = builtin
	}

	if tplString == "" {
		return template.Must(tplBase.Parse(commonTemplates[`default`])), nil
	}

	tpl, err := tplBase.Parse(tplString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notification template string: %w", err)
	}

	return tpl, nil
}
