package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/medipulse/pkg/logging"
)

const defaultFromName = "MediPulse"

// ErrEmailNotConfigured is returned by a sender that has no provider behind it.
var ErrEmailNotConfigured = errors.New("notify: email provider not configured")

// EmailSender delivers a single message. SendGrid, SES and the log-only
// sender are interchangeable.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is one outgoing email. HTML is optional.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    string
}

// notificationEmail renders n for the patient it concerns. A trailing
// "Join Link: <url>" becomes a clickable link in the HTML part.
func notificationEmail(to, toName string, n Notification) EmailMessage {
	body := n.Message
	htmlBody := html.EscapeString(body)
	if i := strings.Index(body, joinLinkLabel); i >= 0 {
		link := strings.TrimSpace(body[i+len(joinLinkLabel):])
		htmlBody = html.EscapeString(strings.TrimSpace(body[:i])) +
			fmt.Sprintf(` <a href="%s">Join the video consultation</a>`, html.EscapeString(link))
	}
	greeting := "Hello,"
	if name := strings.TrimSpace(toName); name != "" {
		greeting = "Hello " + name + ","
	}
	return EmailMessage{
		To:      to,
		ToName:  toName,
		Subject: defaultFromName + ": " + n.Title,
		Body:    greeting + "\n\n" + body + "\n\n" + defaultFromName,
		HTML: "<p>" + html.EscapeString(greeting) + "</p><p>" + htmlBody + "</p><p>" +
			defaultFromName + "</p>",
	}
}

// LogEmailSender only logs. It is used when no provider is configured.
type LogEmailSender struct {
	logger *logging.Logger
}

func NewLogEmailSender(logger *logging.Logger) *LogEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogEmailSender{logger: logger}
}

func (s *LogEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("email delivery disabled", "to", msg.To, "subject", msg.Subject)
	return nil
}
