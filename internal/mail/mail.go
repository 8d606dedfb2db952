// Package mail delivers enrollment notification mail.
package mail

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// Message is a single outbound mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// EditLinkMessage builds the mail sent to anonymous enrollees, carrying the
// capability link under which the enrollment can be edited later.
func EditLinkMessage(to, appointmentTitle, appointmentLink, enrollmentID, token, frontendBaseURL string) Message {
	editURL := fmt.Sprintf("%s/enroll/%s/%s?token=%s",
		frontendBaseURL,
		url.PathEscape(appointmentLink),
		url.PathEscape(enrollmentID),
		url.QueryEscape(token),
	)
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Your enrollment for %q", appointmentTitle),
		Body: fmt.Sprintf(
			"You enrolled for %q.\n\nUse this link to edit or withdraw your enrollment:\n%s\n",
			appointmentTitle, editURL,
		),
	}
}

// LogMailer logs messages instead of delivering them. Used when mail is
// disabled and in tests.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a mailer that only logs.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("mail suppressed",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
