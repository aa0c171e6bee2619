// Package mailer sends transactional email. The SMTP sender is optional:
// environments without mail credentials fall back to the log sender, which
// prints the message instead of silently dropping it.
package mailer

import (
	"fmt"
	"log"
	"net/smtp"

	"github.com/jordan-wright/email"
)

// Sender dispatches a single HTML email.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// SMTPSender sends mail through an SMTP server using PLAIN auth.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPSender creates a sender for the given SMTP server.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: smtp.PlainAuth("", username, password, host),
		from: from,
	}
}

// Send delivers one HTML message.
func (s *SMTPSender) Send(to, subject, htmlBody string) error {
	e := email.NewEmail()
	e.From = s.from
	e.To = []string{to}
	e.Subject = subject
	e.HTML = []byte(htmlBody)
	if err := e.Send(s.addr, s.auth); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// LogSender writes the message to the process log instead of sending it.
type LogSender struct{}

// Send logs the message.
func (LogSender) Send(to, subject, htmlBody string) error {
	log.Printf("email to %s [%s]:\n%s", to, subject, htmlBody)
	return nil
}
