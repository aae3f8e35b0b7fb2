// Package mailer delivers plain-text email over SMTP. In dev mode messages
// are written to the log instead of a wire, so local environments need no
// mail infrastructure.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"
)

// Mailer sends a plain-text message to one recipient
type Mailer interface {
	Send(to, subject, body string) error
}

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// SMTPMailer sends mail through a real SMTP relay
type SMTPMailer struct {
	config Config
}

// NewSMTPMailer creates an SMTP-backed mailer
func NewSMTPMailer(config Config) *SMTPMailer {
	return &SMTPMailer{config: config}
}

// Send delivers one message
func (m *SMTPMailer) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)

	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	msg := strings.Join([]string{
		"From: " + m.config.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, m.config.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// DevMailer logs messages instead of sending them
type DevMailer struct {
	logger *logrus.Logger
}

// NewDevMailer creates a log-only mailer for local development
func NewDevMailer(logger *logrus.Logger) *DevMailer {
	return &DevMailer{logger: logger}
}

// Send logs the message
func (m *DevMailer) Send(to, subject, body string) error {
	m.logger.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("DEV MAIL\n" + body)
	return nil
}
