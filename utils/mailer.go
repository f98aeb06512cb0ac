package utils

import (
	"fmt"

	"gopkg.in/gomail.v2"
	"nexcrm/config"
)

// Mailer sends transactional mail through the configured SMTP relay. From this
// core's perspective a send either completes or fails outright; failures
// surface to the caller and are never swallowed.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer() *Mailer {
	cfg := config.AppConfig
	return &Mailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail),
	}
}

// Send delivers an HTML email with an optional file attachment.
func (m *Mailer) Send(to, subject, htmlBody, attachmentPath string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	if attachmentPath != "" {
		msg.Attach(attachmentPath)
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
