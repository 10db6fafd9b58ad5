// Package mail sends transactional email through Mailgun. The core
// only sees the Mailer interface; delivery failures are surfaced to
// the caller so the password-reset flow can roll back token issuance.
package mail

import (
	"context"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

// Email is a plain-text outbound message.
type Email struct {
	Subject string
	Body    string
	From    string
	To      []string
}

// Mailer delivers an email synchronously.
type Mailer interface {
	SendMail(e *Email) error
}

// Mailgun implements Mailer against the Mailgun HTTP API.
type Mailgun struct {
	domain  string
	apiKey  string
	apiBase string
}

func NewMailer(domain, apiKey, apiBase string) *Mailgun {
	return &Mailgun{domain: domain, apiKey: apiKey, apiBase: apiBase}
}

func (m *Mailgun) SendMail(e *Email) error {
	mg := mailgun.NewMailgun(m.domain, m.apiKey)
	if m.apiBase != "" {
		mg.SetAPIBase(m.apiBase)
	}

	message := mg.NewMessage(e.From, e.Subject, e.Body, e.To...)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _, err := mg.Send(ctx, message)
	return err
}
