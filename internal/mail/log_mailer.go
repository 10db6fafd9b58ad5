package mail

import "log"

// LogMailer is the development fallback used when Mailgun is not
// configured: it logs the message instead of delivering it and never
// fails, so reset tokens are still issued locally.
type LogMailer struct{}

func (LogMailer) SendMail(e *Email) error {
	log.Printf("mail (log only): to=%v subject=%q\n%s", e.To, e.Subject, e.Body)
	return nil
}
