// Package mailer turns account notifications into emails.
package mailer

import (
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/account-api/internal/notify"
)

// Message is a rendered plain-text email.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Compose renders the email for ev.
func Compose(from string, ev notify.Event) (Message, error) {
	name := strings.TrimSpace(ev.Name)
	if name == "" {
		name = "there"
	}
	m := Message{From: from, To: ev.Email}
	switch ev.Kind {
	case notify.KindWelcome:
		m.Subject = "Thanks for joining in!"
		m.Body = fmt.Sprintf("Welcome to the app, %s. Let me know how you get along with the app.", name)
	case notify.KindCancellation:
		m.Subject = "Sorry to see you go!"
		m.Body = fmt.Sprintf("Goodbye, %s. Is there anything we could have done to have kept you on board?", name)
	default:
		return Message{}, fmt.Errorf("no template for notification kind %q", ev.Kind)
	}
	return m, nil
}

// Bytes renders m as an RFC 5322 message with CRLF line endings.
func (m Message) Bytes() []byte {
	var b strings.Builder
	header := func(k, v string) {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(stripCRLF(v))
		b.WriteString("\r\n")
	}
	header("From", m.From)
	header("To", m.To)
	header("Subject", m.Subject)
	header("Date", time.Now().UTC().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// stripCRLF keeps user-supplied names and addresses from injecting headers.
func stripCRLF(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
