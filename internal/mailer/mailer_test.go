package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/account-api/internal/notify"
)

func TestCompose(t *testing.T) {
	m, err := Compose("noreply@example.com", notify.Event{Kind: notify.KindWelcome, Email: "ann@example.com", Name: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", m.To)
	assert.Contains(t, m.Body, "Ann")

	m, err = Compose("noreply@example.com", notify.Event{Kind: notify.KindCancellation, Email: "ann@example.com"})
	require.NoError(t, err)
	assert.Contains(t, m.Body, "Goodbye, there")

	_, err = Compose("noreply@example.com", notify.Event{Kind: "promo", Email: "ann@example.com"})
	assert.Error(t, err)
}

func TestMessageBytesStripsHeaderInjection(t *testing.T) {
	m := Message{From: "a@example.com", To: "b@example.com\r\nBcc: evil@example.com", Subject: "hi", Body: "x"}
	raw := string(m.Bytes())
	assert.NotContains(t, raw, "\r\nBcc:")
	assert.True(t, strings.HasPrefix(raw, "From: a@example.com\r\n"))
}

func TestSMTPMailerDeliver(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	m := NewSMTPMailer(SMTPConfig{Host: "mail.local", Port: 2525, Username: "u", Password: "p", From: "noreply@example.com"})
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, string(msg)
		return nil
	}

	err := m.Deliver(context.Background(), notify.Event{Kind: notify.KindWelcome, Email: "ann@example.com", Name: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, []string{"ann@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Thanks for joining in!")
}

func TestSMTPMailerDeliverErrors(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "mail.local", Port: 25, From: "noreply@example.com"})
	relayDown := errors.New("connection refused")
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return relayDown }

	err := m.Deliver(context.Background(), notify.Event{Kind: notify.KindCancellation, Email: "ann@example.com"})
	assert.ErrorIs(t, err, relayDown)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = m.Deliver(ctx, notify.Event{Kind: notify.KindCancellation, Email: "ann@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer("noreply@example.com", zap.New(core))

	require.NoError(t, m.Deliver(context.Background(), notify.Event{Kind: notify.KindWelcome, Email: "ann@example.com", Name: "Ann"}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "ann@example.com", logs.All()[0].ContextMap()["to"])
}
