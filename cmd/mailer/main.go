// Command mailer consumes account notifications from RabbitMQ and sends
// the matching emails.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/account-api/internal/config"
	"github.com/iliyamo/account-api/internal/logger"
	"github.com/iliyamo/account-api/internal/mailer"
	"github.com/iliyamo/account-api/internal/notify"
	"github.com/iliyamo/account-api/internal/queue"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "read .env: %v\n", err)
		os.Exit(1)
	}
	cfg := config.LoadMailer()
	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink notify.Sink
	if cfg.SMTP.Host != "" {
		sink = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		log.Info("delivering over smtp", zap.String("host", cfg.SMTP.Host), zap.Int("port", cfg.SMTP.Port))
	} else {
		sink = mailer.NewLogMailer(cfg.SMTP.From, log)
		log.Warn("SMTP_HOST not set, emails are only logged")
	}

	log.Info("consuming", zap.String("queue", queue.NotificationsQueue))
	err = queue.StartNotificationConsumer(ctx, cfg.AMQPURL, sink.Deliver, log)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("consumer stopped", zap.Error(err))
	}
	log.Info("mailer stopped")
}
