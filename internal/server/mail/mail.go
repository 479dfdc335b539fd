// Package mail delivers outgoing messages of the credential service.
//
// Three transports are available: SMTP through goemail, an S3 outbox that
// stores rendered messages for an external relay, and a log-only mailer for
// development.
package mail

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	SendEmail(ctx context.Context, msg Message) error
}

// New builds the mailer selected by cfg.MailTransport.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (Mailer, error) {
	switch cfg.MailTransport {
	case config.MailSMTP:
		m, err := NewSMTPMailer(cfg.SMTPHost, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom, log)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.MailS3:
		o, err := NewS3Outbox(ctx, S3Options{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3RootUser,
			SecretKey:    cfg.S3RootPassword,
			From:         cfg.MailFrom,
		})
		if err != nil {
			return nil, err
		}
		return o, nil
	case config.MailLog:
		return NewLogMailer(log), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.MailTransport)
	}
}
