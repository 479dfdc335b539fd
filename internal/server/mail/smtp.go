package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	netmail "net/mail"
	"net/url"

	"github.com/dajohi/goemail"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

type smtpSender interface {
	Send(msg *goemail.Message) error
}

// SMTPMailer sends mail over SMTPS. It is disabled, and silently drops
// messages, when host or credentials are not configured.
type SMTPMailer struct {
	client      smtpSender
	mailName    string
	mailAddress string
	disabled    bool
	log         logging.Logger
}

func NewSMTPMailer(host, user, password, from string, log logging.Logger) (*SMTPMailer, error) {
	if host == "" || user == "" || password == "" {
		log.Warn(context.Background(), "smtp mailer disabled: host or credentials not set")
		return &SMTPMailer{disabled: true, log: log}, nil
	}

	u, err := url.Parse(fmt.Sprintf("smtps://%v:%v@%v", url.QueryEscape(user), url.QueryEscape(password), host))
	if err != nil {
		return nil, fmt.Errorf("parse smtp host: %w", err)
	}

	a, err := netmail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("parse mail from: %w", err)
	}

	client, err := goemail.NewSMTP(u.String(), &tls.Config{ServerName: u.Hostname()})
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return &SMTPMailer{
		client:      client,
		mailName:    a.Name,
		mailAddress: a.Address,
		log:         log,
	}, nil
}

func (s *SMTPMailer) SendEmail(ctx context.Context, m Message) error {
	if s.disabled {
		s.log.Debug(ctx, "smtp disabled, message dropped", "subject", m.Subject)
		return nil
	}

	msg := goemail.NewMessage(s.mailAddress, m.Subject, m.Body)
	msg.AddTo(m.To)
	msg.SetName(s.mailName)

	if err := s.client.Send(msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
