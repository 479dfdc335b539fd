package mail

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// LogMailer records that a message would have been sent. The body is not
// logged because it carries reset links.
type LogMailer struct {
	log logging.Logger
}

func NewLogMailer(log logging.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (l *LogMailer) SendEmail(ctx context.Context, m Message) error {
	l.log.Info(ctx, "email queued", "to", m.To, "subject", m.Subject)
	return nil
}
