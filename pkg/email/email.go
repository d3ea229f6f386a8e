// Package email delivers rendered messages through a transactional provider.
package email

import (
	"context"
	"strings"

	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
)

type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends one message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer records messages in the log instead of sending them. Used in
// dev when no provider key is configured.
type LogMailer struct {
	Logger *logger.Logger
}

func (m LogMailer) Send(ctx context.Context, msg Message) error {
	if m.Logger == nil {
		return nil
	}
	ctx = m.Logger.WithFields(ctx, map[string]any{
		"to_domain":  domainOf(msg.To),
		"subject":    msg.Subject,
		"html_bytes": len(msg.HTML),
	})
	m.Logger.Info(ctx, "email delivery skipped (log mailer)")
	return nil
}

func domainOf(addr string) string {
	if at := strings.LastIndex(addr, "@"); at != -1 {
		return addr[at+1:]
	}
	return ""
}
