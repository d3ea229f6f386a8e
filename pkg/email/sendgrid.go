package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/tavernbuddy/tavernbuddy-backend/pkg/config"
	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
)

const maxErrorBody = 512

type sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGrid delivers mail with the SendGrid v3 API.
type SendGrid struct {
	client sender
	from   *mail.Email
	logger *logger.Logger
}

func NewSendGrid(cfg config.SendgridConfig, logg *logger.Logger) (*SendGrid, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("sendgrid api key required")
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, fmt.Errorf("sendgrid from address required")
	}
	return &SendGrid{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.DefaultFrom),
		logger: logg,
	}, nil
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient required")
	}
	payload := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail(msg.ToName, msg.To), msg.Text, msg.HTML)

	ctx = s.logger.WithFields(ctx, map[string]any{"to_domain": domainOf(msg.To), "subject": msg.Subject})
	resp, err := s.client.SendWithContext(ctx, payload)
	if err != nil {
		s.logger.Error(ctx, "sendgrid send failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sendgrid send failed")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := resp.Body
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		err := fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, body)
		s.logger.Error(ctx, "sendgrid rejected message", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sendgrid rejected message")
	}
	s.logger.Info(ctx, "email sent")
	return nil
}
