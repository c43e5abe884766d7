package mailer

import (
	"context"

	"github.com/diagnosis/stays/pkg/logger"
)

// DevMailer logs every e-mail instead of sending it.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(ctx context.Context, e Email) error {
	logger.InfoContext(ctx, "[DEV MAIL] "+e.Subject,
		"to", e.To,
		"name", e.ToName,
		"text", e.Text,
	)
	return nil
}
