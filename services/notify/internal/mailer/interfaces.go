package mailer

import "context"

// Email is one outbound message. Text is required, HTML is optional.
type Email struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

type Service interface {
	Send(ctx context.Context, e Email) error
}
