package notifier

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/diagnosis/stays/pkg/events"
	"github.com/diagnosis/stays/pkg/logger"
	"github.com/diagnosis/stays/services/notify/internal/mailer"
)

// Notifier turns booking events into guest and host e-mails.
type Notifier struct {
	mailer mailer.Service
}

func New(m mailer.Service) *Notifier {
	return &Notifier{mailer: m}
}

// Handle sends the e-mails for one event. Unknown subjects are ignored.
func (n *Notifier) Handle(ctx context.Context, msg *events.Message) error {
	var ev events.BookingEvent
	if err := msg.Decode(&ev); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", msg.Subject, err)
	}

	var emails []mailer.Email
	switch msg.Subject {
	case events.BookingCreated:
		emails = created(ev)
	case events.BookingConfirmed:
		emails = confirmed(ev)
	case events.BookingCancelled:
		emails = cancelled(ev)
	default:
		logger.DebugContext(ctx, "Ignoring event", "subject", msg.Subject)
		return nil
	}

	var errs []error
	for _, e := range emails {
		if e.To == "" {
			continue
		}
		if err := n.mailer.Send(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w", e.To, err))
			continue
		}
		logger.InfoContext(ctx, "Notification sent", "subject", msg.Subject, "booking_id", ev.BookingID, "to", e.To)
	}
	return errors.Join(errs...)
}

func stayLine(ev events.BookingEvent) string {
	return fmt.Sprintf("%s, %s to %s, %d guest(s), total %s", ev.PropertyTitle, ev.CheckIn, ev.CheckOut, ev.GuestsCount, ev.TotalAmount)
}

func email(to, subject, body string) mailer.Email {
	return mailer.Email{
		To:      to,
		Subject: subject,
		Text:    body,
		HTML:    "<p>" + html.EscapeString(body) + "</p>",
	}
}

func created(ev events.BookingEvent) []mailer.Email {
	line := stayLine(ev)
	if ev.Status == "confirmed" {
		return []mailer.Email{
			email(ev.GuestEmail, "Your booking is confirmed", "Your stay is booked: "+line+"."),
			email(ev.HostEmail, "New booking for "+ev.PropertyTitle, "A guest booked "+line+"."),
		}
	}
	return []mailer.Email{
		email(ev.GuestEmail, "Booking request received", "We sent your request to the host: "+line+"."),
		email(ev.HostEmail, "Booking request for "+ev.PropertyTitle, "A guest requested "+line+". Please confirm it."),
	}
}

func confirmed(ev events.BookingEvent) []mailer.Email {
	return []mailer.Email{
		email(ev.GuestEmail, "Your booking is confirmed", "The host confirmed your stay: "+stayLine(ev)+"."),
	}
}

func cancelled(ev events.BookingEvent) []mailer.Email {
	body := fmt.Sprintf("Booking #%d was cancelled: %s. Reason: %s", ev.BookingID, stayLine(ev), ev.Reason)
	return []mailer.Email{
		email(ev.GuestEmail, "Booking cancelled", body),
		email(ev.HostEmail, "Booking cancelled", body),
	}
}
