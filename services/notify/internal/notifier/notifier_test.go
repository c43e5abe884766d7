package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/diagnosis/stays/pkg/events"
	"github.com/diagnosis/stays/services/notify/internal/mailer"
)

type recordingMailer struct {
	sent []mailer.Email
	fail map[string]error
}

func (m *recordingMailer) Send(_ context.Context, e mailer.Email) error {
	if err := m.fail[e.To]; err != nil {
		return err
	}
	m.sent = append(m.sent, e)
	return nil
}

func message(t *testing.T, subject string, ev events.BookingEvent) *events.Message {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	return &events.Message{Subject: subject, Data: data}
}

func sampleEvent() events.BookingEvent {
	return events.BookingEvent{
		BookingID:     7,
		PropertyTitle: "Harbour loft",
		Status:        "pending",
		GuestEmail:    "guest@example.com",
		HostEmail:     "host@example.com",
		CheckIn:       "2023-06-01",
		CheckOut:      "2023-06-03",
		GuestsCount:   2,
		TotalAmount:   "380.00",
	}
}

func TestHandle(t *testing.T) {
	// contains holds one expected substring per recipient in to.
	tests := []struct {
		name     string
		subject  string
		mutate   func(*events.BookingEvent)
		to       []string
		contains []string
	}{
		{"pending request", events.BookingCreated, nil,
			[]string{"guest@example.com", "host@example.com"},
			[]string{"We sent your request to the host", "Please confirm"}},
		{"instant booking", events.BookingCreated, func(e *events.BookingEvent) { e.Status = "confirmed" },
			[]string{"guest@example.com", "host@example.com"},
			[]string{"Your stay is booked", "A guest booked"}},
		{"confirmed", events.BookingConfirmed, nil,
			[]string{"guest@example.com"},
			[]string{"confirmed your stay"}},
		{"cancelled", events.BookingCancelled, func(e *events.BookingEvent) { e.Reason = "flight <cancelled>" },
			[]string{"guest@example.com", "host@example.com"},
			[]string{"flight <cancelled>", "flight <cancelled>"}},
		{"missing guest email", events.BookingConfirmed, func(e *events.BookingEvent) { e.GuestEmail = "" }, nil, nil},
		{"unknown subject", "booking.archived", nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := sampleEvent()
			if tt.mutate != nil {
				tt.mutate(&ev)
			}
			m := &recordingMailer{}
			if err := New(m).Handle(context.Background(), message(t, tt.subject, ev)); err != nil {
				t.Fatal(err)
			}
			if len(m.sent) != len(tt.to) {
				t.Fatalf("expected %d emails, got %d", len(tt.to), len(m.sent))
			}
			for i, e := range m.sent {
				if e.To != tt.to[i] {
					t.Errorf("email %d to %s, want %s", i, e.To, tt.to[i])
				}
				if !strings.Contains(e.Text, tt.contains[i]) {
					t.Errorf("email %d text %q missing %q", i, e.Text, tt.contains[i])
				}
				if !strings.Contains(e.Text, "380.00") {
					t.Errorf("email %d text %q missing the total", i, e.Text)
				}
				if strings.Contains(e.HTML, "<cancelled>") {
					t.Errorf("html not escaped: %s", e.HTML)
				}
			}
		})
	}
}

func TestHandle_PartialFailure(t *testing.T) {
	boom := errors.New("smtp down")
	m := &recordingMailer{fail: map[string]error{"guest@example.com": boom}}
	err := New(m).Handle(context.Background(), message(t, events.BookingCreated, sampleEvent()))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
	if len(m.sent) != 1 || m.sent[0].To != "host@example.com" {
		t.Fatalf("host should still be notified, got %+v", m.sent)
	}
}

func TestHandle_BadPayload(t *testing.T) {
	m := &recordingMailer{}
	err := New(m).Handle(context.Background(), &events.Message{Subject: events.BookingCreated, Data: []byte("{")})
	if err == nil {
		t.Fatal("expected decode error")
	}
}
