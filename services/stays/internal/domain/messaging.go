package domain

import (
	"strings"
	"time"
)

// Thread is the single conversation between a guest and a host, optionally
// scoped to one property.
type Thread struct {
	ID            int64      `json:"id"`
	PropertyID    *int64     `json:"property_id,omitempty"`
	GuestID       int64      `json:"guest_id"`
	HostID        int64      `json:"host_id"`
	LastMessageAt *time.Time `json:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UnreadCount   int        `json:"unread_count"`
}

func (t *Thread) IsParticipant(userID int64) bool {
	return userID == t.GuestID || userID == t.HostID
}

// CheckParties requires sender and recipient to be the thread's two
// participants, in either order.
func (t *Thread) CheckParties(senderID, recipientID int64) error {
	if senderID == recipientID || !t.IsParticipant(senderID) || !t.IsParticipant(recipientID) {
		return ErrNotParticipant
	}
	return nil
}

// Counterpart returns the other participant.
func (t *Thread) Counterpart(userID int64) int64 {
	if userID == t.GuestID {
		return t.HostID
	}
	return t.GuestID
}

type ThreadKey struct {
	PropertyID *int64
	GuestID    int64
	HostID     int64
}

func (k ThreadKey) Matches(t *Thread) bool {
	if t.GuestID != k.GuestID || t.HostID != k.HostID {
		return false
	}
	if k.PropertyID == nil || t.PropertyID == nil {
		return k.PropertyID == nil && t.PropertyID == nil
	}
	return *k.PropertyID == *t.PropertyID
}

type Message struct {
	ID          int64     `json:"id"`
	ThreadID    int64     `json:"thread_id"`
	SenderID    int64     `json:"sender_id"`
	RecipientID int64     `json:"recipient_id"`
	Content     string    `json:"content"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

type ThreadRequest struct {
	PropertyID *int64 `json:"property_id"`
	HostID     int64  `json:"host_id"`
	GuestID    int64  `json:"guest_id"`
}

type MessageRequest struct {
	RecipientID int64  `json:"recipient_id"`
	Content     string `json:"content"`
}

func NormalizeContent(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyMessage
	}
	return s, nil
}
