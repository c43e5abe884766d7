package service

import (
	"context"
	"fmt"

	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/diagnosis/stays/services/stays/internal/repository"
)

type MessagingService interface {
	GetOrCreateThread(ctx context.Context, propertyID *int64, guestID, hostID int64) (*domain.Thread, error)
	PostMessage(ctx context.Context, threadID, senderID, recipientID int64, content string) (*domain.Message, error)
	MarkThreadRead(ctx context.Context, threadID, readerID int64) (int64, error)
	ListThreads(ctx context.Context, userID int64) ([]domain.Thread, error)
	ListMessages(ctx context.Context, threadID, userID int64, limit, offset int) ([]domain.Message, error)
}

type messagingService struct {
	store repository.Store
}

func NewMessagingService(store repository.Store) MessagingService {
	return &messagingService{store: store}
}

// GetOrCreateThread resolves the canonical thread for the key. A nil
// propertyID only ever matches the general thread between the two users.
func (s *messagingService) GetOrCreateThread(ctx context.Context, propertyID *int64, guestID, hostID int64) (*domain.Thread, error) {
	if guestID == hostID {
		return nil, fmt.Errorf("%w: guest and host must differ", domain.ErrInvalidInput)
	}
	for _, id := range []int64{guestID, hostID} {
		u, err := s.store.Users().FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		if u == nil {
			return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
		}
	}
	if propertyID != nil {
		p, err := s.store.Properties().GetByID(ctx, *propertyID)
		if err != nil {
			return nil, fmt.Errorf("failed to get property: %w", err)
		}
		if p == nil {
			return nil, fmt.Errorf("property: %w", domain.ErrNotFound)
		}
		if p.HostID != hostID {
			return nil, fmt.Errorf("%w: host does not own property", domain.ErrInvalidInput)
		}
	}

	t, err := s.store.Threads().GetOrCreate(ctx, domain.ThreadKey{PropertyID: propertyID, GuestID: guestID, HostID: hostID})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve thread: %w", err)
	}
	return t, nil
}

func (s *messagingService) thread(ctx context.Context, id int64) (*domain.Thread, error) {
	t, err := s.store.Threads().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	if t == nil {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

func (s *messagingService) PostMessage(ctx context.Context, threadID, senderID, recipientID int64, content string) (*domain.Message, error) {
	content, err := domain.NormalizeContent(content)
	if err != nil {
		return nil, err
	}
	t, err := s.thread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if err := t.CheckParties(senderID, recipientID); err != nil {
		return nil, err
	}

	var msg *domain.Message
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		m, err := tx.Threads().AddMessage(ctx, &domain.Message{
			ThreadID:    threadID,
			SenderID:    senderID,
			RecipientID: recipientID,
			Content:     content,
		})
		if err != nil {
			return err
		}
		msg = m
		return tx.Threads().Touch(ctx, threadID, m.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to post message: %w", err)
	}
	return msg, nil
}

func (s *messagingService) MarkThreadRead(ctx context.Context, threadID, readerID int64) (int64, error) {
	t, err := s.thread(ctx, threadID)
	if err != nil {
		return 0, err
	}
	if !t.IsParticipant(readerID) {
		return 0, domain.ErrNotParticipant
	}
	n, err := s.store.Threads().MarkRead(ctx, threadID, readerID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark thread read: %w", err)
	}
	return n, nil
}

func (s *messagingService) ListThreads(ctx context.Context, userID int64) ([]domain.Thread, error) {
	threads, err := s.store.Threads().ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	return threads, nil
}

func (s *messagingService) ListMessages(ctx context.Context, threadID, userID int64, limit, offset int) ([]domain.Message, error) {
	t, err := s.thread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !t.IsParticipant(userID) {
		return nil, domain.ErrNotParticipant
	}
	msgs, err := s.store.Threads().ListMessages(ctx, threadID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}
