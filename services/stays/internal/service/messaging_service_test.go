package service

import (
	"context"
	"errors"
	"testing"

	"github.com/diagnosis/stays/services/stays/internal/domain"
)

func TestGetOrCreateThread_Canonical(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.property(t, "100", false, nil)

	first, err := f.msgs.GetOrCreateThread(ctx, &p.ID, f.guest.ID, f.host.ID)
	if err != nil {
		t.Fatal(err)
	}
	pid := p.ID
	again, err := f.msgs.GetOrCreateThread(ctx, &pid, f.guest.ID, f.host.ID)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != again.ID {
		t.Fatalf("expected same thread, got %d and %d", first.ID, again.ID)
	}
	if first.LastMessageAt != nil {
		t.Fatal("new thread must have no last message time")
	}

	general, err := f.msgs.GetOrCreateThread(ctx, nil, f.guest.ID, f.host.ID)
	if err != nil {
		t.Fatal(err)
	}
	generalAgain, _ := f.msgs.GetOrCreateThread(ctx, nil, f.guest.ID, f.host.ID)
	if general.ID != generalAgain.ID {
		t.Fatalf("general thread not canonical: %d vs %d", general.ID, generalAgain.ID)
	}
	if general.ID == first.ID {
		t.Fatal("general thread must differ from property thread")
	}
}

func TestGetOrCreateThread_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.property(t, "100", false, nil)

	if _, err := f.msgs.GetOrCreateThread(ctx, nil, f.guest.ID, f.guest.ID); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := f.msgs.GetOrCreateThread(ctx, nil, f.guest.ID, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.msgs.GetOrCreateThread(ctx, &p.ID, f.guest.ID, f.other.ID); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for wrong host, got %v", err)
	}
}

func TestPostMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	th, err := f.msgs.GetOrCreateThread(ctx, nil, f.guest.ID, f.host.ID)
	if err != nil {
		t.Fatal(err)
	}

	m, err := f.msgs.PostMessage(ctx, th.ID, f.guest.ID, f.host.ID, "  Is parking included? ")
	if err != nil {
		t.Fatal(err)
	}
	if m.Content != "Is parking included?" || m.IsRead {
		t.Fatalf("unexpected message %+v", m)
	}
	if _, err := f.msgs.PostMessage(ctx, th.ID, f.host.ID, f.guest.ID, "Yes"); err != nil {
		t.Fatalf("reverse direction rejected: %v", err)
	}

	stored, _ := f.store.Threads().GetByID(ctx, th.ID)
	if stored.LastMessageAt == nil {
		t.Fatal("last_message_at not updated")
	}

	if _, err := f.msgs.PostMessage(ctx, th.ID, f.guest.ID, f.host.ID, "   "); !errors.Is(err, domain.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := f.msgs.PostMessage(ctx, 999, f.guest.ID, f.host.ID, "hi"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostMessage_NonParticipantDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	th, _ := f.msgs.GetOrCreateThread(ctx, nil, f.guest.ID, f.host.ID)

	for _, pair := range [][2]int64{
		{f.other.ID, f.host.ID},
		{f.guest.ID, f.other.ID},
		{f.guest.ID, f.guest.ID},
	} {
		if _, err := f.msgs.PostMessage(ctx, th.ID, pair[0], pair[1], "hello"); !errors.Is(err, domain.ErrNotParticipant) {
			t.Fatalf("sender %d recipient %d: expected ErrNotParticipant, got %v", pair[0], pair[1], err)
		}
	}

	msgs, _ := f.store.Threads().ListMessages(ctx, th.ID, 100, 0)
	if len(msgs) != 0 {
		t.Fatalf("expected no messages, got %d", len(msgs))
	}
	stored, _ := f.store.Threads().GetByID(ctx, th.ID)
	if stored.LastMessageAt != nil {
		t.Fatal("thread was touched by a rejected post")
	}
}

func TestPostMessage_RollsBackOnTouchFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	th, _ := f.msgs.GetOrCreateThread(ctx, nil, f.guest.ID, f.host.ID)

	f.store.Fail("threads.Touch", errors.New("timeout"))
	if _, err := f.msgs.PostMessage(ctx, th.ID, f.guest.ID, f.host.ID, "hi"); err == nil {
		t.Fatal("expected error")
	}
	msgs, _ := f.store.Threads().ListMessages(ctx, th.ID, 100, 0)
	if len(msgs) != 0 {
		t.Fatalf("message survived a failed transaction")
	}
}

func TestMarkThreadRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	th, _ := f.msgs.GetOrCreateThread(ctx, nil, f.guest.ID, f.host.ID)
	f.msgs.PostMessage(ctx, th.ID, f.guest.ID, f.host.ID, "one")
	f.msgs.PostMessage(ctx, th.ID, f.guest.ID, f.host.ID, "two")
	f.msgs.PostMessage(ctx, th.ID, f.host.ID, f.guest.ID, "reply")

	threads, _ := f.msgs.ListThreads(ctx, f.host.ID)
	if len(threads) != 1 || threads[0].UnreadCount != 2 {
		t.Fatalf("expected 2 unread for host, got %+v", threads)
	}

	n, err := f.msgs.MarkThreadRead(ctx, th.ID, f.host.ID)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 marked, got %d (%v)", n, err)
	}
	n, err = f.msgs.MarkThreadRead(ctx, th.ID, f.host.ID)
	if err != nil || n != 0 {
		t.Fatalf("second mark should be a no-op, got %d (%v)", n, err)
	}

	msgs, _ := f.msgs.ListMessages(ctx, th.ID, f.guest.ID, 10, 0)
	for _, m := range msgs {
		if m.RecipientID == f.guest.ID && m.IsRead {
			t.Fatal("guest's message must stay unread")
		}
	}
	if _, err := f.msgs.MarkThreadRead(ctx, th.ID, f.other.ID); !errors.Is(err, domain.ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if _, err := f.msgs.ListMessages(ctx, th.ID, f.other.ID, 10, 0); !errors.Is(err, domain.ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
}
