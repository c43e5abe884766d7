package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/jackc/pgx/v5"
)

type ThreadRepository interface {
	// GetOrCreate resolves the one thread for key, inserting it when absent.
	GetOrCreate(ctx context.Context, key domain.ThreadKey) (*domain.Thread, error)
	GetByID(ctx context.Context, id int64) (*domain.Thread, error)
	ListForUser(ctx context.Context, userID int64) ([]domain.Thread, error)
	AddMessage(ctx context.Context, m *domain.Message) (*domain.Message, error)
	// Touch moves last_message_at forward to at; an older at is ignored.
	Touch(ctx context.Context, threadID int64, at time.Time) error
	MarkRead(ctx context.Context, threadID, readerID int64) (int64, error)
	ListMessages(ctx context.Context, threadID int64, limit, offset int) ([]domain.Message, error)
}

type threadRepository struct {
	db DBTX
}

const threadCols = `t.id, t.property_id, t.guest_id, t.host_id, t.last_message_at, t.created_at`

func scanThread(row pgx.Row, extra ...any) (*domain.Thread, error) {
	var t domain.Thread
	dest := append([]any{&t.ID, &t.PropertyID, &t.GuestID, &t.HostID, &t.LastMessageAt, &t.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *threadRepository) GetOrCreate(ctx context.Context, key domain.ThreadKey) (*domain.Thread, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	// The two partial unique indexes make concurrent inserts converge.
	const insert = `INSERT INTO message_threads AS t (property_id, guest_id, host_id)
	VALUES ($1,$2,$3) ON CONFLICT DO NOTHING
	RETURNING ` + threadCols
	t, err := scanThread(r.db.QueryRow(ctx, insert, key.PropertyID, key.GuestID, key.HostID))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, storeErr("create thread", err)
	}

	const find = `SELECT ` + threadCols + ` FROM message_threads t
	WHERE t.property_id IS NOT DISTINCT FROM $1 AND t.guest_id=$2 AND t.host_id=$3`
	t, err = scanThread(r.db.QueryRow(ctx, find, key.PropertyID, key.GuestID, key.HostID))
	if err != nil {
		return nil, storeErr("find thread", err)
	}
	return t, nil
}

func (r *threadRepository) GetByID(ctx context.Context, id int64) (*domain.Thread, error) {
	const q = `SELECT ` + threadCols + ` FROM message_threads t WHERE t.id=$1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	t, err := scanThread(r.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get thread %d", id), err)
	}
	return t, nil
}

func (r *threadRepository) ListForUser(ctx context.Context, userID int64) ([]domain.Thread, error) {
	const q = `SELECT ` + threadCols + `,
		(SELECT count(*) FROM messages m WHERE m.thread_id = t.id AND m.recipient_id = $1 AND NOT m.is_read)
	FROM message_threads t
	WHERE t.guest_id=$1 OR t.host_id=$1
	ORDER BY t.last_message_at DESC NULLS LAST, t.id DESC`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, storeErr("list threads", err)
	}
	defer rows.Close()

	var threads []domain.Thread
	for rows.Next() {
		var unread int
		t, err := scanThread(rows, &unread)
		if err != nil {
			return nil, storeErr("scan thread", err)
		}
		t.UnreadCount = unread
		threads = append(threads, *t)
	}
	return threads, storeErr("list threads", rows.Err())
}

func (r *threadRepository) AddMessage(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	const q = `INSERT INTO messages (thread_id, sender_id, recipient_id, content)
	VALUES ($1,$2,$3,$4)
	RETURNING id, thread_id, sender_id, recipient_id, content, is_read, created_at`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var out domain.Message
	err := r.db.QueryRow(ctx, q, m.ThreadID, m.SenderID, m.RecipientID, m.Content).Scan(
		&out.ID, &out.ThreadID, &out.SenderID, &out.RecipientID, &out.Content, &out.IsRead, &out.CreatedAt,
	)
	if err != nil {
		return nil, storeErr("add message", err)
	}
	return &out, nil
}

func (r *threadRepository) Touch(ctx context.Context, threadID int64, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.Exec(ctx,
		`UPDATE message_threads SET last_message_at = GREATEST(COALESCE(last_message_at, $2), $2) WHERE id=$1`,
		threadID, at)
	return storeErr("touch thread", err)
}

func (r *threadRepository) MarkRead(ctx context.Context, threadID, readerID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx,
		`UPDATE messages SET is_read=true WHERE thread_id=$1 AND recipient_id=$2 AND NOT is_read`,
		threadID, readerID)
	if err != nil {
		return 0, storeErr("mark thread read", err)
	}
	return tag.RowsAffected(), nil
}

func (r *threadRepository) ListMessages(ctx context.Context, threadID int64, limit, offset int) ([]domain.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT id, thread_id, sender_id, recipient_id, content, is_read, created_at
	FROM messages WHERE thread_id=$1 ORDER BY created_at, id LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, q, threadID, limit, offset)
	if err != nil {
		return nil, storeErr("list messages", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.RecipientID, &m.Content, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, storeErr("scan message", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, storeErr("list messages", rows.Err())
}
