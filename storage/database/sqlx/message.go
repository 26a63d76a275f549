package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/message"
)

const messageColumns = `m.id, m.sender_id, m.recipient_id, m.session_id, m.body, m.read_at, m.created_at,
	u.name AS sender_name`

const messageFrom = ` FROM message m JOIN "user" u ON u.id = m.sender_id`

type messageRow struct {
	ID          string      `db:"id"`
	SenderID    string      `db:"sender_id"`
	RecipientID string      `db:"recipient_id"`
	SessionID   null.String `db:"session_id"`
	Body        string      `db:"body"`
	ReadAt      null.Time   `db:"read_at"`
	CreatedAt   null.Time   `db:"created_at"`
	SenderName  null.String `db:"sender_name"`
}

type messageRepository struct {
	exec core.DBExecutor
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(exec core.DBExecutor) *messageRepository {
	return &messageRepository{exec: exec}
}

func (repo messageRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo messageRepository) unpack(r messageRow) message.Message {
	return message.Message{
		ID:          r.ID,
		SenderID:    r.SenderID,
		RecipientID: r.RecipientID,
		SessionID:   r.SessionID.String,
		Body:        r.Body,
		ReadAt:      r.ReadAt.Ptr(),
		CreatedAt:   r.CreatedAt.Time,
		SenderName:  r.SenderName.String,
	}
}

func (repo messageRepository) CreateMessage(ctx context.Context, m message.Message, exec ...core.DBExecutor) (message.Message, error) {
	query := `INSERT INTO message (id, sender_id, recipient_id, session_id, body, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		m.ID, m.SenderID, m.RecipientID,
		null.NewString(m.SessionID, m.SessionID != ""),
		m.Body,
		null.TimeFromPtr(m.ReadAt),
		null.NewTime(m.CreatedAt.UTC(), !m.CreatedAt.IsZero()))
	if err != nil {
		return message.Message{}, errors.Wrap(err, "inserting message")
	}
	return m, nil
}

func (repo messageRepository) QueryMessages(ctx context.Context, filter *message.QueryFilter, exec ...core.DBExecutor) ([]message.Message, error) {
	var qb queryBuilder

	if filter != nil {
		if filter.Conversation[0] != "" && filter.Conversation[1] != "" {
			a, b := qb.arg(filter.Conversation[0]), qb.arg(filter.Conversation[1])
			qb.and(fmt.Sprintf(
				"((m.sender_id = %[1]s AND m.recipient_id = %[2]s) OR (m.sender_id = %[2]s AND m.recipient_id = %[1]s))", a, b))
		}
		if filter.SessionID != "" {
			qb.and("m.session_id = " + qb.arg(filter.SessionID))
		}
		if filter.Unread != nil {
			if *filter.Unread {
				qb.and("m.read_at IS NULL")
			} else {
				qb.and("m.read_at IS NOT NULL")
			}
		}
	}

	var rows []messageRow
	query := `SELECT ` + messageColumns + messageFrom + qb.clause() + ` ORDER BY m.created_at ASC`
	if err := selectStructs(ctx, repo.getExec(exec), &rows, query, qb.args...); err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}

	msgs := make([]message.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, repo.unpack(r))
	}
	return msgs, nil
}

func (repo messageRepository) GetMessage(ctx context.Context, id string, exec ...core.DBExecutor) (message.Message, error) {
	if _, err := uuid.Parse(id); err != nil {
		return message.Message{}, message.ErrNotFound
	}

	var rows []messageRow
	query := `SELECT ` + messageColumns + messageFrom + ` WHERE m.id = $1`
	if err := selectStructs(ctx, repo.getExec(exec), &rows, query, id); err != nil {
		return message.Message{}, errors.Wrap(err, "finding message")
	}
	if len(rows) == 0 {
		return message.Message{}, message.ErrNotFound
	}
	return repo.unpack(rows[0]), nil
}

func (repo messageRepository) MarkMessageRead(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) (message.Message, error) {
	exe := repo.getExec(exec)

	query := `UPDATE message SET read_at = $2 WHERE id = $1 AND read_at IS NULL`
	if _, err := exe.ExecContext(ctx, query, id, at.UTC()); err != nil {
		return message.Message{}, errors.Wrap(err, "marking message read")
	}
	return repo.GetMessage(ctx, id, exe)
}
