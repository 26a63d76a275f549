package message

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/realtime"
)

// Table is the realtime change-feed table name for messages.
const Table = "messages"

var ErrNotFound = errors.New("message not found")

type (
	Repository interface {
		CreateMessage(ctx context.Context, m Message, exec ...core.DBExecutor) (Message, error)
		// QueryMessages returns matches ordered by creation time ascending and
		// attaches the denormalized SenderName display field.
		QueryMessages(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Message, error)
		GetMessage(ctx context.Context, id string, exec ...core.DBExecutor) (Message, error)
		MarkMessageRead(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) (Message, error)
	}

	ServiceInterface interface {
		Send(senderID string, nm NewMessage) (Message, error)
		Conversation(userID, otherID string) ([]Message, error)
		MarkRead(id, actorID string) (Message, error)
	}

	Service struct {
		repo   Repository
		broker *realtime.Broker
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, broker *realtime.Broker) *Service {
	return &Service{repo: repo, broker: broker}
}

// ChangesFor matches message change events addressed to or sent by the user.
func ChangesFor(userID string) realtime.Filter {
	return func(ch realtime.Change) bool {
		if ch.Table != Table {
			return false
		}
		m, ok := ch.Payload.(Message)
		if !ok {
			return false
		}
		return m.SenderID == userID || m.RecipientID == userID
	}
}

func (svc *Service) Send(senderID string, nm NewMessage) (Message, error) {
	m := Message{
		ID:          uuid.New().String(),
		SenderID:    senderID,
		RecipientID: nm.RecipientID,
		SessionID:   nm.SessionID,
		Body:        nm.Body,
		CreatedAt:   time.Now().UTC(),
	}

	m, err := svc.repo.CreateMessage(context.Background(), m)
	if err != nil {
		return Message{}, err
	}
	svc.publish(realtime.OpInsert, m)
	return m, nil
}

func (svc *Service) Conversation(userID, otherID string) ([]Message, error) {
	return svc.repo.QueryMessages(context.Background(), &QueryFilter{Conversation: [2]string{userID, otherID}})
}

// MarkRead is idempotent; only the recipient may mark a message read.
func (svc *Service) MarkRead(id, actorID string) (Message, error) {
	ctx := context.Background()

	m, err := svc.repo.GetMessage(ctx, id)
	if err != nil {
		return Message{}, err
	}
	if m.RecipientID != actorID {
		return Message{}, ErrNotFound
	}
	if m.ReadAt != nil {
		return m, nil
	}

	m, err = svc.repo.MarkMessageRead(ctx, id, time.Now().UTC())
	if err != nil {
		return Message{}, err
	}
	svc.publish(realtime.OpUpdate, m)
	return m, nil
}

func (svc *Service) publish(op realtime.Op, m Message) {
	if svc.broker != nil {
		svc.broker.Publish(realtime.Change{Table: Table, Op: op, Payload: m})
	}
}
