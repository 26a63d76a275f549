package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/message"
)

type messageRepository struct {
	db *DB
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB) *messageRepository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) attach(m message.Message) message.Message {
	m.SenderName = repo.db.userName(m.SenderID)
	return m
}

func (repo *messageRepository) CreateMessage(ctx context.Context, m message.Message, exec ...core.DBExecutor) (message.Message, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.messages[m.ID] = &m
	return repo.attach(m), nil
}

func (repo *messageRepository) QueryMessages(ctx context.Context, filter *message.QueryFilter, exec ...core.DBExecutor) ([]message.Message, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	msgs := make([]message.Message, 0)
	for _, m := range repo.db.messages {
		if filter != nil && !matchMessage(*m, filter) {
			continue
		}
		msgs = append(msgs, repo.attach(*m))
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	return msgs, nil
}

func matchMessage(m message.Message, filter *message.QueryFilter) bool {
	if a, b := filter.Conversation[0], filter.Conversation[1]; a != "" && b != "" {
		if !((m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a)) {
			return false
		}
	}
	if filter.SessionID != "" && m.SessionID != filter.SessionID {
		return false
	}
	if filter.Unread != nil {
		if *filter.Unread != (m.ReadAt == nil) {
			return false
		}
	}
	return true
}

func (repo *messageRepository) GetMessage(ctx context.Context, id string, exec ...core.DBExecutor) (message.Message, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if m, ok := repo.db.messages[id]; ok {
		return repo.attach(*m), nil
	}
	return message.Message{}, message.ErrNotFound
}

func (repo *messageRepository) MarkMessageRead(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) (message.Message, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	m, ok := repo.db.messages[id]
	if !ok {
		return message.Message{}, message.ErrNotFound
	}
	if m.ReadAt == nil {
		at = at.UTC()
		m.ReadAt = &at
	}
	return repo.attach(*m), nil
}
