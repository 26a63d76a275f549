package message

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// Message is a direct message between two users, optionally tied to a session.
type Message struct {
	ID          string     `json:"id"`
	SenderID    string     `json:"sender_id"`
	RecipientID string     `json:"recipient_id"`
	SessionID   string     `json:"session_id,omitempty"`
	Body        string     `json:"body"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"` // UTC

	SenderName string `json:"sender_name,omitempty"` // attached by queries
}

// NewMessage contains information needed to send a message.
type NewMessage struct {
	RecipientID string `json:"recipient_id" validate:"required,uuid4"`
	SessionID   string `json:"session_id" validate:"omitempty,uuid4"`
	Body        string `json:"body" validate:"required,max=4000"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.Body = core.CleanString(nm.Body)
	return validate.Struct(nm)
}

// QueryFilter selects messages; fields are ANDed.
type QueryFilter struct {
	// Conversation selects messages exchanged between two users, either direction.
	Conversation [2]string
	SessionID    string
	Unread       *bool
}
