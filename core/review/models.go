package review

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// Review is a student's rating of a completed session.
type Review struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	TutorID   string    `json:"tutor_id"`
	StudentID string    `json:"student_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"` // UTC

	StudentName string `json:"student_name,omitempty"` // attached by queries
}

// NewReview contains information needed to review a session.
type NewReview struct {
	SessionID string `json:"session_id" validate:"required,uuid4"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"max=2000"`
}

func (nr *NewReview) Validate(validate *validator.Validate) error {
	nr.Comment = core.CleanString(nr.Comment)
	return validate.Struct(nr)
}
