package session

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// Status is the lifecycle state of a Session.
type Status string

const (
	StatusPending    Status = "pending"
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var AllStatuses = []Status{StatusPending, StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled}

func (s Status) IsValid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether next is a legal move from s.
func (s Status) CanTransitionTo(next Status) bool {
	if !next.IsValid() || s.Terminal() {
		return false
	}
	switch s {
	case StatusPending:
		return next == StatusScheduled || next == StatusCancelled
	case StatusScheduled:
		return next == StatusInProgress || next == StatusCancelled
	case StatusInProgress:
		return next == StatusCompleted || next == StatusCancelled
	}
	return false
}

// Session is a scheduled tutor/student meeting.
// TutorName and StudentName are denormalized display fields attached by
// queries; they are never written back.
type Session struct {
	ID        string    `json:"id"`
	TutorID   string    `json:"tutor_id"`
	StudentID string    `json:"student_id"`
	StartTime time.Time `json:"start_time"` // UTC
	EndTime   time.Time `json:"end_time"`   // UTC
	Subject   string    `json:"subject"`
	Status    Status    `json:"status"`
	Notes     string    `json:"notes"`

	TutorName   string `json:"tutor_name,omitempty"`
	StudentName string `json:"student_name,omitempty"`

	// WebRTC signaling payloads relayed through the session row.
	Offer            string   `json:"offer,omitempty"`
	Answer           string   `json:"answer,omitempty"`
	OfferCandidates  []string `json:"offer_candidates,omitempty"`
	AnswerCandidates []string `json:"answer_candidates,omitempty"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Involves reports whether the user is one of the session's parties.
func (s Session) Involves(userID string) bool {
	return s.TutorID == userID || s.StudentID == userID
}

// NewSession contains information needed to book a session.
type NewSession struct {
	TutorID   string    `json:"tutor_id" validate:"required,uuid4"`
	StudentID string    `json:"student_id" validate:"required,uuid4"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	Subject   string    `json:"subject" validate:"required"`
	Notes     string    `json:"notes"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.Subject = core.CleanString(ns.Subject)
	ns.Notes = core.CleanString(ns.Notes)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.StartTime.Before(time.Now()) {
		return core.NewValidationError(nil, core.FieldError{Field: "start_time", Error: "start time must be in the future"})
	}
	return nil
}

// UpdateStatus is a request to move a session along its lifecycle.
type UpdateStatus struct {
	Status Status `json:"status" validate:"required,session_status"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	return validate.Struct(us)
}

// UpdateNotes replaces the session's free-text notes.
type UpdateNotes struct {
	Notes string `json:"notes"`
}

// QueryFilter selects sessions; fields are ANDed.
type QueryFilter struct {
	TutorID   string    `query:"tutor_id"`
	StudentID string    `query:"student_id"`
	UserID    string    `query:"-"` // tutor OR student
	Statuses  []Status  `query:"status"`
	StartFrom time.Time `query:"start_from"`
	StartTo   time.Time `query:"start_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.TutorID == "" && qf.StudentID == "" && qf.UserID == "" &&
		qf.Statuses == nil && qf.StartFrom.IsZero() && qf.StartTo.IsZero()
}

// GetFilter selects a single Session.
type GetFilter struct {
	ID string

	// Booking uniqueness key: one session per (tutor, student, start_time).
	TutorID   string
	StudentID string
	StartTime time.Time
}

// SignalingUpdate writes WebRTC negotiation payloads onto the session row.
// Zero-valued fields are left untouched; Clear resets all of them.
type SignalingUpdate struct {
	Offer           string
	Answer          string
	OfferCandidate  string // appended
	AnswerCandidate string // appended
	Clear           bool
}
