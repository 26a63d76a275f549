package profile

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// TutorProfile extends a tutor User with marketplace attributes.
// MeetingAccessToken/MeetingRefreshToken hold the external meeting API's
// OAuth tokens for this tutor; they are never serialized to clients.
type TutorProfile struct {
	UserID     string   `json:"user_id"`
	Bio        string   `json:"bio"`
	Subjects   []string `json:"subjects"`
	HourlyRate float64  `json:"hourly_rate"`
	AvatarURL  string   `json:"avatar_url"`

	MeetingAccessToken  string    `json:"-"`
	MeetingRefreshToken string    `json:"-"`
	MeetingTokenExpiry  time.Time `json:"-"`

	// attached by queries, not authoritative
	Name          string  `json:"name,omitempty"`
	AverageRating float64 `json:"average_rating,omitempty"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// MeetingConnected reports whether the tutor has linked the meeting API.
func (p TutorProfile) MeetingConnected() bool {
	return p.MeetingAccessToken != "" || p.MeetingRefreshToken != ""
}

// StudentProfile extends a student User.
type StudentProfile struct {
	UserID     string `json:"user_id"`
	Bio        string `json:"bio"`
	GradeLevel string `json:"grade_level"`
	AvatarURL  string `json:"avatar_url"`

	Name string `json:"name,omitempty"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// UpdateTutorProfile defines the tutor-editable profile fields.
type UpdateTutorProfile struct {
	Bio        string   `json:"bio"`
	Subjects   []string `json:"subjects" validate:"omitempty,dive,required"`
	HourlyRate *float64 `json:"hourly_rate" validate:"omitempty,gte=0"`
	AvatarURL  string   `json:"avatar_url" validate:"omitempty,url"`
}

func (up *UpdateTutorProfile) Validate(validate *validator.Validate) error {
	up.Bio = core.CleanString(up.Bio)
	for i, s := range up.Subjects {
		up.Subjects[i] = core.CleanString(s)
	}
	return validate.Struct(up)
}

// UpdateStudentProfile defines the student-editable profile fields.
type UpdateStudentProfile struct {
	Bio        string `json:"bio"`
	GradeLevel string `json:"grade_level"`
	AvatarURL  string `json:"avatar_url" validate:"omitempty,url"`
}

func (up *UpdateStudentProfile) Validate(validate *validator.Validate) error {
	up.Bio = core.CleanString(up.Bio)
	up.GradeLevel = core.CleanString(up.GradeLevel)
	return validate.Struct(up)
}

// TutorQueryFilter drives the tutor finder; fields are ANDed.
type TutorQueryFilter struct {
	Search  string   `query:"search"`
	Subject string   `query:"subject"`
	MinRate *float64 `query:"min_rate"`
	MaxRate *float64 `query:"max_rate"`
}

func (qf *TutorQueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Subject == "" && qf.MinRate == nil && qf.MaxRate == nil
}

func (qf *TutorQueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Subject = core.CleanString(qf.Subject)
}
