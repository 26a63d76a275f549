package profile

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

var ErrNotFound = errors.New("profile not found")

type (
	Repository interface {
		GetTutorProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (TutorProfile, error)
		// QueryTutorProfiles attaches the denormalized Name and AverageRating fields.
		QueryTutorProfiles(ctx context.Context, filter *TutorQueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]TutorProfile, error)
		UpsertTutorProfile(ctx context.Context, p TutorProfile, exec ...core.DBExecutor) (TutorProfile, error)
		GetStudentProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (StudentProfile, error)
		UpsertStudentProfile(ctx context.Context, p StudentProfile, exec ...core.DBExecutor) (StudentProfile, error)
	}

	ServiceInterface interface {
		GetTutor(userID string) (TutorProfile, error)
		QueryTutors(filter *TutorQueryFilter, ordering []core.DBOrdering) ([]TutorProfile, error)
		UpdateTutor(userID string, up UpdateTutorProfile) (TutorProfile, error)
		SetMeetingTokens(userID, access, refresh string, expiry time.Time) error
		GetStudent(userID string) (StudentProfile, error)
		UpdateStudent(userID string, up UpdateStudentProfile) (StudentProfile, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) GetTutor(userID string) (TutorProfile, error) {
	return svc.repo.GetTutorProfile(context.Background(), userID)
}

func (svc *Service) QueryTutors(filter *TutorQueryFilter, ordering []core.DBOrdering) ([]TutorProfile, error) {
	return svc.repo.QueryTutorProfiles(context.Background(), filter, ordering)
}

func (svc *Service) UpdateTutor(userID string, up UpdateTutorProfile) (TutorProfile, error) {
	ctx := context.Background()

	p, err := svc.repo.GetTutorProfile(ctx, userID)
	if err != nil && errors.Cause(err) != ErrNotFound {
		return TutorProfile{}, err
	}
	p.UserID = userID
	p.Bio = up.Bio
	if up.Subjects != nil {
		p.Subjects = up.Subjects
	}
	if up.HourlyRate != nil {
		p.HourlyRate = *up.HourlyRate
	}
	if up.AvatarURL != "" {
		p.AvatarURL = up.AvatarURL
	}
	p.UpdatedAt = time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}
	return svc.repo.UpsertTutorProfile(ctx, p)
}

// SetMeetingTokens stores the meeting API OAuth tokens against the tutor profile.
func (svc *Service) SetMeetingTokens(userID, access, refresh string, expiry time.Time) error {
	ctx := context.Background()

	p, err := svc.repo.GetTutorProfile(ctx, userID)
	if err != nil && errors.Cause(err) != ErrNotFound {
		return err
	}
	p.UserID = userID
	p.MeetingAccessToken = access
	p.MeetingRefreshToken = refresh
	p.MeetingTokenExpiry = expiry.UTC()
	p.UpdatedAt = time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}
	_, err = svc.repo.UpsertTutorProfile(ctx, p)
	return err
}

func (svc *Service) GetStudent(userID string) (StudentProfile, error) {
	return svc.repo.GetStudentProfile(context.Background(), userID)
}

func (svc *Service) UpdateStudent(userID string, up UpdateStudentProfile) (StudentProfile, error) {
	ctx := context.Background()

	p, err := svc.repo.GetStudentProfile(ctx, userID)
	if err != nil && errors.Cause(err) != ErrNotFound {
		return StudentProfile{}, err
	}
	p.UserID = userID
	p.Bio = up.Bio
	p.GradeLevel = up.GradeLevel
	if up.AvatarURL != "" {
		p.AvatarURL = up.AvatarURL
	}
	p.UpdatedAt = time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}
	return svc.repo.UpsertStudentProfile(ctx, p)
}
