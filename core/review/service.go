package review

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/session"
)

var (
	// errors
	ErrNotFound      = errors.New("review not found")
	ErrAlreadyExists = errors.New("this session has already been reviewed")
	ErrNotCompleted  = errors.New("only completed sessions can be reviewed")
	ErrNotStudent    = errors.New("only the session's student can leave a review")
)

type (
	Repository interface {
		CreateReview(ctx context.Context, r Review, exec ...core.DBExecutor) (Review, error)
		GetReviewBySession(ctx context.Context, sessionID string, exec ...core.DBExecutor) (Review, error)
		// QueryTutorReviews returns a tutor's reviews, newest first, with
		// the denormalized StudentName attached.
		QueryTutorReviews(ctx context.Context, tutorID string, exec ...core.DBExecutor) ([]Review, error)
		TutorAverageRating(ctx context.Context, tutorID string, exec ...core.DBExecutor) (float64, error)
	}

	ServiceInterface interface {
		Create(studentID string, nr NewReview) (Review, error)
		QueryForTutor(tutorID string) ([]Review, error)
		AverageRating(tutorID string) (float64, error)
	}

	Service struct {
		repo    Repository
		sessSvc session.ServiceInterface
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, sessSvc session.ServiceInterface) *Service {
	return &Service{repo: repo, sessSvc: sessSvc}
}

// Create records a review: the session must exist, be completed, belong to
// the reviewing student, and not have been reviewed before.
func (svc *Service) Create(studentID string, nr NewReview) (Review, error) {
	ctx := context.Background()

	s, err := svc.sessSvc.GetByID(nr.SessionID)
	if err != nil {
		return Review{}, err
	}
	if s.StudentID != studentID {
		return Review{}, ErrNotStudent
	}
	if s.Status != session.StatusCompleted {
		return Review{}, core.NewValidationError(ErrNotCompleted)
	}

	if _, err := svc.repo.GetReviewBySession(ctx, nr.SessionID); err == nil {
		return Review{}, core.NewConflictError(ErrAlreadyExists)
	} else if errors.Cause(err) != ErrNotFound {
		return Review{}, errors.Wrap(err, "checking existing review")
	}

	r := Review{
		ID:        uuid.New().String(),
		SessionID: s.ID,
		TutorID:   s.TutorID,
		StudentID: s.StudentID,
		Rating:    nr.Rating,
		Comment:   nr.Comment,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateReview(ctx, r)
}

func (svc *Service) QueryForTutor(tutorID string) ([]Review, error) {
	return svc.repo.QueryTutorReviews(context.Background(), tutorID)
}

func (svc *Service) AverageRating(tutorID string) (float64, error) {
	return svc.repo.TutorAverageRating(context.Background(), tutorID)
}
