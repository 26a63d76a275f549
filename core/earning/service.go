package earning

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/profile"
	"github.com/darasahq/darasa/core/session"
)

var ErrNotFound = errors.New("earning not found")

type (
	Repository interface {
		CreateEarning(ctx context.Context, e Earning, exec ...core.DBExecutor) (Earning, error)
		GetEarningBySession(ctx context.Context, sessionID string, exec ...core.DBExecutor) (Earning, error)
		// QueryTutorEarnings returns a tutor's earnings newest first with the
		// denormalized session Subject attached.
		QueryTutorEarnings(ctx context.Context, tutorID string, exec ...core.DBExecutor) ([]Earning, error)
		SummarizeTutorEarnings(ctx context.Context, tutorID string, exec ...core.DBExecutor) (Summary, error)
		MarkEarningsPaid(ctx context.Context, tutorID string, exec ...core.DBExecutor) (int, error)
	}

	ServiceInterface interface {
		RecordForSession(ctx context.Context, s session.Session) error
		QueryForTutor(tutorID string) ([]Earning, error)
		Summarize(tutorID string) (Summary, error)
		MarkPaid(tutorID string) (int, error)
	}

	Service struct {
		repo    Repository
		profSvc profile.ServiceInterface
	}
)

var _ ServiceInterface = (*Service)(nil)
var _ session.EarningRecorder = (*Service)(nil)

func NewService(repo Repository, profSvc profile.ServiceInterface) *Service {
	return &Service{repo: repo, profSvc: profSvc}
}

// RecordForSession credits the tutor for a completed session at their hourly
// rate, prorated by session length. Recording twice for the same session is
// a no-op.
func (svc *Service) RecordForSession(ctx context.Context, s session.Session) error {
	if _, err := svc.repo.GetEarningBySession(ctx, s.ID); err == nil {
		return nil // already recorded
	} else if errors.Cause(err) != ErrNotFound {
		return errors.Wrap(err, "checking existing earning")
	}

	var rate float64
	if p, err := svc.profSvc.GetTutor(s.TutorID); err == nil {
		rate = p.HourlyRate
	} else if errors.Cause(err) != profile.ErrNotFound {
		return errors.Wrap(err, "getting tutor profile")
	}

	e := Earning{
		ID:        uuid.New().String(),
		TutorID:   s.TutorID,
		SessionID: s.ID,
		Amount:    rate * s.EndTime.Sub(s.StartTime).Hours(),
		Status:    StatusPending,
		CreatedAt: s.UpdatedAt,
	}
	_, err := svc.repo.CreateEarning(ctx, e)
	return err
}

func (svc *Service) QueryForTutor(tutorID string) ([]Earning, error) {
	return svc.repo.QueryTutorEarnings(context.Background(), tutorID)
}

func (svc *Service) Summarize(tutorID string) (Summary, error) {
	return svc.repo.SummarizeTutorEarnings(context.Background(), tutorID)
}

func (svc *Service) MarkPaid(tutorID string) (int, error) {
	return svc.repo.MarkEarningsPaid(context.Background(), tutorID)
}
