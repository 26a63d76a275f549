package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/review"
)

const reviewColumns = `r.id, r.session_id, r.tutor_id, r.student_id, r.rating, r.comment, r.created_at,
	u.name AS student_name`

const reviewFrom = ` FROM review r JOIN "user" u ON u.id = r.student_id`

type reviewRow struct {
	ID          string      `db:"id"`
	SessionID   string      `db:"session_id"`
	TutorID     string      `db:"tutor_id"`
	StudentID   string      `db:"student_id"`
	Rating      int         `db:"rating"`
	Comment     null.String `db:"comment"`
	CreatedAt   null.Time   `db:"created_at"`
	StudentName null.String `db:"student_name"`
}

type reviewRepository struct {
	exec core.DBExecutor
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(exec core.DBExecutor) *reviewRepository {
	return &reviewRepository{exec: exec}
}

func (repo reviewRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo reviewRepository) unpack(r reviewRow) review.Review {
	return review.Review{
		ID:          r.ID,
		SessionID:   r.SessionID,
		TutorID:     r.TutorID,
		StudentID:   r.StudentID,
		Rating:      r.Rating,
		Comment:     r.Comment.String,
		CreatedAt:   r.CreatedAt.Time,
		StudentName: r.StudentName.String,
	}
}

func (repo reviewRepository) CreateReview(ctx context.Context, r review.Review, exec ...core.DBExecutor) (review.Review, error) {
	query := `INSERT INTO review (id, session_id, tutor_id, student_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		r.ID, r.SessionID, r.TutorID, r.StudentID, r.Rating,
		null.NewString(r.Comment, r.Comment != ""),
		null.NewTime(r.CreatedAt.UTC(), !r.CreatedAt.IsZero()))
	if err != nil {
		if isUniqueViolation(err) {
			return review.Review{}, core.NewConflictError(review.ErrAlreadyExists)
		}
		return review.Review{}, errors.Wrap(err, "inserting review")
	}
	return r, nil
}

func (repo reviewRepository) GetReviewBySession(ctx context.Context, sessionID string, exec ...core.DBExecutor) (review.Review, error) {
	var rows []reviewRow
	query := `SELECT ` + reviewColumns + reviewFrom + ` WHERE r.session_id = $1`
	if err := selectStructs(ctx, repo.getExec(exec), &rows, query, sessionID); err != nil {
		return review.Review{}, errors.Wrap(err, "finding review")
	}
	if len(rows) == 0 {
		return review.Review{}, review.ErrNotFound
	}
	return repo.unpack(rows[0]), nil
}

func (repo reviewRepository) QueryTutorReviews(ctx context.Context, tutorID string, exec ...core.DBExecutor) ([]review.Review, error) {
	var rows []reviewRow
	query := `SELECT ` + reviewColumns + reviewFrom + ` WHERE r.tutor_id = $1 ORDER BY r.created_at DESC`
	if err := selectStructs(ctx, repo.getExec(exec), &rows, query, tutorID); err != nil {
		return nil, errors.Wrap(err, "querying reviews")
	}

	reviews := make([]review.Review, 0, len(rows))
	for _, r := range rows {
		reviews = append(reviews, repo.unpack(r))
	}
	return reviews, nil
}

func (repo reviewRepository) TutorAverageRating(ctx context.Context, tutorID string, exec ...core.DBExecutor) (float64, error) {
	var avg float64
	query := `SELECT COALESCE(AVG(rating), 0) FROM review WHERE tutor_id = $1`
	if err := repo.getExec(exec).QueryRowContext(ctx, query, tutorID).Scan(&avg); err != nil {
		return 0, errors.Wrap(err, "averaging ratings")
	}
	return avg, nil
}
