package inmemdb

import (
	"context"
	"sort"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/review"
)

type reviewRepository struct {
	db *DB
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(db *DB) *reviewRepository {
	return &reviewRepository{db: db}
}

func (repo *reviewRepository) attach(r review.Review) review.Review {
	r.StudentName = repo.db.userName(r.StudentID)
	return r
}

func (repo *reviewRepository) CreateReview(ctx context.Context, r review.Review, exec ...core.DBExecutor) (review.Review, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.reviews {
		if existing.SessionID == r.SessionID {
			return review.Review{}, core.NewConflictError(review.ErrAlreadyExists)
		}
	}
	repo.db.reviews[r.ID] = &r
	return repo.attach(r), nil
}

func (repo *reviewRepository) GetReviewBySession(ctx context.Context, sessionID string, exec ...core.DBExecutor) (review.Review, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, r := range repo.db.reviews {
		if r.SessionID == sessionID {
			return repo.attach(*r), nil
		}
	}
	return review.Review{}, review.ErrNotFound
}

func (repo *reviewRepository) QueryTutorReviews(ctx context.Context, tutorID string, exec ...core.DBExecutor) ([]review.Review, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	reviews := make([]review.Review, 0)
	for _, r := range repo.db.reviews {
		if r.TutorID == tutorID {
			reviews = append(reviews, repo.attach(*r))
		}
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[j].CreatedAt.Before(reviews[i].CreatedAt) })
	return reviews, nil
}

func (repo *reviewRepository) TutorAverageRating(ctx context.Context, tutorID string, exec ...core.DBExecutor) (float64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var sum, cnt float64
	for _, r := range repo.db.reviews {
		if r.TutorID == tutorID {
			sum += float64(r.Rating)
			cnt++
		}
	}
	if cnt == 0 {
		return 0, nil
	}
	return sum / cnt, nil
}
