package inmemdb

import (
	"context"
	"sort"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/earning"
)

type earningRepository struct {
	db *DB
}

var _ earning.Repository = (*earningRepository)(nil) // interface compliance check

func NewEarningRepository(db *DB) *earningRepository {
	return &earningRepository{db: db}
}

func (repo *earningRepository) attach(e earning.Earning) earning.Earning {
	if s, ok := repo.db.sessions[e.SessionID]; ok {
		e.Subject = s.Subject
	}
	return e
}

func (repo *earningRepository) CreateEarning(ctx context.Context, e earning.Earning, exec ...core.DBExecutor) (earning.Earning, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.earnings[e.ID] = &e
	return repo.attach(e), nil
}

func (repo *earningRepository) GetEarningBySession(ctx context.Context, sessionID string, exec ...core.DBExecutor) (earning.Earning, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, e := range repo.db.earnings {
		if e.SessionID == sessionID {
			return repo.attach(*e), nil
		}
	}
	return earning.Earning{}, earning.ErrNotFound
}

func (repo *earningRepository) QueryTutorEarnings(ctx context.Context, tutorID string, exec ...core.DBExecutor) ([]earning.Earning, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	earnings := make([]earning.Earning, 0)
	for _, e := range repo.db.earnings {
		if e.TutorID == tutorID {
			earnings = append(earnings, repo.attach(*e))
		}
	}
	sort.Slice(earnings, func(i, j int) bool { return earnings[j].CreatedAt.Before(earnings[i].CreatedAt) })
	return earnings, nil
}

func (repo *earningRepository) SummarizeTutorEarnings(ctx context.Context, tutorID string, exec ...core.DBExecutor) (earning.Summary, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var sum earning.Summary
	for _, e := range repo.db.earnings {
		if e.TutorID != tutorID {
			continue
		}
		sum.Total += e.Amount
		sum.Count++
		switch e.Status {
		case earning.StatusPending:
			sum.Pending += e.Amount
		case earning.StatusPaid:
			sum.Paid += e.Amount
		}
	}
	return sum, nil
}

func (repo *earningRepository) MarkEarningsPaid(ctx context.Context, tutorID string, exec ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var cnt int
	for _, e := range repo.db.earnings {
		if e.TutorID == tutorID && e.Status == earning.StatusPending {
			e.Status = earning.StatusPaid
			cnt++
		}
	}
	return cnt, nil
}
