package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/session"
)

type sessionRepository struct {
	db *DB
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *DB) *sessionRepository {
	return &sessionRepository{db: db}
}

// attach fills the denormalized display names; callers must hold the lock.
func (repo *sessionRepository) attach(s session.Session) session.Session {
	s.TutorName = repo.db.userName(s.TutorID)
	s.StudentName = repo.db.userName(s.StudentID)
	return s
}

func (repo *sessionRepository) CreateSession(ctx context.Context, s session.Session, exec ...core.DBExecutor) (session.Session, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.sessions {
		if existing.TutorID == s.TutorID && existing.StudentID == s.StudentID && existing.StartTime.Equal(s.StartTime) {
			return session.Session{}, core.NewConflictError(session.ErrDuplicate)
		}
	}
	repo.db.sessions[s.ID] = &s
	return repo.attach(s), nil
}

func (repo *sessionRepository) QuerySessions(ctx context.Context, filter *session.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]session.Session, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sessions := make([]session.Session, 0)
	for _, s := range repo.db.sessions {
		if filter != nil && !matchSession(*s, filter) {
			continue
		}
		sessions = append(sessions, repo.attach(*s))
	}

	asc := true
	if len(ordering) > 0 {
		asc = ordering[0].Ascending
	}
	sort.Slice(sessions, func(i, j int) bool {
		if asc {
			return sessions[i].StartTime.Before(sessions[j].StartTime)
		}
		return sessions[j].StartTime.Before(sessions[i].StartTime)
	})
	return sessions, nil
}

func matchSession(s session.Session, filter *session.QueryFilter) bool {
	if filter.TutorID != "" && s.TutorID != filter.TutorID {
		return false
	}
	if filter.StudentID != "" && s.StudentID != filter.StudentID {
		return false
	}
	if filter.UserID != "" && !s.Involves(filter.UserID) {
		return false
	}
	if len(filter.Statuses) > 0 {
		var match bool
		for _, st := range filter.Statuses {
			if s.Status == st {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	if !filter.StartFrom.IsZero() && s.StartTime.Before(filter.StartFrom) {
		return false
	}
	if !filter.StartTo.IsZero() && !s.StartTime.Before(filter.StartTo) {
		return false
	}
	return true
}

func (repo *sessionRepository) GetSession(ctx context.Context, filter session.GetFilter, exec ...core.DBExecutor) (session.Session, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if s, ok := repo.db.sessions[filter.ID]; ok {
			return repo.attach(*s), nil
		}
		return session.Session{}, session.ErrNotFound
	}
	if filter.TutorID != "" && filter.StudentID != "" && !filter.StartTime.IsZero() {
		for _, s := range repo.db.sessions {
			if s.TutorID == filter.TutorID && s.StudentID == filter.StudentID && s.StartTime.Equal(filter.StartTime) {
				return repo.attach(*s), nil
			}
		}
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) UpdateSession(ctx context.Context, s session.Session, exec ...core.DBExecutor) (session.Session, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	existing, ok := repo.db.sessions[s.ID]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	// signaling fields are owned by UpdateSignaling
	s.Offer = existing.Offer
	s.Answer = existing.Answer
	s.OfferCandidates = existing.OfferCandidates
	s.AnswerCandidates = existing.AnswerCandidates
	repo.db.sessions[s.ID] = &s
	return repo.attach(s), nil
}

func (repo *sessionRepository) UpdateSignaling(ctx context.Context, id string, su session.SignalingUpdate, exec ...core.DBExecutor) (session.Session, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s, ok := repo.db.sessions[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}

	if su.Clear {
		s.Offer, s.Answer = "", ""
		s.OfferCandidates, s.AnswerCandidates = nil, nil
	} else {
		if su.Offer != "" {
			s.Offer = su.Offer
		}
		if su.Answer != "" {
			s.Answer = su.Answer
		}
		if su.OfferCandidate != "" {
			s.OfferCandidates = append(s.OfferCandidates, su.OfferCandidate)
		}
		if su.AnswerCandidate != "" {
			s.AnswerCandidates = append(s.AnswerCandidates, su.AnswerCandidate)
		}
	}
	s.UpdatedAt = time.Now().UTC()
	return repo.attach(*s), nil
}
