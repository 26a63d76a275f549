package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/profile"
)

type profileRepository struct {
	db *DB
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *DB) *profileRepository {
	return &profileRepository{db: db}
}

// attachTutor fills display name and rating; callers must hold the lock.
func (repo *profileRepository) attachTutor(p profile.TutorProfile) profile.TutorProfile {
	p.Name = repo.db.userName(p.UserID)

	var sum, cnt float64
	for _, r := range repo.db.reviews {
		if r.TutorID == p.UserID {
			sum += float64(r.Rating)
			cnt++
		}
	}
	if cnt > 0 {
		p.AverageRating = sum / cnt
	}
	return p
}

func (repo *profileRepository) GetTutorProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (profile.TutorProfile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.tutorProfiles[userID]; ok {
		return repo.attachTutor(*p), nil
	}
	return profile.TutorProfile{}, profile.ErrNotFound
}

func (repo *profileRepository) QueryTutorProfiles(ctx context.Context, filter *profile.TutorQueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]profile.TutorProfile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	profiles := make([]profile.TutorProfile, 0)
	for _, p := range repo.db.tutorProfiles {
		attached := repo.attachTutor(*p)
		if filter != nil && !matchTutor(attached, filter) {
			continue
		}
		profiles = append(profiles, attached)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].UserID < profiles[j].UserID })
	return profiles, nil
}

func matchTutor(p profile.TutorProfile, filter *profile.TutorQueryFilter) bool {
	if filter.Search != "" {
		kw := strings.ToLower(filter.Search)
		var subjMatch bool
		for _, subj := range p.Subjects {
			if strings.Contains(strings.ToLower(subj), kw) {
				subjMatch = true
				break
			}
		}
		if !strings.Contains(strings.ToLower(p.Name), kw) &&
			!strings.Contains(strings.ToLower(p.Bio), kw) && !subjMatch {
			return false
		}
	}
	if filter.Subject != "" {
		var match bool
		for _, subj := range p.Subjects {
			if strings.EqualFold(subj, filter.Subject) {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	if filter.MinRate != nil && p.HourlyRate < *filter.MinRate {
		return false
	}
	if filter.MaxRate != nil && p.HourlyRate > *filter.MaxRate {
		return false
	}
	return true
}

func (repo *profileRepository) UpsertTutorProfile(ctx context.Context, p profile.TutorProfile, exec ...core.DBExecutor) (profile.TutorProfile, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.tutorProfiles[p.UserID] = &p
	return repo.attachTutor(p), nil
}

func (repo *profileRepository) GetStudentProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (profile.StudentProfile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.studentProfiles[userID]; ok {
		sp := *p
		sp.Name = repo.db.userName(sp.UserID)
		return sp, nil
	}
	return profile.StudentProfile{}, profile.ErrNotFound
}

func (repo *profileRepository) UpsertStudentProfile(ctx context.Context, p profile.StudentProfile, exec ...core.DBExecutor) (profile.StudentProfile, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.studentProfiles[p.UserID] = &p
	p.Name = repo.db.userName(p.UserID)
	return p, nil
}
