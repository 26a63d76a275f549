package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/realtime"
)

type fakeRepo struct {
	sessions map[string]Session
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[string]Session)}
}

func (r *fakeRepo) CreateSession(_ context.Context, s Session, _ ...core.DBExecutor) (Session, error) {
	r.sessions[s.ID] = s
	return s, nil
}

func (r *fakeRepo) QuerySessions(_ context.Context, filter *QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]Session, error) {
	var out []Session
	for _, s := range r.sessions {
		if filter != nil && filter.UserID != "" && !s.Involves(filter.UserID) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeRepo) GetSession(_ context.Context, filter GetFilter, _ ...core.DBExecutor) (Session, error) {
	if filter.ID != "" {
		if s, ok := r.sessions[filter.ID]; ok {
			return s, nil
		}
		return Session{}, ErrNotFound
	}
	for _, s := range r.sessions {
		if s.TutorID == filter.TutorID && s.StudentID == filter.StudentID && s.StartTime.Equal(filter.StartTime.UTC()) {
			return s, nil
		}
	}
	return Session{}, ErrNotFound
}

func (r *fakeRepo) UpdateSession(_ context.Context, s Session, _ ...core.DBExecutor) (Session, error) {
	if _, ok := r.sessions[s.ID]; !ok {
		return Session{}, ErrNotFound
	}
	r.sessions[s.ID] = s
	return s, nil
}

func (r *fakeRepo) UpdateSignaling(_ context.Context, id string, su SignalingUpdate, _ ...core.DBExecutor) (Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
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
	r.sessions[id] = s
	return s, nil
}

type stdLogger struct{ t *testing.T }

func (l stdLogger) Debug(msg string, _ ...interface{}) { l.t.Log(msg) }
func (l stdLogger) Info(msg string, _ ...interface{})  { l.t.Log(msg) }
func (l stdLogger) Warn(msg string, _ ...interface{})  { l.t.Log(msg) }
func (l stdLogger) Error(msg string, _ ...interface{}) { l.t.Log(msg) }
func (l stdLogger) Fatal(msg string, _ ...interface{}) { l.t.Fatal(msg) }

func newTestService(t *testing.T, repo Repository, broker *realtime.Broker) *Service {
	return NewService(repo, broker, nil, nil, nil, &core.Config{}, stdLogger{t})
}

func newBooking(start time.Time) NewSession {
	return NewSession{
		TutorID:   uuid.New().String(),
		StudentID: uuid.New().String(),
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Subject:   "Physics",
	}
}

func TestService_Book(t *testing.T) {
	repo := newFakeRepo()
	broker := realtime.NewBroker()
	defer broker.Close()
	svc := newTestService(t, repo, broker)

	sub := broker.Subscribe(nil)
	start := time.Now().Add(24 * time.Hour).UTC()
	ns := newBooking(start)

	s, err := svc.Book(ns)
	assert.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, StatusPending, s.Status)
	assert.True(t, s.StartTime.Equal(start))

	// insert event published
	select {
	case ch := <-sub.Events():
		assert.Equal(t, Table, ch.Table)
		assert.Equal(t, realtime.OpInsert, ch.Op)
	case <-time.After(time.Second):
		t.Fatal("no change event published")
	}

	// duplicate (tutor, student, start_time) booking conflicts
	_, err = svc.Book(ns)
	assert.True(t, core.IsConflict(err), "want conflict, got %v", err)
	assert.Equal(t, ErrDuplicate, errors.Cause(err).(*core.ConflictError).Err)
}

func TestService_UpdateStatus(t *testing.T) {
	repo := newFakeRepo()
	broker := realtime.NewBroker()
	defer broker.Close()
	svc := newTestService(t, repo, broker)

	s, err := svc.Book(newBooking(time.Now().Add(time.Hour)))
	assert.NoError(t, err)

	// only participants may move the session
	_, err = svc.UpdateStatus(s.ID, StatusScheduled, "somebody-else")
	assert.Equal(t, ErrNotParticipant, errors.Cause(err))

	s, err = svc.UpdateStatus(s.ID, StatusScheduled, s.TutorID)
	assert.NoError(t, err)
	assert.Equal(t, StatusScheduled, s.Status)

	// illegal jump
	_, err = svc.UpdateStatus(s.ID, StatusScheduled, s.TutorID)
	var vErr *core.ValidationError
	assert.True(t, errors.As(err, &vErr), "want validation error, got %v", err)

	s, err = svc.UpdateStatus(s.ID, StatusInProgress, s.StudentID)
	assert.NoError(t, err)
	s, err = svc.UpdateStatus(s.ID, StatusCompleted, s.StudentID)
	assert.NoError(t, err)

	// terminal sessions reject all moves
	_, err = svc.UpdateStatus(s.ID, StatusCancelled, s.StudentID)
	assert.True(t, errors.As(err, &vErr))

	// unknown session
	_, err = svc.UpdateStatus(uuid.New().String(), StatusScheduled, s.TutorID)
	assert.Equal(t, ErrNotFound, errors.Cause(err))
}

func TestService_UpdateSignaling(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, nil)

	s, err := svc.Book(newBooking(time.Now().Add(time.Hour)))
	assert.NoError(t, err)

	s, err = svc.UpdateSignaling(s.ID, SignalingUpdate{Offer: `{"sdp":"v=0"}`})
	assert.NoError(t, err)
	assert.Equal(t, `{"sdp":"v=0"}`, s.Offer)

	s, err = svc.UpdateSignaling(s.ID, SignalingUpdate{OfferCandidate: "cand-1"})
	assert.NoError(t, err)
	s, err = svc.UpdateSignaling(s.ID, SignalingUpdate{OfferCandidate: "cand-2", Answer: `{"sdp":"v=1"}`})
	assert.NoError(t, err)
	assert.Equal(t, []string{"cand-1", "cand-2"}, s.OfferCandidates)
	assert.Equal(t, `{"sdp":"v=1"}`, s.Answer)

	s, err = svc.UpdateSignaling(s.ID, SignalingUpdate{Clear: true})
	assert.NoError(t, err)
	assert.Empty(t, s.Offer)
	assert.Empty(t, s.OfferCandidates)
}
