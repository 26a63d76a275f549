package session

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
	"github.com/darasahq/darasa/realtime"
)

// Table is the realtime change-feed table name for sessions.
const Table = "sessions"

var (
	// errors
	ErrNotFound        = errors.New("session not found")
	ErrDuplicate       = errors.New("a session with this tutor, student and start time already exists")
	ErrIllegalMove     = errors.New("illegal status transition")
	ErrNotParticipant  = errors.New("user is not a participant of this session")
	ErrTerminalSession = errors.New("session is already completed or cancelled")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, s Session, exec ...core.DBExecutor) (Session, error)
		// QuerySessions applies AND on available QueryFilter fields and attaches
		// the denormalized TutorName/StudentName display fields.
		QuerySessions(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Session, error)
		GetSession(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Session, error)
		UpdateSession(ctx context.Context, s Session, exec ...core.DBExecutor) (Session, error)
		UpdateSignaling(ctx context.Context, id string, su SignalingUpdate, exec ...core.DBExecutor) (Session, error)
	}

	// EarningRecorder records a tutor earning when a session completes.
	EarningRecorder interface {
		RecordForSession(ctx context.Context, s Session) error
	}

	ServiceInterface interface {
		Book(ns NewSession) (Session, error)
		Query(filter *QueryFilter, ordering []core.DBOrdering) ([]Session, error)
		QueryForUser(userID string) ([]Session, error)
		GetByID(id string) (Session, error)
		UpdateStatus(id string, next Status, actorID string) (Session, error)
		UpdateNotes(id string, notes string, actorID string) (Session, error)
		UpdateSignaling(id string, su SignalingUpdate) (Session, error)
	}

	Service struct {
		repo    Repository
		broker  *realtime.Broker
		usrSvc  user.ServiceInterface
		mailSvc core.EmailService
		earnSvc EarningRecorder
		conf    *core.Config
		logger  core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	repo Repository,
	broker *realtime.Broker,
	usrSvc user.ServiceInterface,
	mailSvc core.EmailService,
	earnSvc EarningRecorder,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		repo:    repo,
		broker:  broker,
		usrSvc:  usrSvc,
		mailSvc: mailSvc,
		earnSvc: earnSvc,
		conf:    conf,
		logger:  logger,
	}
}

// ChangesFor matches session change events involving the given user.
func ChangesFor(userID string) realtime.Filter {
	return func(ch realtime.Change) bool {
		if ch.Table != Table {
			return false
		}
		s, ok := ch.Payload.(Session)
		if !ok {
			return false
		}
		return s.Involves(userID)
	}
}

// Book creates a new pending session. Booking the same (tutor, student,
// start time) twice fails with a conflict.
func (svc *Service) Book(ns NewSession) (Session, error) {
	ctx := context.Background()

	if _, err := svc.repo.GetSession(ctx, GetFilter{
		TutorID:   ns.TutorID,
		StudentID: ns.StudentID,
		StartTime: ns.StartTime,
	}); err == nil {
		return Session{}, core.NewConflictError(ErrDuplicate)
	} else if errors.Cause(err) != ErrNotFound {
		return Session{}, errors.Wrap(err, "checking duplicate booking")
	}

	now := time.Now().UTC()
	s := Session{
		ID:        uuid.New().String(),
		TutorID:   ns.TutorID,
		StudentID: ns.StudentID,
		StartTime: ns.StartTime.UTC(),
		EndTime:   ns.EndTime.UTC(),
		Subject:   ns.Subject,
		Status:    StatusPending,
		Notes:     ns.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s, err := svc.repo.CreateSession(ctx, s)
	if err != nil {
		return Session{}, err
	}

	svc.publish(realtime.OpInsert, s)
	svc.sendBookedEmail(s)
	return s, nil
}

func (svc *Service) Query(filter *QueryFilter, ordering []core.DBOrdering) ([]Session, error) {
	return svc.repo.QuerySessions(context.Background(), filter, ordering)
}

// QueryForUser returns all sessions where the user is tutor or student,
// ordered by start time ascending.
func (svc *Service) QueryForUser(userID string) ([]Session, error) {
	return svc.repo.QuerySessions(
		context.Background(),
		&QueryFilter{UserID: userID},
		[]core.DBOrdering{{Field: "start_time", Ascending: true}},
	)
}

func (svc *Service) GetByID(id string) (Session, error) {
	return svc.repo.GetSession(context.Background(), GetFilter{ID: id})
}

// UpdateStatus moves a session along its lifecycle. actorID must be a
// participant; illegal transitions (including any move out of a terminal
// status) are rejected.
func (svc *Service) UpdateStatus(id string, next Status, actorID string) (Session, error) {
	ctx := context.Background()

	s, err := svc.repo.GetSession(ctx, GetFilter{ID: id})
	if err != nil {
		return Session{}, err
	}
	if !s.Involves(actorID) {
		return Session{}, ErrNotParticipant
	}
	if s.Status.Terminal() {
		return Session{}, core.NewValidationError(ErrTerminalSession)
	}
	if !s.Status.CanTransitionTo(next) {
		return Session{}, core.NewValidationError(
			ErrIllegalMove,
			core.FieldError{Field: "status", Error: fmt.Sprintf("cannot move from %q to %q", s.Status, next)},
		)
	}

	s.Status = next
	s.UpdatedAt = time.Now().UTC()
	s, err = svc.repo.UpdateSession(ctx, s)
	if err != nil {
		return Session{}, err
	}

	svc.publish(realtime.OpUpdate, s)

	if next == StatusCompleted && svc.earnSvc != nil {
		// earnings recording is best-effort: completion already happened
		if err := svc.earnSvc.RecordForSession(ctx, s); err != nil {
			svc.logger.Error(fmt.Sprintf("recording earning for session %s: %v", s.ID, err), err)
		}
	}
	return s, nil
}

func (svc *Service) UpdateNotes(id string, notes string, actorID string) (Session, error) {
	ctx := context.Background()

	s, err := svc.repo.GetSession(ctx, GetFilter{ID: id})
	if err != nil {
		return Session{}, err
	}
	if !s.Involves(actorID) {
		return Session{}, ErrNotParticipant
	}

	s.Notes = core.CleanString(notes)
	s.UpdatedAt = time.Now().UTC()
	s, err = svc.repo.UpdateSession(ctx, s)
	if err != nil {
		return Session{}, err
	}

	svc.publish(realtime.OpUpdate, s)
	return s, nil
}

// UpdateSignaling relays WebRTC negotiation payloads through the session row.
func (svc *Service) UpdateSignaling(id string, su SignalingUpdate) (Session, error) {
	s, err := svc.repo.UpdateSignaling(context.Background(), id, su)
	if err != nil {
		return Session{}, err
	}
	svc.publish(realtime.OpUpdate, s)
	return s, nil
}

func (svc *Service) publish(op realtime.Op, s Session) {
	if svc.broker != nil {
		svc.broker.Publish(realtime.Change{Table: Table, Op: op, Payload: s})
	}
}

// sendBookedEmail notifies both parties; lookup failures are logged and
// ignored, booking already succeeded.
func (svc *Service) sendBookedEmail(s Session) {
	if svc.mailSvc == nil || svc.usrSvc == nil {
		return
	}
	to := make([]mail.Address, 0, 2)
	for _, id := range []string{s.TutorID, s.StudentID} {
		usr, err := svc.usrSvc.GetByID(id)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("looking up session party %s: %v", id, err))
			continue
		}
		to = append(to, mail.Address{Name: usr.Name, Address: usr.Email})
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           to,
		Subject:      "Session Booked",
		TemplateName: "session-booked",
		TemplateData: struct{ Session Session }{s},
	})
}
