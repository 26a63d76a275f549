package sqlxrepos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/session"
)

const sessionColumns = `s.id, s.tutor_id, s.student_id, s.start_time, s.end_time, s.subject, s.status, s.notes,
	s.offer, s.answer, s.offer_candidates, s.answer_candidates, s.created_at, s.updated_at,
	tu.name AS tutor_name, su.name AS student_name`

const sessionFrom = ` FROM session s
	JOIN "user" tu ON tu.id = s.tutor_id
	JOIN "user" su ON su.id = s.student_id`

type sessionRow struct {
	ID               string         `db:"id"`
	TutorID          string         `db:"tutor_id"`
	StudentID        string         `db:"student_id"`
	StartTime        null.Time      `db:"start_time"`
	EndTime          null.Time      `db:"end_time"`
	Subject          null.String    `db:"subject"`
	Status           string         `db:"status"`
	Notes            null.String    `db:"notes"`
	Offer            null.String    `db:"offer"`
	Answer           null.String    `db:"answer"`
	OfferCandidates  pq.StringArray `db:"offer_candidates"`
	AnswerCandidates pq.StringArray `db:"answer_candidates"`
	CreatedAt        null.Time      `db:"created_at"`
	UpdatedAt        null.Time      `db:"updated_at"`
	TutorName        null.String    `db:"tutor_name"`
	StudentName      null.String    `db:"student_name"`
}

type sessionRepository struct {
	exec core.DBExecutor
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(exec core.DBExecutor) *sessionRepository {
	return &sessionRepository{exec: exec}
}

func (repo sessionRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo sessionRepository) pack(s session.Session) sessionRow {
	return sessionRow{
		ID:               s.ID,
		TutorID:          s.TutorID,
		StudentID:        s.StudentID,
		StartTime:        null.NewTime(s.StartTime.UTC(), !s.StartTime.IsZero()),
		EndTime:          null.NewTime(s.EndTime.UTC(), !s.EndTime.IsZero()),
		Subject:          null.NewString(s.Subject, s.Subject != ""),
		Status:           string(s.Status),
		Notes:            null.NewString(s.Notes, s.Notes != ""),
		Offer:            null.NewString(s.Offer, s.Offer != ""),
		Answer:           null.NewString(s.Answer, s.Answer != ""),
		OfferCandidates:  s.OfferCandidates,
		AnswerCandidates: s.AnswerCandidates,
		CreatedAt:        null.NewTime(s.CreatedAt.UTC(), !s.CreatedAt.IsZero()),
		UpdatedAt:        null.NewTime(s.UpdatedAt.UTC(), !s.UpdatedAt.IsZero()),
	}
}

func (repo sessionRepository) unpack(r sessionRow) session.Session {
	return session.Session{
		ID:               r.ID,
		TutorID:          r.TutorID,
		StudentID:        r.StudentID,
		StartTime:        r.StartTime.Time,
		EndTime:          r.EndTime.Time,
		Subject:          r.Subject.String,
		Status:           session.Status(r.Status),
		Notes:            r.Notes.String,
		Offer:            r.Offer.String,
		Answer:           r.Answer.String,
		OfferCandidates:  r.OfferCandidates,
		AnswerCandidates: r.AnswerCandidates,
		CreatedAt:        r.CreatedAt.Time,
		UpdatedAt:        r.UpdatedAt.Time,
		TutorName:        r.TutorName.String,
		StudentName:      r.StudentName.String,
	}
}

func (repo sessionRepository) unpackSlice(rows []sessionRow) []session.Session {
	sessions := make([]session.Session, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, repo.unpack(r))
	}
	return sessions
}

func (repo sessionRepository) CreateSession(ctx context.Context, s session.Session, exec ...core.DBExecutor) (session.Session, error) {
	r := repo.pack(s)

	query := `INSERT INTO session (id, tutor_id, student_id, start_time, end_time, subject, status, notes,
		offer, answer, offer_candidates, answer_candidates, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		r.ID, r.TutorID, r.StudentID, r.StartTime, r.EndTime, r.Subject, r.Status, r.Notes,
		r.Offer, r.Answer, r.OfferCandidates, r.AnswerCandidates, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return session.Session{}, core.NewConflictError(session.ErrDuplicate)
		}
		return session.Session{}, errors.Wrap(err, "inserting session")
	}
	return s, nil
}

func (repo sessionRepository) QuerySessions(ctx context.Context, filter *session.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]session.Session, error) {
	var qb queryBuilder

	if filter != nil {
		if filter.TutorID != "" {
			qb.and("s.tutor_id = " + qb.arg(filter.TutorID))
		}
		if filter.StudentID != "" {
			qb.and("s.student_id = " + qb.arg(filter.StudentID))
		}
		if filter.UserID != "" {
			val := qb.arg(filter.UserID)
			qb.and(fmt.Sprintf("(s.tutor_id = %[1]s OR s.student_id = %[1]s)", val))
		}
		if len(filter.Statuses) > 0 {
			statuses := make(pq.StringArray, 0, len(filter.Statuses))
			for _, st := range filter.Statuses {
				statuses = append(statuses, string(st))
			}
			qb.and(fmt.Sprintf("s.status = ANY (%s)", qb.arg(statuses)))
		}
		if !filter.StartFrom.IsZero() {
			qb.and("s.start_time >= " + qb.arg(filter.StartFrom.UTC()))
		}
		if !filter.StartTo.IsZero() {
			qb.and("s.start_time < " + qb.arg(filter.StartTo.UTC()))
		}
	}

	var rows []sessionRow
	query := `SELECT ` + sessionColumns + sessionFrom + qb.clause() + sessionOrderClause(ordering)
	if err := selectStructs(ctx, repo.getExec(exec), &rows, query, qb.args...); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	return repo.unpackSlice(rows), nil
}

func (repo sessionRepository) GetSession(ctx context.Context, filter session.GetFilter, exec ...core.DBExecutor) (session.Session, error) {
	var qb queryBuilder

	if filter.ID != "" {
		if _, err := uuid.Parse(filter.ID); err != nil {
			return session.Session{}, session.ErrNotFound
		}
		qb.and("s.id = " + qb.arg(filter.ID))
	} else if filter.TutorID != "" && filter.StudentID != "" && !filter.StartTime.IsZero() {
		qb.and("s.tutor_id = " + qb.arg(filter.TutorID))
		qb.and("s.student_id = " + qb.arg(filter.StudentID))
		qb.and("s.start_time = " + qb.arg(filter.StartTime.UTC()))
	} else {
		return session.Session{}, session.ErrNotFound
	}

	var rows []sessionRow
	query := `SELECT ` + sessionColumns + sessionFrom + qb.clause() + ` LIMIT 1`
	if err := selectStructs(ctx, repo.getExec(exec), &rows, query, qb.args...); err != nil {
		return session.Session{}, errors.Wrap(err, "finding session")
	}
	if len(rows) == 0 {
		return session.Session{}, session.ErrNotFound
	}
	return repo.unpack(rows[0]), nil
}

func (repo sessionRepository) UpdateSession(ctx context.Context, s session.Session, exec ...core.DBExecutor) (session.Session, error) {
	r := repo.pack(s)

	query := `UPDATE session SET start_time = $2, end_time = $3, subject = $4, status = $5, notes = $6, updated_at = $7
		WHERE id = $1`
	res, err := repo.getExec(exec).ExecContext(ctx, query,
		r.ID, r.StartTime, r.EndTime, r.Subject, r.Status, r.Notes, r.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return session.Session{}, core.NewConflictError(session.ErrDuplicate)
		}
		return session.Session{}, errors.Wrap(err, "updating session")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return session.Session{}, session.ErrNotFound
	}
	return s, nil
}

func (repo sessionRepository) UpdateSignaling(ctx context.Context, id string, su session.SignalingUpdate, exec ...core.DBExecutor) (session.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return session.Session{}, session.ErrNotFound
	}

	var qb queryBuilder
	var sets []string
	if su.Clear {
		sets = append(sets, "offer = NULL", "answer = NULL", "offer_candidates = NULL", "answer_candidates = NULL")
	} else {
		if su.Offer != "" {
			sets = append(sets, "offer = "+qb.arg(su.Offer))
		}
		if su.Answer != "" {
			sets = append(sets, "answer = "+qb.arg(su.Answer))
		}
		if su.OfferCandidate != "" {
			sets = append(sets, "offer_candidates = ARRAY_APPEND(COALESCE(offer_candidates, '{}'), "+qb.arg(su.OfferCandidate)+")")
		}
		if su.AnswerCandidate != "" {
			sets = append(sets, "answer_candidates = ARRAY_APPEND(COALESCE(answer_candidates, '{}'), "+qb.arg(su.AnswerCandidate)+")")
		}
	}
	exe := repo.getExec(exec)

	if len(sets) > 0 {
		sets = append(sets, "updated_at = NOW()")
		query := "UPDATE session SET " + joinComma(sets) + " WHERE id = " + qb.arg(id)
		res, err := exe.ExecContext(ctx, query, qb.args...)
		if err != nil {
			return session.Session{}, errors.Wrap(err, "updating session signaling")
		}
		if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
			return session.Session{}, session.ErrNotFound
		}
	}
	return repo.GetSession(ctx, session.GetFilter{ID: id}, exe)
}

// sessionOrderClause qualifies bare columns with the "s" alias used by the
// session select.
func sessionOrderClause(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return ""
	}
	qualified := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		ord.Field = "s." + ord.Field
		qualified = append(qualified, ord)
	}
	return orderClause(qualified)
}
