package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/earning"
)

const earningColumns = `e.id, e.tutor_id, e.session_id, e.amount, e.status, e.created_at,
	s.subject AS subject`

const earningFrom = ` FROM earning e JOIN session s ON s.id = e.session_id`

type earningRow struct {
	ID        string      `db:"id"`
	TutorID   string      `db:"tutor_id"`
	SessionID string      `db:"session_id"`
	Amount    float64     `db:"amount"`
	Status    string      `db:"status"`
	CreatedAt null.Time   `db:"created_at"`
	Subject   null.String `db:"subject"`
}

type earningRepository struct {
	exec core.DBExecutor
}

var _ earning.Repository = (*earningRepository)(nil) // interface compliance check

func NewEarningRepository(exec core.DBExecutor) *earningRepository {
	return &earningRepository{exec: exec}
}

func (repo earningRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo earningRepository) unpack(r earningRow) earning.Earning {
	return earning.Earning{
		ID:        r.ID,
		TutorID:   r.TutorID,
		SessionID: r.SessionID,
		Amount:    r.Amount,
		Status:    earning.Status(r.Status),
		CreatedAt: r.CreatedAt.Time,
		Subject:   r.Subject.String,
	}
}

func (repo earningRepository) CreateEarning(ctx context.Context, e earning.Earning, exec ...core.DBExecutor) (earning.Earning, error) {
	query := `INSERT INTO earning (id, tutor_id, session_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		e.ID, e.TutorID, e.SessionID, e.Amount, string(e.Status),
		null.NewTime(e.CreatedAt.UTC(), !e.CreatedAt.IsZero()))
	if err != nil {
		return earning.Earning{}, errors.Wrap(err, "inserting earning")
	}
	return e, nil
}

func (repo earningRepository) GetEarningBySession(ctx context.Context, sessionID string, exec ...core.DBExecutor) (earning.Earning, error) {
	var rows []earningRow
	query := `SELECT ` + earningColumns + earningFrom + ` WHERE e.session_id = $1`
	if err := selectStructs(ctx, repo.getExec(exec), &rows, query, sessionID); err != nil {
		return earning.Earning{}, errors.Wrap(err, "finding earning")
	}
	if len(rows) == 0 {
		return earning.Earning{}, earning.ErrNotFound
	}
	return repo.unpack(rows[0]), nil
}

func (repo earningRepository) QueryTutorEarnings(ctx context.Context, tutorID string, exec ...core.DBExecutor) ([]earning.Earning, error) {
	var rows []earningRow
	query := `SELECT ` + earningColumns + earningFrom + ` WHERE e.tutor_id = $1 ORDER BY e.created_at DESC`
	if err := selectStructs(ctx, repo.getExec(exec), &rows, query, tutorID); err != nil {
		return nil, errors.Wrap(err, "querying earnings")
	}

	earnings := make([]earning.Earning, 0, len(rows))
	for _, r := range rows {
		earnings = append(earnings, repo.unpack(r))
	}
	return earnings, nil
}

func (repo earningRepository) SummarizeTutorEarnings(ctx context.Context, tutorID string, exec ...core.DBExecutor) (earning.Summary, error) {
	var sum earning.Summary
	query := `SELECT
		COALESCE(SUM(amount), 0),
		COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0),
		COALESCE(SUM(amount) FILTER (WHERE status = 'paid'), 0),
		COUNT(*)
		FROM earning WHERE tutor_id = $1`
	err := repo.getExec(exec).QueryRowContext(ctx, query, tutorID).Scan(&sum.Total, &sum.Pending, &sum.Paid, &sum.Count)
	if err != nil {
		return earning.Summary{}, errors.Wrap(err, "summarizing earnings")
	}
	return sum, nil
}

func (repo earningRepository) MarkEarningsPaid(ctx context.Context, tutorID string, exec ...core.DBExecutor) (int, error) {
	query := `UPDATE earning SET status = 'paid' WHERE tutor_id = $1 AND status = 'pending'`
	res, err := repo.getExec(exec).ExecContext(ctx, query, tutorID)
	if err != nil {
		return 0, errors.Wrap(err, "marking earnings paid")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "marking earnings paid")
	}
	return int(cnt), nil
}
