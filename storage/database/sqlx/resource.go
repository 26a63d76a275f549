package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/resource"
)

const resourceColumns = `id, owner_id, session_id, filename, content_type, size, path, url, created_at`

type resourceRow struct {
	ID          string      `db:"id"`
	OwnerID     string      `db:"owner_id"`
	SessionID   null.String `db:"session_id"`
	Filename    string      `db:"filename"`
	ContentType null.String `db:"content_type"`
	Size        null.Int64  `db:"size"`
	Path        string      `db:"path"`
	URL         null.String `db:"url"`
	CreatedAt   null.Time   `db:"created_at"`
}

type resourceRepository struct {
	exec core.DBExecutor
}

var _ resource.Repository = (*resourceRepository)(nil) // interface compliance check

func NewResourceRepository(exec core.DBExecutor) *resourceRepository {
	return &resourceRepository{exec: exec}
}

func (repo resourceRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo resourceRepository) unpack(r resourceRow) resource.Resource {
	return resource.Resource{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		SessionID:   r.SessionID.String,
		Filename:    r.Filename,
		ContentType: r.ContentType.String,
		Size:        r.Size.Int64,
		Path:        r.Path,
		URL:         r.URL.String,
		CreatedAt:   r.CreatedAt.Time,
	}
}

func (repo resourceRepository) CreateResource(ctx context.Context, res resource.Resource, exec ...core.DBExecutor) (resource.Resource, error) {
	query := `INSERT INTO resource (` + resourceColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		res.ID, res.OwnerID,
		null.NewString(res.SessionID, res.SessionID != ""),
		res.Filename,
		null.NewString(res.ContentType, res.ContentType != ""),
		res.Size, res.Path,
		null.NewString(res.URL, res.URL != ""),
		null.NewTime(res.CreatedAt.UTC(), !res.CreatedAt.IsZero()))
	if err != nil {
		return resource.Resource{}, errors.Wrap(err, "inserting resource")
	}
	return res, nil
}

func (repo resourceRepository) GetResource(ctx context.Context, id string, exec ...core.DBExecutor) (resource.Resource, error) {
	if _, err := uuid.Parse(id); err != nil {
		return resource.Resource{}, resource.ErrNotFound
	}

	var rows []resourceRow
	query := `SELECT ` + resourceColumns + ` FROM resource WHERE id = $1`
	if err := selectStructs(ctx, repo.getExec(exec), &rows, query, id); err != nil {
		return resource.Resource{}, errors.Wrap(err, "finding resource")
	}
	if len(rows) == 0 {
		return resource.Resource{}, resource.ErrNotFound
	}
	return repo.unpack(rows[0]), nil
}

func (repo resourceRepository) QueryOwnerResources(ctx context.Context, ownerID string, exec ...core.DBExecutor) ([]resource.Resource, error) {
	return repo.query(ctx, "owner_id", ownerID, exec)
}

func (repo resourceRepository) QuerySessionResources(ctx context.Context, sessionID string, exec ...core.DBExecutor) ([]resource.Resource, error) {
	return repo.query(ctx, "session_id", sessionID, exec)
}

func (repo resourceRepository) query(ctx context.Context, column, val string, exec []core.DBExecutor) ([]resource.Resource, error) {
	var rows []resourceRow
	query := `SELECT ` + resourceColumns + ` FROM resource WHERE ` + column + ` = $1 ORDER BY created_at DESC`
	if err := selectStructs(ctx, repo.getExec(exec), &rows, query, val); err != nil {
		return nil, errors.Wrap(err, "querying resources")
	}

	resources := make([]resource.Resource, 0, len(rows))
	for _, r := range rows {
		resources = append(resources, repo.unpack(r))
	}
	return resources, nil
}

func (repo resourceRepository) DeleteResource(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM resource WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting resource")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return resource.ErrNotFound
	}
	return nil
}
