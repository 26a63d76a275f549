package resource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/storage/object"
)

var ErrNotFound = errors.New("resource not found")

// maxUploadSize bounds a single resource upload.
const maxUploadSize = 25 << 20 // 25 MiB

type (
	Repository interface {
		CreateResource(ctx context.Context, r Resource, exec ...core.DBExecutor) (Resource, error)
		GetResource(ctx context.Context, id string, exec ...core.DBExecutor) (Resource, error)
		QueryOwnerResources(ctx context.Context, ownerID string, exec ...core.DBExecutor) ([]Resource, error)
		QuerySessionResources(ctx context.Context, sessionID string, exec ...core.DBExecutor) ([]Resource, error)
		DeleteResource(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	ServiceInterface interface {
		Upload(ownerID, sessionID, filename string, r io.Reader) (Resource, error)
		QueryForOwner(ownerID string) ([]Resource, error)
		QueryForSession(sessionID string) ([]Resource, error)
		Delete(id, actorID string) error
	}

	Service struct {
		repo  Repository
		store object.Store
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, store object.Store) *Service {
	return &Service{repo: repo, store: store}
}

// Upload stores the file bytes in the object store and records metadata.
func (svc *Service) Upload(ownerID, sessionID, filename string, r io.Reader) (Resource, error) {
	ctx := context.Background()

	filename = path.Base(core.CleanString(filename))
	if filename == "" || filename == "." || filename == "/" {
		return Resource{}, core.NewValidationError(nil, core.FieldError{Field: "filename", Error: "this field is required"})
	}

	content, err := io.ReadAll(io.LimitReader(r, maxUploadSize+1))
	if err != nil {
		return Resource{}, errors.Wrap(err, "reading upload")
	}
	if len(content) > maxUploadSize {
		return Resource{}, core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file too large"})
	}
	if len(content) == 0 {
		return Resource{}, core.NewValidationError(nil, core.FieldError{Field: "file", Error: "empty file"})
	}

	res := Resource{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		SessionID:   sessionID,
		Filename:    filename,
		ContentType: http.DetectContentType(content),
		Size:        int64(len(content)),
		CreatedAt:   time.Now().UTC(),
	}
	res.Path = fmt.Sprintf("%s/%s/%s", ownerID, res.ID, filename)

	if err := svc.store.Upload(Bucket, res.Path, bytes.NewReader(content)); err != nil {
		return Resource{}, errors.Wrap(err, "storing object")
	}
	res.URL = svc.store.PublicURL(Bucket, res.Path)

	res, err = svc.repo.CreateResource(ctx, res)
	if err != nil {
		// best effort rollback of the stored object
		_ = svc.store.Delete(Bucket, res.Path)
		return Resource{}, err
	}
	return res, nil
}

func (svc *Service) QueryForOwner(ownerID string) ([]Resource, error) {
	return svc.repo.QueryOwnerResources(context.Background(), ownerID)
}

func (svc *Service) QueryForSession(sessionID string) ([]Resource, error) {
	return svc.repo.QuerySessionResources(context.Background(), sessionID)
}

// Delete removes both the metadata row and the stored object. Only the
// owner may delete a resource.
func (svc *Service) Delete(id, actorID string) error {
	ctx := context.Background()

	res, err := svc.repo.GetResource(ctx, id)
	if err != nil {
		return err
	}
	if res.OwnerID != actorID {
		return ErrNotFound
	}

	if err := svc.repo.DeleteResource(ctx, id); err != nil {
		return err
	}
	if err := svc.store.Delete(Bucket, res.Path); err != nil && errors.Cause(err) != object.ErrNotFound {
		return errors.Wrap(err, "deleting object")
	}
	return nil
}
