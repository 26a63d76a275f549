package inmemdb

import (
	"context"
	"sort"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/resource"
)

type resourceRepository struct {
	db *DB
}

var _ resource.Repository = (*resourceRepository)(nil) // interface compliance check

func NewResourceRepository(db *DB) *resourceRepository {
	return &resourceRepository{db: db}
}

func (repo *resourceRepository) CreateResource(ctx context.Context, res resource.Resource, exec ...core.DBExecutor) (resource.Resource, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.resources[res.ID] = &res
	return res, nil
}

func (repo *resourceRepository) GetResource(ctx context.Context, id string, exec ...core.DBExecutor) (resource.Resource, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if res, ok := repo.db.resources[id]; ok {
		return *res, nil
	}
	return resource.Resource{}, resource.ErrNotFound
}

func (repo *resourceRepository) QueryOwnerResources(ctx context.Context, ownerID string, exec ...core.DBExecutor) ([]resource.Resource, error) {
	return repo.query(func(res resource.Resource) bool { return res.OwnerID == ownerID })
}

func (repo *resourceRepository) QuerySessionResources(ctx context.Context, sessionID string, exec ...core.DBExecutor) ([]resource.Resource, error) {
	return repo.query(func(res resource.Resource) bool { return res.SessionID == sessionID })
}

func (repo *resourceRepository) query(match func(resource.Resource) bool) ([]resource.Resource, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	resources := make([]resource.Resource, 0)
	for _, res := range repo.db.resources {
		if match(*res) {
			resources = append(resources, *res)
		}
	}
	sort.Slice(resources, func(i, j int) bool { return resources[j].CreatedAt.Before(resources[i].CreatedAt) })
	return resources, nil
}

func (repo *resourceRepository) DeleteResource(ctx context.Context, id string, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.resources[id]; !ok {
		return resource.ErrNotFound
	}
	delete(repo.db.resources, id)
	return nil
}
