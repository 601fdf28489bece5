// Package contentmem keeps content jobs in process memory. It is used when
// no valkey instance is configured.
package contentmem

import (
	"context"
	"sync"

	"github.com/openkcm/tiktok-gateway/internal/content"
	"github.com/openkcm/tiktok-gateway/internal/serviceerr"
)

type Repository struct {
	mu   sync.RWMutex
	jobs map[string]content.Job
}

var _ content.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{
		jobs: make(map[string]content.Job),
	}
}

func (r *Repository) Create(_ context.Context, job content.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; ok {
		return serviceerr.ErrConflict
	}
	r.jobs[job.ID] = job

	return nil
}

func (r *Repository) Get(_ context.Context, id string) (content.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return content.Job{}, serviceerr.ErrNotFound
	}

	return job, nil
}

func (r *Repository) AdvanceStatus(_ context.Context, id string, from, to content.Status, assetID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return false, serviceerr.ErrNotFound
	}
	if job.Status != from {
		return false, nil
	}

	job.Status = to
	if assetID != "" {
		job.AssetID = assetID
	}
	r.jobs[id] = job

	return true, nil
}
