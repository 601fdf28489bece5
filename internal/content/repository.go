package content

import "context"

type Repository interface {
	Create(ctx context.Context, job Job) error
	// Get returns serviceerr.ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (Job, error)
	// AdvanceStatus moves a job from one status to the next and sets the
	// asset id when one is given. It reports false when the job is not in
	// the from status anymore.
	AdvanceStatus(ctx context.Context, id string, from, to Status, assetID string) (bool, error)
}
