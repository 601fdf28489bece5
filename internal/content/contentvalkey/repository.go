// Package contentvalkey stores content jobs in valkey as JSON documents under
// "{prefix}:job:{id}" with a time to live.
package contentvalkey

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/tiktok-gateway/internal/content"
	"github.com/openkcm/tiktok-gateway/internal/serviceerr"
)

const objectTypeJob = "job"

// advanceScript changes the status of a stored job only when it is still in
// the expected one. KEYS[1] is the job key, ARGV is from, to and the asset id.
// Replies 1 on change, 0 on status mismatch and -1 for a missing job.
var advanceScript = valkey.NewLuaScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return -1
end
local job = cjson.decode(raw)
if job.status ~= ARGV[1] then
  return 0
end
job.status = ARGV[2]
if ARGV[3] ~= '' then
  job.tiktok_asset_id = ARGV[3]
end
redis.call('SET', KEYS[1], cjson.encode(job), 'KEEPTTL')
return 1
`)

type Repository struct {
	store  *store
	client valkey.Client
	ttl    time.Duration
}

var _ content.Repository = (*Repository)(nil)

func NewRepository(valkeyClient valkey.Client, prefix string, ttl time.Duration) *Repository {
	return &Repository{
		store:  newStore(valkeyClient, prefix),
		client: valkeyClient,
		ttl:    ttl,
	}
}

func (r *Repository) Create(ctx context.Context, job content.Job) error {
	if err := r.store.SetNew(ctx, objectTypeJob, job.ID, job, r.ttl); err != nil {
		return fmt.Errorf("storing job: %w", err)
	}

	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (content.Job, error) {
	var job content.Job
	if err := r.store.Get(ctx, objectTypeJob, id, &job); err != nil {
		return content.Job{}, fmt.Errorf("getting job: %w", err)
	}

	return job, nil
}

func (r *Repository) AdvanceStatus(ctx context.Context, id string, from, to content.Status, assetID string) (bool, error) {
	key := r.store.key(objectTypeJob, id)

	reply, err := advanceScript.Exec(ctx, r.client, []string{key}, []string{string(from), string(to), assetID}).AsInt64()
	if err != nil {
		return false, fmt.Errorf("executing advance script: %w", err)
	}

	switch reply {
	case 1:
		return true, nil
	case 0:
		return false, nil
	case -1:
		return false, serviceerr.ErrNotFound
	default:
		return false, fmt.Errorf("%w: %d", errUnexpectedReply, reply)
	}
}
