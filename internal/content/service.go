// Package content simulates the upload and publish flow of the content
// posting API. Jobs progress from pending to processing on creation and to
// completed once the completion delay has passed.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/tiktok-gateway/internal/config"
	"github.com/openkcm/tiktok-gateway/internal/serviceerr"
	"github.com/openkcm/tiktok-gateway/internal/tiktok"
)

const (
	defaultFilename = "upload.bin"
	// devAccessToken is used for creator lookups without a token.
	devAccessToken = "dev_access_token"
)

type CreatorLookup interface {
	GetUserInfo(ctx context.Context, accessToken string) (tiktok.UserInfo, error)
}

type Service struct {
	repository      Repository
	creators        CreatorLookup
	allowedPrefixes []string
	completionDelay time.Duration

	now   func() time.Time
	newID func() string
}

func NewService(repo Repository, creators CreatorLookup, cfg config.Content) *Service {
	prefixes := make([]string, 0, len(cfg.AllowedURLPrefixes))
	for _, p := range cfg.AllowedURLPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}

	return &Service{
		repository:      repo,
		creators:        creators,
		allowedPrefixes: prefixes,
		completionDelay: cfg.CompletionDelay,
		now:             time.Now,
		newID:           uuid.NewString,
	}
}

// AllowedPrefixes returns the URL prefixes pull uploads may use.
func (s *Service) AllowedPrefixes() []string {
	return s.allowedPrefixes
}

func (s *Service) CreateLocalFileJob(ctx context.Context, filename string, firstChunk []byte, mode string) (Job, error) {
	publishMode, err := ParsePublishMode(mode)
	if err != nil {
		return Job{}, err
	}
	if filename == "" {
		filename = defaultFilename
	}

	return s.create(ctx, Job{
		SourceType:  SourceLocal,
		Filename:    filename,
		SizeHint:    len(firstChunk),
		PublishMode: publishMode,
	})
}

// CreatePullByURLJob creates a job pulling the media from sourceURL, which
// must start with one of the allowed prefixes.
func (s *Service) CreatePullByURLJob(ctx context.Context, sourceURL, mode string) (Job, error) {
	if !s.allowedURL(sourceURL) {
		return Job{}, serviceerr.ErrSourceURLNotAllowed
	}

	publishMode, err := ParsePublishMode(mode)
	if err != nil {
		return Job{}, err
	}

	return s.create(ctx, Job{
		SourceType:  SourceURL,
		SourceURL:   sourceURL,
		PublishMode: publishMode,
	})
}

func (s *Service) create(ctx context.Context, job Job) (Job, error) {
	job.ID = s.newID()
	job.Status = StatusPending
	job.CreatedAt = s.now().Unix()

	if err := s.repository.Create(ctx, job); err != nil {
		return Job{}, fmt.Errorf("creating job: %w", err)
	}

	ok, err := s.repository.AdvanceStatus(ctx, job.ID, StatusPending, StatusProcessing, "")
	if err != nil {
		return Job{}, fmt.Errorf("starting job: %w", err)
	}
	if ok {
		job.Status = StatusProcessing
	}

	slogctx.Info(ctx, "Content job created", "job_id", job.ID, "source_type", job.SourceType)

	return job, nil
}

func (s *Service) Status(ctx context.Context, id string) (StatusResult, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return StatusResult{}, err
	}
	if job == nil {
		return StatusResult{State: StatusNotFound}, nil
	}

	return StatusResult{State: job.Status, AssetID: job.AssetID}, nil
}

func (s *Service) Publish(ctx context.Context, id, privacy, caption string) (PublishResult, error) {
	mode, err := ParsePublishMode(privacy)
	if err != nil {
		return PublishResult{}, err
	}

	job, err := s.load(ctx, id)
	if err != nil {
		return PublishResult{}, err
	}
	if job == nil {
		return PublishResult{Reason: ReasonJobNotFound}, nil
	}
	if job.Status != StatusCompleted {
		return PublishResult{Reason: ReasonNotCompleted}, nil
	}

	return PublishResult{
		OK:          true,
		Privacy:     mode,
		Caption:     caption,
		AssetID:     job.AssetID,
		PublishedAt: s.now().Unix(),
	}, nil
}

// CreatorInfo returns the profile of the token owner. Without a token the
// canned development token is used.
func (s *Service) CreatorInfo(ctx context.Context, accessToken string) (tiktok.UserInfo, error) {
	if accessToken == "" {
		accessToken = devAccessToken
	}

	info, err := s.creators.GetUserInfo(ctx, accessToken)
	if err != nil {
		return tiktok.UserInfo{}, fmt.Errorf("getting creator info: %w", err)
	}

	return info, nil
}

// load returns the job with its status brought up to date, or nil when the
// job does not exist.
func (s *Service) load(ctx context.Context, id string) (*Job, error) {
	job, err := s.repository.Get(ctx, id)
	if errors.Is(err, serviceerr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting job: %w", err)
	}

	if job.Status != StatusProcessing || s.now().Sub(time.Unix(job.CreatedAt, 0)) <= s.completionDelay {
		return &job, nil
	}

	assetID := "dev_asset_" + job.ID[:min(8, len(job.ID))]
	ok, err := s.repository.AdvanceStatus(ctx, id, StatusProcessing, StatusCompleted, assetID)
	if err != nil {
		return nil, fmt.Errorf("completing job: %w", err)
	}
	if !ok {
		job, err = s.repository.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("getting job: %w", err)
		}
		return &job, nil
	}

	job.Status = StatusCompleted
	job.AssetID = assetID

	return &job, nil
}

func (s *Service) allowedURL(u string) bool {
	for _, p := range s.allowedPrefixes {
		if strings.HasPrefix(u, p) {
			return true
		}
	}

	return false
}
