package content

import (
	"strings"

	"github.com/openkcm/tiktok-gateway/internal/serviceerr"
)

type SourceType string

const (
	SourceLocal SourceType = "local"
	SourceURL   SourceType = "url"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	// StatusNotFound is reported for unknown job ids. It is never stored.
	StatusNotFound Status = "not_found"
)

type PublishMode string

const (
	PublishPublic  PublishMode = "public"
	PublishFriends PublishMode = "friends"
	PublishSelf    PublishMode = "self"
	PublishDraft   PublishMode = "draft"
)

// ParsePublishMode accepts the known modes case-insensitively. An empty
// value means draft.
func ParsePublishMode(v string) (PublishMode, error) {
	switch mode := PublishMode(strings.ToLower(strings.TrimSpace(v))); mode {
	case "":
		return PublishDraft, nil
	case PublishPublic, PublishFriends, PublishSelf, PublishDraft:
		return mode, nil
	default:
		return "", serviceerr.ErrInvalidPublishMode.WithDescription("unknown publish mode " + v)
	}
}

type Job struct {
	ID          string      `json:"id"`
	SourceType  SourceType  `json:"source_type"`
	Filename    string      `json:"filename,omitempty"`
	SourceURL   string      `json:"source_url,omitempty"`
	SizeHint    int         `json:"size_hint,omitempty"`
	PublishMode PublishMode `json:"publish_mode"`
	Status      Status      `json:"status"`
	AssetID     string      `json:"tiktok_asset_id,omitempty"`
	// CreatedAt is in unix seconds.
	CreatedAt int64 `json:"created_at"`
}

type StatusResult struct {
	State   Status `json:"state"`
	AssetID string `json:"asset_id,omitempty"`
}

// PublishResult is either a refusal with a reason or the published asset.
type PublishResult struct {
	OK          bool        `json:"ok"`
	Reason      string      `json:"reason,omitempty"`
	Privacy     PublishMode `json:"privacy,omitempty"`
	Caption     string      `json:"caption,omitempty"`
	AssetID     string      `json:"asset_id,omitempty"`
	PublishedAt int64       `json:"published_at,omitempty"`
}

const (
	ReasonJobNotFound  = "job_not_found"
	ReasonNotCompleted = "not_completed"
)
