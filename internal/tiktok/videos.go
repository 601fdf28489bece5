package tiktok

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const (
	videoListPath  = "/video/list/"
	videoQueryPath = "/video/query/"

	maxVideosPerPage = 20
)

var defaultVideoFields = []string{
	"id",
	"title",
	"video_description",
	"duration",
	"cover_image_url",
	"share_url",
	"embed_link",
	"create_time",
}

// ListVideos returns one page of the user's public videos. A zero cursor
// starts from the most recent video.
func (c *Client) ListVideos(ctx context.Context, accessToken string, cursor int64, maxCount int, fields []string) (VideoPage, error) {
	if c.bypass(accessToken) {
		return devVideoPage(), nil
	}

	body := map[string]any{
		"max_count": min(max(maxCount, 1), maxVideosPerPage),
	}
	if cursor > 0 {
		body["cursor"] = cursor
	}

	var resp struct {
		Data VideoPage `json:"data"`
	}
	req := request{method: http.MethodPost, path: videoListPath, query: videoQuery(fields), json: body, bearer: accessToken}
	if err := c.call(ctx, "list_videos", req, &resp); err != nil {
		return VideoPage{}, err
	}

	if resp.Data.Videos == nil {
		resp.Data.Videos = []Video{}
	}

	return resp.Data, nil
}

// QueryVideos looks up specific videos of the user by id.
func (c *Client) QueryVideos(ctx context.Context, accessToken string, videoIDs []string, fields []string) (VideoPage, error) {
	if c.bypass(accessToken) {
		return devVideoPage(), nil
	}

	body := map[string]any{
		"filters": map[string]any{
			"video_ids": videoIDs,
		},
	}

	var resp struct {
		Data VideoPage `json:"data"`
	}
	req := request{method: http.MethodPost, path: videoQueryPath, query: videoQuery(fields), json: body, bearer: accessToken}
	if err := c.call(ctx, "query_videos", req, &resp); err != nil {
		return VideoPage{}, err
	}

	if resp.Data.Videos == nil {
		resp.Data.Videos = []Video{}
	}

	return resp.Data, nil
}

func videoQuery(fields []string) url.Values {
	if len(fields) == 0 {
		fields = defaultVideoFields
	}

	q := url.Values{}
	q.Set("fields", strings.Join(fields, ","))

	return q
}
