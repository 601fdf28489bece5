package tiktok

// TokenPayload is the result of a code exchange or a token refresh.
type TokenPayload struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in,omitempty"`
	OpenID           string `json:"open_id,omitempty"`
	Placeholder      bool   `json:"placeholder,omitempty"`
}

type UserInfo struct {
	OpenID         string `json:"open_id"`
	UnionID        string `json:"union_id,omitempty"`
	DisplayName    string `json:"display_name"`
	AvatarURL      string `json:"avatar_url"`
	FollowerCount  int64  `json:"follower_count"`
	FollowingCount int64  `json:"following_count"`
	LikesCount     int64  `json:"likes_count"`
	VideoCount     int64  `json:"video_count"`
	Placeholder    bool   `json:"placeholder,omitempty"`
}

type RevokeResult struct {
	Revoked     bool `json:"revoked"`
	Placeholder bool `json:"placeholder,omitempty"`
}

// ClientToken is an app level access token obtained with the client
// credentials grant.
type ClientToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

type Video struct {
	ID               string `json:"id"`
	Title            string `json:"title,omitempty"`
	VideoDescription string `json:"video_description,omitempty"`
	Duration         int64  `json:"duration,omitempty"`
	CoverImageURL    string `json:"cover_image_url,omitempty"`
	ShareURL         string `json:"share_url,omitempty"`
	EmbedLink        string `json:"embed_link,omitempty"`
	CreateTime       int64  `json:"create_time,omitempty"`
	LikeCount        int64  `json:"like_count,omitempty"`
	CommentCount     int64  `json:"comment_count,omitempty"`
	ShareCount       int64  `json:"share_count,omitempty"`
	ViewCount        int64  `json:"view_count,omitempty"`
}

type VideoPage struct {
	Videos      []Video `json:"videos"`
	Cursor      int64   `json:"cursor"`
	HasMore     bool    `json:"has_more"`
	Placeholder bool    `json:"placeholder,omitempty"`
}
