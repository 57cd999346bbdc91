package clients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// SocialPost is a product announcement
type SocialPost struct {
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// SocialPostResult is the endpoint's reply
type SocialPostResult struct {
	ID string `json:"id"`
}

// SocialSession holds the page credentials for posting. Build one per
// configured page and pass it to whoever posts; it carries no global state.
type SocialSession struct {
	client      *resty.Client
	endpoint    string
	pageID      string
	accessToken string
}

// NewSocialSession creates a session for one page
func NewSocialSession(endpoint, pageID, accessToken string) *SocialSession {
	return &SocialSession{
		client:      resty.New().SetTimeout(15 * time.Second),
		endpoint:    strings.TrimRight(endpoint, "/"),
		pageID:      pageID,
		accessToken: accessToken,
	}
}

// Enabled reports whether the session can post
func (s *SocialSession) Enabled() bool {
	return s != nil && s.endpoint != "" && s.pageID != "" && s.accessToken != ""
}

// PageID returns the page this session posts to
func (s *SocialSession) PageID() string {
	return s.pageID
}

// Post publishes to the page feed
func (s *SocialSession) Post(ctx context.Context, post SocialPost) (*SocialPostResult, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}

	var result SocialPostResult
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("page", s.pageID).
		SetQueryParam("access_token", s.accessToken).
		SetBody(post).
		SetResult(&result).
		Post(s.endpoint + "/{page}/feed")
	if err != nil {
		return nil, fmt.Errorf("social post failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("social endpoint returned %d: %s", resp.StatusCode(), resp.String())
	}
	return &result, nil
}
