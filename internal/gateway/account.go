package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
)

// TagVocabulary returns the tags the server knows for this account.
func (c *Client) TagVocabulary(ctx context.Context, apiKey string) ([]string, error) {
	const op = "tag vocabulary"

	resp, err := c.do(ctx, op, http.MethodGet, "/api/extension/tags", apiKey, nil)
	if err != nil {
		return nil, err
	}
	payload, err := resp.payload()
	if err != nil {
		return nil, err
	}

	raw, ok := field(payload, "tags")
	if !ok {
		if !isArray(payload) {
			return nil, apperror.Format(resp.status, "response has no tags field")
		}
		raw = payload
	}

	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, apperror.Format(resp.status, "tags field is not a list of strings")
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

type validateRequest struct {
	APIKey string `json:"apiKey"`
}

// ValidateCredential asks the server whether apiKey is usable. Both
// {"valid": bool} and {"success": true, "data": {"valid": bool}} are
// accepted; a rejected key answers false rather than an error.
func (c *Client) ValidateCredential(ctx context.Context, apiKey string) (bool, error) {
	const op = "validate api key"

	resp, err := c.do(ctx, op, http.MethodPost, "/api/validate-api-key", "", validateRequest{APIKey: apiKey})
	if errors.Is(err, apperror.ErrAuth) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	payload, err := resp.payload()
	if err != nil {
		return false, err
	}

	raw, ok := field(payload, "valid")
	if !ok {
		return false, apperror.Format(resp.status, "invalid response structure from server")
	}
	var valid bool
	if err := json.Unmarshal(raw, &valid); err != nil {
		return false, apperror.Format(resp.status, "valid field is not a boolean")
	}
	return valid, nil
}

// RSSFeedURL resolves the account's private feed URL. It returns "" when the
// server has no token for the account.
func (c *Client) RSSFeedURL(ctx context.Context, apiKey string) (string, error) {
	const op = "rss token"

	resp, err := c.do(ctx, op, http.MethodGet, "/api/extension/rss-token", apiKey, nil)
	if err != nil {
		return "", err
	}
	payload, err := resp.payload()
	if err != nil {
		return "", err
	}

	raw, ok := field(payload, "rssToken")
	if !ok {
		return "", nil
	}
	var token string
	if err := json.Unmarshal(raw, &token); err != nil {
		return "", apperror.Format(resp.status, "rssToken is not a string")
	}
	if token == "" {
		return "", nil
	}
	return c.baseURL + "/api/rss/" + url.PathEscape(token), nil
}

// UserInfo describes the account behind a credential.
type UserInfo struct {
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Plan      string `json:"plan,omitempty"`
	LinkCount int    `json:"linkCount"`
	LinkLimit int    `json:"linkLimit,omitempty"`
}

// UserInfo fetches the account profile.
func (c *Client) UserInfo(ctx context.Context, apiKey string) (UserInfo, error) {
	const op = "user info"

	resp, err := c.do(ctx, op, http.MethodGet, "/api/extension/user", apiKey, nil)
	if err != nil {
		return UserInfo{}, err
	}
	payload, err := resp.payload()
	if err != nil {
		return UserInfo{}, err
	}
	if inner, ok := field(payload, "user"); ok {
		payload = inner
	}

	var info UserInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return UserInfo{}, apperror.Format(resp.status, "response is not a user profile")
	}
	return info, nil
}

// Subscription is the billing state of an account. Fields the server does
// not send stay zero.
type Subscription struct {
	Status    string     `json:"status,omitempty"`
	Plan      string     `json:"plan,omitempty"`
	Active    bool       `json:"active"`
	RenewsAt  *time.Time `json:"renewsAt,omitempty"`
	LinkLimit int        `json:"linkLimit,omitempty"`
}

// Subscription fetches the account's subscription status.
func (c *Client) Subscription(ctx context.Context, apiKey string) (Subscription, error) {
	const op = "subscription"

	resp, err := c.do(ctx, op, http.MethodGet, "/api/subscription", apiKey, nil)
	if err != nil {
		return Subscription{}, err
	}
	payload, err := resp.payload()
	if err != nil {
		return Subscription{}, err
	}
	if inner, ok := field(payload, "subscription"); ok {
		payload = inner
	}

	var sub Subscription
	if err := json.Unmarshal(payload, &sub); err != nil {
		return Subscription{}, apperror.Format(resp.status, "response is not a subscription")
	}
	return sub, nil
}

// GenerateAPIKey asks the server for a fresh key. No credential is sent.
func (c *Client) GenerateAPIKey(ctx context.Context) (string, error) {
	const op = "generate api key"

	resp, err := c.do(ctx, op, http.MethodPost, "/api/generate-api-key", "", nil)
	if err != nil {
		return "", err
	}
	payload, err := resp.payload()
	if err != nil {
		return "", err
	}

	raw, ok := field(payload, "apiKey")
	if !ok {
		return "", apperror.Format(resp.status, "response has no apiKey field")
	}
	var key string
	if err := json.Unmarshal(raw, &key); err != nil || key == "" {
		return "", apperror.Format(resp.status, "apiKey is not a non-empty string")
	}
	return key, nil
}

// RefreshFeed asks the server to rebuild the account's RSS feed. This
// endpoint takes the key as a bearer token and its body is ignored.
func (c *Client) RefreshFeed(ctx context.Context, apiKey string) error {
	const op = "refresh feed"

	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer "+apiKey)
	_, err := c.send(ctx, op, http.MethodPost, "/refresh-feed", hdr, struct{}{})
	if errors.Is(err, apperror.ErrFormat) {
		// Only a 2xx answer gets this far.
		return nil
	}
	return err
}
