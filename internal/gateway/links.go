package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
	"github.com/MrSnakeDoc/linkshelf/internal/domain"
)

// ListParams narrows a list call. Zero values are not sent.
type ListParams struct {
	Page     int
	PageSize int
	Tags     []string
	Search   string
}

func (p ListParams) query() string {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	if len(p.Tags) > 0 {
		q.Set("tags", strings.Join(p.Tags, ","))
	}
	if s := strings.TrimSpace(p.Search); s != "" {
		q.Set("search", s)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// List fetches the links visible to apiKey. The links may sit under
// data.links, data, or links depending on the deployment; anything else is
// a format error.
func (c *Client) List(ctx context.Context, apiKey string, params ListParams) ([]domain.Link, error) {
	const op = "list links"

	resp, err := c.do(ctx, op, http.MethodGet, "/api/extension/links"+params.query(), apiKey, nil)
	if err != nil {
		return nil, err
	}
	payload, err := resp.payload()
	if err != nil {
		return nil, err
	}

	raw, ok := field(payload, "links")
	if !ok {
		if !isArray(payload) {
			return nil, apperror.Format(resp.status, "response has no links field")
		}
		raw = payload
	}

	var links []domain.Link
	if err := json.Unmarshal(raw, &links); err != nil {
		return nil, apperror.Format(resp.status, "links field is not a list of links")
	}
	if links == nil {
		links = []domain.Link{}
	}
	return links, nil
}

// Create persists a new link and returns it with its server id. A plan
// ceiling surfaces as apperror.ErrLimitReached.
func (c *Client) Create(ctx context.Context, apiKey string, draft domain.Draft) (domain.Link, error) {
	const op = "create link"

	resp, err := c.do(ctx, op, http.MethodPost, "/api/links", apiKey, draft)
	if err != nil {
		return domain.Link{}, err
	}
	link, err := decodeLink(resp)
	if err != nil {
		return domain.Link{}, err
	}
	if link.ID == 0 {
		return domain.Link{}, apperror.Format(resp.status, "created link has no id")
	}
	return link, nil
}

// Update sends a partial update. The returned link may omit fields the
// server chose not to echo.
func (c *Client) Update(ctx context.Context, apiKey string, id int64, patch domain.Patch) (domain.Link, error) {
	const op = "update link"

	resp, err := c.do(ctx, op, http.MethodPatch, linkPath(id), apiKey, patch)
	if err != nil {
		return domain.Link{}, err
	}
	if len(resp.body) == 0 {
		return domain.Link{ID: id}, nil
	}
	return decodeLink(resp)
}

// Delete removes a link. A link that is already gone counts as deleted.
func (c *Client) Delete(ctx context.Context, apiKey string, id int64) error {
	const op = "delete link"

	resp, err := c.do(ctx, op, http.MethodDelete, linkPath(id), apiKey, nil)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(resp.body) == 0 {
		return nil
	}
	_, err = unwrap(resp.status, resp.body)
	return err
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

// BulkDelete removes ids in one call. Ids the server reports as failed come
// back as a single aggregate error.
func (c *Client) BulkDelete(ctx context.Context, apiKey string, ids []int64) error {
	const op = "bulk delete"

	if len(ids) == 0 {
		return nil
	}

	resp, err := c.do(ctx, op, http.MethodDelete, "/api/links/batch", apiKey, bulkDeleteRequest{IDs: ids})
	if errors.Is(err, apperror.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(resp.body) == 0 {
		return nil
	}

	payload, err := unwrap(resp.status, resp.body)
	if err != nil {
		return err
	}

	raw, ok := field(payload, "failed")
	if !ok {
		return nil
	}
	var failed []int64
	if err := json.Unmarshal(raw, &failed); err != nil {
		return apperror.Format(resp.status, "failed field is not a list of ids")
	}
	if len(failed) == 0 {
		return nil
	}

	failures := make(map[int64]error, len(failed))
	for _, id := range failed {
		failures[id] = apperror.Request(resp.status, "", fmt.Sprintf("link %d was not deleted", id))
	}
	return apperror.Aggregate(op, failures)
}

func decodeLink(resp *response) (domain.Link, error) {
	payload, err := resp.payload()
	if err != nil {
		return domain.Link{}, err
	}
	if inner, ok := field(payload, "link"); ok {
		payload = inner
	}

	var link domain.Link
	if err := json.Unmarshal(payload, &link); err != nil {
		return domain.Link{}, apperror.Format(resp.status, "response is not a link")
	}
	return link, nil
}

func linkPath(id int64) string {
	return "/api/links/" + strconv.FormatInt(id, 10)
}
