// Package gateway talks to the remote link service.
//
// Every call goes through do, which attaches the credential, classifies
// failures into apperror kinds and hands the body to unwrap so that nested
// and flat response envelopes are treated the same way.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/utils"
	"github.com/MrSnakeDoc/linkshelf/internal/version"
)

const (
	headerAPIKey    = "X-API-Key"
	headerRequestID = "X-Request-ID"

	// maxBodySize caps how much of a response we are willing to buffer.
	maxBodySize = 4 << 20

	DefaultTimeout = 15 * time.Second
)

type Options struct {
	BaseURL string
	Timeout time.Duration

	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  logger.Logger
}

func New(opts Options, log logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("gateway: base URL is required")
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: base,
		http:    hc,
		logger:  log.With(logger.String("component", "gateway")),
	}, nil
}

// BaseURL returns the service root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

type response struct {
	status int
	body   []byte
}

// do performs one request. A non-2xx status is returned as a classified
// error; a 2xx body that is not JSON is a format error.
func (c *Client) do(ctx context.Context, op, method, path, apiKey string, in any) (*response, error) {
	hdr := http.Header{}
	if apiKey != "" {
		hdr.Set(headerAPIKey, apiKey)
	}
	return c.send(ctx, op, method, path, hdr, in)
}

// send is do with caller supplied credential headers.
func (c *Client) send(ctx context.Context, op, method, path string, hdr http.Header, in any) (*response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", op, err)
	}

	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "linkshelf/"+version.Version)
	req.Header.Set(headerRequestID, reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		// Cancellation is the caller's decision, not a network failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("request failed",
			logger.String("op", op),
			logger.String("request_id", reqID),
			logger.Error(err),
		)
		return nil, apperror.Network(op, err)
	}
	defer utils.Close(resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperror.Network(op, err)
	}

	c.logger.Debug("request done",
		logger.String("op", op),
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", time.Since(start)),
		logger.String("request_id", reqID),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classify(op, resp.StatusCode, raw)
	}

	if len(bytes.TrimSpace(raw)) > 0 && !isJSON(resp.Header.Get("Content-Type")) {
		return nil, apperror.Format(resp.StatusCode, "invalid response format from server")
	}

	return &response{status: resp.StatusCode, body: raw}, nil
}

// payload unwraps the envelope of a response that must carry a body.
func (r *response) payload() (json.RawMessage, error) {
	if len(bytes.TrimSpace(r.body)) == 0 {
		return nil, apperror.Format(r.status, "empty response from server")
	}
	return unwrap(r.status, r.body)
}

// classify maps a failed status to an error kind. The link limit is told
// apart from other 403s by its error code.
func classify(op string, status int, body []byte) error {
	msg, code := errorBody(body)

	switch {
	case status == http.StatusForbidden && code == apperror.LimitReachedCode:
		return apperror.LimitReached(msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperror.Auth(status, msg)
	case status == http.StatusNotFound:
		if msg == "" {
			msg = op + ": not found"
		}
		return &apperror.Error{Kind: apperror.ErrNotFound, Status: status, Code: code, Message: msg}
	default:
		if msg == "" {
			msg = fmt.Sprintf("%s: server returned %d", op, status)
		}
		return apperror.Request(status, code, msg)
	}
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}
