package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
	"github.com/MrSnakeDoc/linkshelf/internal/controller"
	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/engine"
	"github.com/MrSnakeDoc/linkshelf/internal/gateway"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/metrics"
	"github.com/MrSnakeDoc/linkshelf/internal/store/memory"
)

type fakeController struct {
	links    []domain.Link
	dispatch func(cmd controller.Command) (controller.State, error)
	last     controller.Command
}

func (f *fakeController) Dispatch(_ context.Context, cmd controller.Command) (controller.State, error) {
	f.last = cmd
	if f.dispatch != nil {
		return f.dispatch(cmd)
	}
	return f.State(), nil
}

func (f *fakeController) State() controller.State {
	return controller.State{Links: f.links, Page: 1, PageSize: 5, TotalPages: 1, Total: len(f.links)}
}

func (f *fakeController) Snapshot() engine.Snapshot {
	return engine.Snapshot{Links: f.links}
}

type fakeAccount struct {
	info    gateway.UserInfo
	infoErr error
	rss     string
	rssErr  error
	sub     gateway.Subscription
	subErr  error
}

func (f fakeAccount) UserInfo(context.Context, string) (gateway.UserInfo, error) {
	return f.info, f.infoErr
}

func (f fakeAccount) RSSFeedURL(context.Context, string) (string, error) {
	return f.rss, f.rssErr
}

func (f fakeAccount) Subscription(context.Context, string) (gateway.Subscription, error) {
	return f.sub, f.subErr
}

type fakeCreds struct{ key string }

func (f fakeCreds) Get(context.Context) (string, error) { return f.key, nil }

type pingStore struct {
	*memory.Store
	err error
}

func (p pingStore) Ping(context.Context) error { return p.err }

func sampleLinks() []domain.Link {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return []domain.Link{
		{ID: 1, URL: "https://go.dev", Title: "Go", Tags: []string{"go"}, CreatedAt: day},
		{ID: 2, URL: "https://sqlite.org", Title: "SQLite", Tags: []string{"db"}, CreatedAt: day.Add(time.Hour)},
	}
}

func testDeps(ctrl *fakeController) deps.Deps {
	account := fakeAccount{
		info: gateway.UserInfo{Email: "a@example.com", LinkCount: 2},
		rss:  "https://links.example.com/api/rss/tok",
		sub:  gateway.Subscription{Status: "active", Plan: "pro", Active: true},
	}
	return deps.Deps{
		Logger:        logger.Nop(),
		StartTime:     time.Now(),
		Version:       "test",
		Controller:    ctrl,
		Account:       account,
		Credentials:   fakeCreds{key: "secret-api-key-1234"},
		Storage:       memory.NewStore(),
		Metrics:       metrics.New(),
		ReloadTrigger: make(chan struct{}, 1),
		FeedTitle:     "My links",
	}
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	h := NewRouter(testDeps(&fakeController{}))
	rec := serve(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestReadyz(t *testing.T) {
	d := testDeps(&fakeController{links: sampleLinks()})
	rec := serve(t, NewRouter(d), http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["ready"])
	assert.Equal(t, 2.0, body["links"])

	d.Storage = pingStore{Store: memory.NewStore(), err: errors.New("down")}
	rec = serve(t, NewRouter(d), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestView(t *testing.T) {
	h := NewRouter(testDeps(&fakeController{links: sampleLinks()}))
	rec := serve(t, h, http.MethodGet, "/api/view", "")
	require.Equal(t, http.StatusOK, rec.Code)

	st := decode[controller.State](t, rec)
	assert.Len(t, st.Links, 2)
	assert.Equal(t, 2, st.Total)
}

func TestGetLink(t *testing.T) {
	h := NewRouter(testDeps(&fakeController{links: sampleLinks()}))

	rec := serve(t, h, http.MethodGet, "/api/links/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SQLite", decode[domain.Link](t, rec).Title)

	rec = serve(t, h, http.MethodGet, "/api/links/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[map[string]any](t, rec)["code"])

	rec = serve(t, h, http.MethodGet, "/api/links/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommandsDispatch(t *testing.T) {
	ctrl := &fakeController{links: sampleLinks()}
	h := NewRouter(testDeps(ctrl))

	rec := serve(t, h, http.MethodPost, "/api/commands", `{"type":"setFilter","tags":["go"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, controller.CmdSetFilter, ctrl.last.Type)
	assert.Equal(t, []string{"go"}, ctrl.last.Tags)
}

func TestCommandsErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperror.ValidationFailed("url", "URL is required"), http.StatusBadRequest, "validation"},
		{"auth", apperror.Auth(401, "invalid API key"), http.StatusUnauthorized, "auth"},
		{"no credential", apperror.NoCredential(), http.StatusUnauthorized, "no_credential"},
		{"limit", apperror.LimitReached("limit reached"), http.StatusPaymentRequired, "limit_reached"},
		{"not found", apperror.NotFound("link", 3), http.StatusNotFound, "not_found"},
		{"conflict", apperror.Conflict("save in progress"), http.StatusConflict, "conflict"},
		{"format", apperror.Format(200, "bad body"), http.StatusBadGateway, "format"},
		{"network", apperror.Network("list links", errors.New("refused")), http.StatusServiceUnavailable, "network"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{dispatch: func(controller.Command) (controller.State, error) {
				return controller.State{Page: 1}, tt.err
			}}
			rec := serve(t, NewRouter(testDeps(ctrl)), http.MethodPost, "/api/commands", `{"type":"reload"}`)
			assert.Equal(t, tt.status, rec.Code)

			body := decode[map[string]any](t, rec)
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["error"])
			assert.NotNil(t, body["state"])
		})
	}
}

func TestCommandsRejectsBadBody(t *testing.T) {
	ctrl := &fakeController{}
	h := NewRouter(testDeps(ctrl))

	rec := serve(t, h, http.MethodPost, "/api/commands", `{"type":"reload","bogus":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, h, http.MethodPost, "/api/commands", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ctrl.last.Type)
}

func TestCommandsRateLimited(t *testing.T) {
	d := testDeps(&fakeController{})
	d.CommandBurst = 1
	d.CommandPerMinute = 1
	h := NewRouter(d)

	rec := serve(t, h, http.MethodPost, "/api/commands", `{"type":"reload"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, h, http.MethodPost, "/api/commands", `{"type":"reload"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestReloadTrigger(t *testing.T) {
	d := testDeps(&fakeController{})
	h := NewRouter(d)

	rec := serve(t, h, http.MethodPost, "/api/reload", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = serve(t, h, http.MethodPost, "/api/reload", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	<-d.ReloadTrigger
	rec = serve(t, h, http.MethodPost, "/api/reload", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestFeed(t *testing.T) {
	h := NewRouter(testDeps(&fakeController{links: sampleLinks()}))

	rec := serve(t, h, http.MethodGet, "/api/feed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/rss+xml")
	body := rec.Body.String()
	assert.Contains(t, body, "<title>My links</title>")
	assert.Less(t, strings.Index(body, "SQLite"), strings.Index(body, "<title>Go</title>"))

	rec = serve(t, h, http.MethodGet, "/api/feed?format=json&tag=go", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://go.dev")
	assert.NotContains(t, rec.Body.String(), "sqlite.org")

	rec = serve(t, h, http.MethodGet, "/api/feed?format=opml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccount(t *testing.T) {
	d := testDeps(&fakeController{})
	rec := serve(t, NewRouter(d), http.MethodGet, "/api/account", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "https://links.example.com/api/rss/tok", body["rssUrl"])
	assert.Equal(t, "***1234", body["apiKey"])
	assert.NotContains(t, rec.Body.String(), "secret-api-key")
	require.IsType(t, map[string]any{}, body["subscription"])
	assert.Equal(t, "pro", body["subscription"].(map[string]any)["plan"])

	d.Account = fakeAccount{info: gateway.UserInfo{Email: "a@example.com"}, subErr: errors.New("down")}
	rec = serve(t, NewRouter(d), http.MethodGet, "/api/account", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, decode[map[string]any](t, rec), "subscription")

	d.Credentials = fakeCreds{}
	rec = serve(t, NewRouter(d), http.MethodGet, "/api/account", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	d = testDeps(&fakeController{})
	d.Account = fakeAccount{infoErr: apperror.Auth(401, "invalid API key")}
	rec = serve(t, NewRouter(d), http.MethodGet, "/api/account", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIRestrictedByCIDR(t *testing.T) {
	d := testDeps(&fakeController{})
	d.AllowedCIDRS = []string{"10.0.0.0/8"}
	h := NewRouter(d)

	rec := serve(t, h, http.MethodGet, "/api/view", "") // httptest uses 192.0.2.1
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRestrictedByHost(t *testing.T) {
	d := testDeps(&fakeController{})
	d.AllowedHosts = []string{"*.example.com"}
	h := NewRouter(d)

	rec := serve(t, h, http.MethodGet, "/api/view", "") // host example.com
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/view", nil)
	req.Host = "links.Example.com"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpointCountsRoutes(t *testing.T) {
	d := testDeps(&fakeController{})
	h := NewRouter(d)

	serve(t, h, http.MethodGet, "/api/view", "")
	rec := serve(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `linkshelf_http_requests_total{code="2xx",route="/api/view"} 1`)
}
