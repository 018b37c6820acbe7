// Package controller turns user commands into engine and view operations
// and renders the resulting state to every registered sink.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/engine"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/scraper"
	"github.com/MrSnakeDoc/linkshelf/internal/tags"
	"github.com/MrSnakeDoc/linkshelf/internal/view"
)

// Engine is the sync engine surface the controller drives.
type Engine interface {
	Reload(ctx context.Context, f engine.Filters) engine.ReloadResult
	CreateLink(ctx context.Context, draft domain.Draft) (domain.Link, error)
	UpdateLink(ctx context.Context, id int64, patch domain.Patch) (domain.Link, error)
	DeleteLink(ctx context.Context, id int64) error
	BulkDelete(ctx context.Context, ids []int64) error
	Snapshot() engine.Snapshot
	Link(id int64) (domain.Link, bool)
	RequestState() engine.RequestState
}

type Credentials interface {
	Set(ctx context.Context, apiKey string) error
	Clear(ctx context.Context) error
}

type Validator interface {
	ValidateCredential(ctx context.Context, apiKey string) (bool, error)
}

// MetadataProvider describes a page being captured.
type MetadataProvider interface {
	Fetch(ctx context.Context, url string) (scraper.Metadata, error)
}

// FeedRefresher rebuilds the remote RSS feed after the collection changed.
type FeedRefresher interface {
	RefreshFeed(ctx context.Context) error
}

const feedRefreshTimeout = 30 * time.Second

// Sink receives the state after every command.
type Sink interface {
	Render(State)
}

type SinkFunc func(State)

func (f SinkFunc) Render(s State) { f(s) }

type Deps struct {
	Engine      Engine
	Editor      *view.Editor
	Credentials Credentials
	Validator   Validator
	Metadata    MetadataProvider
	Feed        FeedRefresher // optional
	Logger      logger.Logger
	PageSize    int
}

type Controller struct {
	engine    Engine
	editor    *view.Editor
	creds     Credentials
	validator Validator
	metadata  MetadataProvider
	feed      FeedRefresher
	logger    logger.Logger

	mu       sync.Mutex
	filters  []string
	sort     view.SortOrder
	page     int
	pageSize int
	lastErr  error

	sinksMu sync.RWMutex
	sinks   []Sink
}

func New(d Deps) *Controller {
	editor := d.Editor
	if editor == nil {
		editor = view.NewEditor()
	}
	size := d.PageSize
	if size <= 0 {
		size = view.DefaultPageSize
	}
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Controller{
		engine:    d.Engine,
		editor:    editor,
		creds:     d.Credentials,
		validator: d.Validator,
		metadata:  d.Metadata,
		feed:      d.Feed,
		logger:    log.With(logger.String("component", "controller")),
		filters:   []string{},
		sort:      view.Newest,
		page:      1,
		pageSize:  size,
	}
}

// Subscribe registers a sink. It is rendered on every later command.
func (c *Controller) Subscribe(s Sink) {
	c.sinksMu.Lock()
	defer c.sinksMu.Unlock()
	c.sinks = append(c.sinks, s)
}

// Dispatch runs cmd, renders the new state to every sink and returns it.
// A failed command leaves its message in State.Error until the next
// command succeeds.
func (c *Controller) Dispatch(ctx context.Context, cmd Command) (State, error) {
	err := c.run(ctx, cmd)

	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()

	if err != nil {
		c.logger.Info("command failed",
			logger.String("command", string(cmd.Type)),
			logger.String("kind", apperror.Name(err)),
			logger.Error(err))
	} else if c.feed != nil && cmd.Type.mutates() {
		go c.refreshFeed(context.WithoutCancel(ctx))
	}

	st := c.State()
	c.render(st)
	return st, err
}

// Reload dispatches a reload command. The scheduler calls it.
func (c *Controller) Reload(ctx context.Context) error {
	_, err := c.Dispatch(ctx, Command{Type: CmdReload})
	return err
}

// refreshFeed is best effort; the remote feed catches up on the next change.
func (c *Controller) refreshFeed(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, feedRefreshTimeout)
	defer cancel()

	if err := c.feed.RefreshFeed(ctx); err != nil {
		c.logger.Debug("feed refresh failed", logger.Error(err))
	}
}

func (c *Controller) render(st State) {
	c.sinksMu.RLock()
	sinks := append([]Sink(nil), c.sinks...)
	c.sinksMu.RUnlock()

	for _, s := range sinks {
		s.Render(st)
	}
}

func (c *Controller) run(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case CmdReload:
		return c.reload(ctx)
	case CmdCreateLink:
		return c.createLink(ctx, cmd)
	case CmdUpdateLink:
		if cmd.Patch == nil {
			return apperror.ValidationFailed("patch", "patch is required")
		}
		_, err := c.engine.UpdateLink(ctx, cmd.ID, *cmd.Patch)
		return err
	case CmdDeleteLink:
		if err := c.engine.DeleteLink(ctx, cmd.ID); err != nil {
			return err
		}
		c.pruneSessions()
		return nil
	case CmdBulkDelete:
		if len(cmd.IDs) == 0 {
			return apperror.ValidationFailed("ids", "select at least one link")
		}
		if err := c.engine.BulkDelete(ctx, cmd.IDs); err != nil {
			return err
		}
		c.pruneSessions()
		return nil
	case CmdSetCredential:
		return c.setCredential(ctx, cmd.APIKey)
	case CmdClearCredential:
		if err := c.creds.Clear(ctx); err != nil {
			return err
		}
		return c.reload(ctx)
	case CmdSetFilter:
		return c.setFilters(cmd.Tags)
	case CmdToggleFilter:
		return c.toggleFilter(cmd.Tag)
	case CmdClearFilter:
		return c.setFilters(nil)
	case CmdSetSort:
		order, err := view.ParseSort(cmd.Sort)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.sort = order
		c.page = 1
		c.mu.Unlock()
		return nil
	case CmdChangePage:
		c.mu.Lock()
		c.page = cmd.Page
		c.mu.Unlock()
		return nil
	case CmdBeginEdit:
		link, ok := c.engine.Link(cmd.ID)
		if !ok {
			return apperror.NotFound("link", cmd.ID)
		}
		_, err := c.editor.Begin(link)
		return err
	case CmdEditDraft:
		if cmd.Draft == nil {
			return apperror.ValidationFailed("draft", "draft is required")
		}
		_, err := c.editor.SetDraft(cmd.ID, *cmd.Draft)
		return err
	case CmdCancelEdit:
		_, err := c.editor.Cancel(cmd.ID)
		return err
	case CmdSaveEdit:
		_, err := c.editor.Save(ctx, cmd.ID, c.engine)
		return err
	case CmdCapture:
		return c.capture(ctx, cmd)
	case "":
		return apperror.ValidationFailed("type", "command type is required")
	}
	return apperror.ValidationFailed("type", fmt.Sprintf("unknown command %q", cmd.Type))
}

func (c *Controller) reload(ctx context.Context) error {
	res := c.engine.Reload(ctx, engine.Filters{})
	if res.Outcome == engine.Superseded {
		return nil
	}
	c.pruneSessions()
	return res.Err
}

func (c *Controller) createLink(ctx context.Context, cmd Command) error {
	if cmd.Draft == nil {
		return apperror.ValidationFailed("draft", "draft is required")
	}
	d := *cmd.Draft
	if cmd.TagInput != "" {
		merged, err := tags.Merge(d.Tags, cmd.TagInput)
		if err != nil {
			return err
		}
		d.Tags = merged
	}
	if _, err := c.engine.CreateLink(ctx, d); err != nil {
		return err
	}
	c.showFirstPage()
	return nil
}

// setCredential stores apiKey only once the server accepted it, then
// reloads with it.
func (c *Controller) setCredential(ctx context.Context, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return apperror.ValidationFailed("apiKey", "please enter an API key")
	}

	valid, err := c.validator.ValidateCredential(ctx, apiKey)
	if err != nil {
		return err
	}
	if !valid {
		return apperror.Auth(0, "invalid API key")
	}

	if err := c.creds.Set(ctx, apiKey); err != nil {
		return err
	}
	return c.reload(ctx)
}

func (c *Controller) setFilters(filters []string) error {
	normalized, err := domain.NormalizeTags(filters)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.filters = normalized
	c.page = 1
	c.mu.Unlock()
	return nil
}

func (c *Controller) toggleFilter(tag string) error {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return apperror.ValidationFailed("tag", "tag is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]string, 0, len(c.filters)+1)
	removed := false
	for _, f := range c.filters {
		if f == tag {
			removed = true
			continue
		}
		next = append(next, f)
	}
	if !removed {
		next = append(next, tag)
	}
	c.filters = next
	c.page = 1
	return nil
}

// capture saves the page at cmd.URL. When the page cannot be fetched the
// link is still saved with the URL as its title.
func (c *Controller) capture(ctx context.Context, cmd Command) error {
	rawURL := strings.TrimSpace(cmd.URL)
	if err := domain.ValidateURL(rawURL); err != nil {
		return err
	}

	meta := scraper.Metadata{URL: rawURL, Title: rawURL}
	if c.metadata != nil {
		fetched, err := c.metadata.Fetch(ctx, rawURL)
		switch {
		case err == nil:
			meta = fetched
		case errors.Is(err, context.Canceled):
			return err
		default:
			c.logger.Warn("page metadata unavailable, saving bare link",
				logger.String("url", rawURL),
				logger.Error(err))
		}
	}

	d := domain.Draft{
		URL:   rawURL,
		Title: meta.Title,
		Notes: optional(cmd.Notes),
	}
	if t := strings.TrimSpace(cmd.Title); t != "" {
		d.Title = t
	}
	if meta.Description != "" {
		desc := meta.Description
		d.Description = &desc
	}
	if cmd.BypassPaywall {
		d.URL = domain.WithPaywallBypass(d.URL)
	}

	parsed, err := tags.ParseInput(cmd.TagInput)
	if err != nil {
		return err
	}
	d.Tags = parsed

	if _, err := c.engine.CreateLink(ctx, d); err != nil {
		return err
	}
	c.showFirstPage()
	return nil
}

func (c *Controller) showFirstPage() {
	c.mu.Lock()
	c.page = 1
	c.mu.Unlock()
}

func (c *Controller) pruneSessions() {
	c.editor.Prune(func(id int64) bool {
		_, ok := c.engine.Link(id)
		return ok
	})
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
