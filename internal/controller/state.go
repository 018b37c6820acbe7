package controller

import (
	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/engine"
	"github.com/MrSnakeDoc/linkshelf/internal/tags"
	"github.com/MrSnakeDoc/linkshelf/internal/view"
)

// State is everything a client needs to draw the list.
type State struct {
	Links      []domain.Link `json:"links"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
	Total      int           `json:"total"`

	// Tags is the filter vocabulary; ActiveFilters the selected subset.
	Tags          []string `json:"tags"`
	ActiveFilters []string `json:"activeFilters"`
	Sort          string   `json:"sort"`

	Error           *ErrorState `json:"error,omitempty"`
	NeedsCredential bool        `json:"needsCredential"`
	Stale           bool        `json:"stale"`
	Requesting      bool        `json:"requesting"`

	Editing []view.Session `json:"editing"`
}

// ErrorState is the single message shown for the last failed command.
type ErrorState struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// State computes the current projection without running a command.
func (c *Controller) State() State {
	snap := c.engine.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()

	page := view.VisibleSlice(snap.Links, view.Query{
		ActiveFilters: c.filters,
		Sort:          c.sort,
		Page:          c.page,
		PageSize:      c.pageSize,
	})
	c.page = page.Page

	st := State{
		Links:           page.Links,
		Page:            page.Page,
		PageSize:        page.PageSize,
		TotalPages:      page.TotalPages,
		Total:           page.Total,
		Tags:            tags.Compute(snap.Links, snap.Vocabulary),
		ActiveFilters:   append([]string{}, c.filters...),
		Sort:            string(c.sort),
		NeedsCredential: snap.NeedsCredential,
		Stale:           snap.Stale,
		Requesting:      c.engine.RequestState() == engine.Requesting,
		Editing:         c.editor.Sessions(),
	}
	if c.lastErr != nil {
		st.Error = &ErrorState{
			Kind:    apperror.Name(c.lastErr),
			Message: apperror.Message(c.lastErr),
		}
	}
	return st
}

// Snapshot exposes the engine state for feeds and metrics.
func (c *Controller) Snapshot() engine.Snapshot {
	return c.engine.Snapshot()
}
