package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
	"github.com/MrSnakeDoc/linkshelf/internal/feed"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/view"
)

// Feed renders the collection, newest first, as RSS, Atom or JSON Feed.
// Repeated ?tag= parameters narrow it like the active filters do.
func Feed(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		format, err := feed.ParseFormat(q.Get("format"))
		if err != nil {
			writeError(w, d.Logger, apperror.ValidationFailed("format", err.Error()), nil)
			return
		}

		links := d.Controller.Snapshot().Links
		page := view.VisibleSlice(links, view.Query{
			ActiveFilters: q["tag"],
			Sort:          view.Newest,
			Page:          1,
			PageSize:      max(len(links), 1),
		})

		body, err := feed.Render(feed.Meta{
			Title:       d.FeedTitle,
			Link:        baseURL(r),
			Description: "Links saved on the shelf",
			Now:         d.Now(),
		}, page.Links, format)
		if err != nil {
			d.Logger.Error("failed to render feed", logger.Error(err))
			writeJSON(w, d.Logger, http.StatusInternalServerError, errorResponse{Error: "failed to render feed", Code: "internal"})
			return
		}

		w.Header().Set("Content-Type", format.ContentType())
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(body); err != nil {
			d.Logger.Debug("failed to write response", logger.Error(err))
		}
	}
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
