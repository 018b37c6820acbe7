// Package feed renders the link collection as a syndication feed.
package feed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
)

type Format string

const (
	RSS  Format = "rss"
	Atom Format = "atom"
	JSON Format = "json"
)

// ContentType is the media type served for f.
func (f Format) ContentType() string {
	switch f {
	case Atom:
		return "application/atom+xml; charset=utf-8"
	case JSON:
		return "application/feed+json; charset=utf-8"
	}
	return "application/rss+xml; charset=utf-8"
}

// ParseFormat accepts rss, atom and json; empty means rss.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", RSS:
		return RSS, nil
	case Atom, JSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown feed format %q", s)
}

// Meta describes the feed itself.
type Meta struct {
	Title       string
	Link        string
	Description string
	// Now stamps the feed when no link carries a creation time.
	Now time.Time
}

// Render builds one item per link, newest first as given. Tags are appended
// to the item description since not every format has categories.
func Render(meta Meta, links []domain.Link, format Format) ([]byte, error) {
	f := &feeds.Feed{
		Title:       meta.Title,
		Link:        &feeds.Link{Href: meta.Link},
		Description: meta.Description,
		Created:     meta.Now,
	}

	for _, l := range links {
		if !l.CreatedAt.IsZero() && l.CreatedAt.After(f.Updated) {
			f.Updated = l.CreatedAt
		}
		f.Items = append(f.Items, item(l))
	}

	var (
		out string
		err error
	)
	switch format {
	case Atom:
		out, err = f.ToAtom()
	case JSON:
		out, err = f.ToJSON()
	default:
		out, err = f.ToRss()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %s feed: %w", format, err)
	}
	return []byte(out), nil
}

func item(l domain.Link) *feeds.Item {
	var desc strings.Builder
	if l.Description != nil {
		desc.WriteString(*l.Description)
	}
	if len(l.Tags) > 0 {
		if desc.Len() > 0 {
			desc.WriteString(" ")
		}
		desc.WriteString("[" + strings.Join(l.Tags, ", ") + "]")
	}

	id := l.URL
	if l.ID != 0 {
		id = "linkshelf:link:" + strconv.FormatInt(l.ID, 10)
	}

	return &feeds.Item{
		Id:          id,
		Title:       l.Title,
		Link:        &feeds.Link{Href: l.URL},
		Description: desc.String(),
		Created:     l.CreatedAt,
	}
}
