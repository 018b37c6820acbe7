// Package scraper extracts title and description metadata from web pages.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/utils"
)

const (
	// maxPageSize bounds how much HTML is parsed per page.
	maxPageSize = 512 << 10

	DefaultTimeout = 10 * time.Second

	userAgent = "Mozilla/5.0 (compatible; linkshelf/1.0; +https://github.com/MrSnakeDoc/linkshelf)"
)

// Metadata is what a page says about itself.
type Metadata struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Scraper struct {
	client *http.Client
	logger logger.Logger
}

// New builds a scraper. A nil client gets a default one with timeout.
func New(client *http.Client, timeout time.Duration, log logger.Logger) *Scraper {
	if client == nil {
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Scraper{client: client, logger: log}
}

// Fetch downloads rawURL and reads its metadata. The title falls back to
// og:title and then to the URL itself so a capture always has one.
func (s *Scraper) Fetch(ctx context.Context, rawURL string) (Metadata, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := domain.ValidateURL(rawURL); err != nil {
		return Metadata{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return Metadata{}, fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to parse html: %w", err)
	}

	meta := extract(doc)
	meta.URL = rawURL
	if meta.Title == "" {
		meta.Title = rawURL
	}

	s.logger.Debug("page metadata fetched",
		logger.String("url", rawURL),
		logger.Bool("has_description", meta.Description != ""))
	return meta, nil
}

type rawMeta struct {
	title, ogTitle, description, ogDescription string
}

func extract(doc *html.Node) Metadata {
	var m rawMeta
	walk(doc, &m)

	out := Metadata{Title: m.title, Description: m.description}
	if out.Title == "" {
		out.Title = m.ogTitle
	}
	if out.Description == "" {
		out.Description = m.ogDescription
	}
	out.Title = collapse(out.Title)
	out.Description = collapse(out.Description)
	return out
}

func walk(n *html.Node, m *rawMeta) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			if m.title == "" && n.FirstChild != nil {
				m.title = n.FirstChild.Data
			}
		case "meta":
			var name, property, content string
			for _, attr := range n.Attr {
				switch strings.ToLower(attr.Key) {
				case "name":
					name = strings.ToLower(attr.Val)
				case "property":
					property = strings.ToLower(attr.Val)
				case "content":
					content = attr.Val
				}
			}
			switch {
			case name == "description" && m.description == "":
				m.description = content
			case property == "og:title" && m.ogTitle == "":
				m.ogTitle = content
			case property == "og:description" && m.ogDescription == "":
				m.ogDescription = content
			}
		case "svg", "script", "style":
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, m)
	}
}

// collapse trims and folds internal whitespace runs into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
