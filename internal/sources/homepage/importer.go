package homepage

import (
	"context"
	"errors"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

// Creator persists one link. The sync engine implements it.
type Creator interface {
	CreateLink(ctx context.Context, draft domain.Draft) (domain.Link, error)
}

// Failure is one draft the remote service refused.
type Failure struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Created int `json:"created"`
	// Skipped counts drafts whose URL was already in the collection.
	Skipped      int       `json:"skipped"`
	Failed       []Failure `json:"failed,omitempty"`
	LimitReached bool      `json:"limitReached"`
}

// Importer feeds drafts to a Creator one at a time.
type Importer struct {
	creator Creator
	logger  logger.Logger
}

func NewImporter(creator Creator, log logger.Logger) *Importer {
	return &Importer{creator: creator, logger: log}
}

// Import creates every draft whose URL is not in existing, where a link saved
// through the paywall bypass counts as its plain URL. It stops at the
// plan ceiling and at a missing credential; other failures are collected
// and the run goes on.
func (im *Importer) Import(ctx context.Context, drafts []domain.Draft, existing []domain.Link) (ImportResult, error) {
	known := make(map[string]bool, len(existing))
	for _, l := range existing {
		known[domain.WithoutPaywallBypass(l.URL)] = true
	}

	var res ImportResult
	for _, d := range drafts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if known[domain.WithoutPaywallBypass(d.URL)] {
			res.Skipped++
			continue
		}

		link, err := im.creator.CreateLink(ctx, d)
		switch {
		case err == nil:
			res.Created++
			known[domain.WithoutPaywallBypass(link.URL)] = true
			im.logger.Debug("imported link", logger.String("url", d.URL))
		case errors.Is(err, apperror.ErrLimitReached):
			res.LimitReached = true
			im.logger.Warn("link limit reached, stopping import",
				logger.Int("created", res.Created))
			return res, nil
		case errors.Is(err, apperror.ErrNoCredential), errors.Is(err, apperror.ErrAuth):
			return res, err
		default:
			res.Failed = append(res.Failed, Failure{URL: d.URL, Message: apperror.Message(err)})
			im.logger.Warn("failed to import link",
				logger.String("url", d.URL),
				logger.Error(err))
		}
	}
	return res, nil
}
