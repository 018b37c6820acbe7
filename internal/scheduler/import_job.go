package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/sources/homepage"
)

// Shelf is what an import needs from the engine.
type Shelf interface {
	homepage.Creator
	Links() []domain.Link
}

// ImportJob periodically imports a Homepage bookmarks.yaml or services.yaml
// into the shelf. Entries whose URL is already saved are skipped, so links
// removed from the file stay on the shelf.
type ImportJob struct {
	loader   *homepage.Loader
	kind     homepage.Kind
	importer *homepage.Importer
	shelf    Shelf
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewImportJob(
	file string,
	kind homepage.Kind,
	shelf Shelf,
	log logger.Logger,
	interval time.Duration,
) *ImportJob {
	log = log.With(logger.String("component", "homepage_import"), logger.String("file", file))
	return &ImportJob{
		loader:   homepage.NewLoader(file),
		kind:     kind,
		importer: homepage.NewImporter(shelf, log),
		shelf:    shelf,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start imports once, then every interval. Failures are logged and retried
// on the next tick; they never stop the service.
func (j *ImportJob) Start(ctx context.Context) {
	j.runLogged(ctx)

	if j.interval <= 0 {
		return
	}

	ticker := time.NewTicker(j.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.runLogged(ctx)
			case <-j.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (j *ImportJob) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
}

// Run loads the file and imports what the shelf does not hold yet.
func (j *ImportJob) Run(ctx context.Context) (homepage.ImportResult, error) {
	drafts, err := j.loader.Drafts(j.kind)
	if err != nil {
		if errors.Is(err, homepage.ErrNoEntries) {
			return homepage.ImportResult{}, nil
		}
		return homepage.ImportResult{}, fmt.Errorf("failed to load %s: %w", j.kind, err)
	}
	return j.importer.Import(ctx, drafts, j.shelf.Links())
}

func (j *ImportJob) runLogged(ctx context.Context) {
	res, err := j.Run(ctx)
	if err != nil {
		j.logger.Warn("homepage import failed", logger.Error(err))
		return
	}
	if res.Created > 0 || len(res.Failed) > 0 || res.LimitReached {
		j.logger.Info("homepage import finished",
			logger.Int("created", res.Created),
			logger.Int("skipped", res.Skipped),
			logger.Int("failed", len(res.Failed)),
			logger.Bool("limit_reached", res.LimitReached))
	}
}
