package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

// Reloadable refreshes the collection from the remote service.
type Reloadable interface {
	Reload(ctx context.Context) error
}

// Reloader keeps the collection fresh: once on start, then every interval
// and whenever a manual reload is triggered.
type Reloader struct {
	target        Reloadable
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}
}

// NewReloader creates a reloader. A zero interval disables periodic
// reloads; manual triggers still work.
func NewReloader(target Reloadable, log logger.Logger, interval time.Duration, manualTrigger chan struct{}) *Reloader {
	return &Reloader{
		target:        target,
		logger:        log.With(logger.String("component", "reloader")),
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start runs the first reload synchronously, then reloads in the background
// until Stop or ctx ends. A first reload that fell back to the cache is not
// fatal: the service keeps serving the cached collection.
func (r *Reloader) Start(ctx context.Context) error {
	if err := r.run(ctx, "initial"); err != nil {
		return fmt.Errorf("initial reload failed: %w", err)
	}

	go func() {
		var tick <-chan time.Time
		if r.interval > 0 {
			ticker := time.NewTicker(r.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-tick:
				_ = r.run(ctx, "periodic")
			case <-r.manualTrigger:
				r.logger.Info("manual reload triggered")
				_ = r.run(ctx, "manual")
			case <-r.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader. It is safe to call more than once.
func (r *Reloader) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// run reloads once. Only cancellation is returned; remote failures are
// already absorbed by the cache fallback and just get logged.
func (r *Reloader) run(ctx context.Context, reason string) error {
	start := time.Now()
	err := r.target.Reload(ctx)
	switch {
	case err == nil:
		r.logger.Info("collection reloaded",
			logger.String("reason", reason),
			logger.Duration("took", time.Since(start)))
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, apperror.ErrNoCredential):
		r.logger.Info("reload skipped, no API key configured",
			logger.String("reason", reason))
	default:
		r.logger.Warn("reload failed, serving cached links",
			logger.String("reason", reason),
			logger.String("kind", apperror.Name(err)),
			logger.Error(err))
	}
	return nil
}

// Trigger requests a reload without blocking. It reports false when one is
// already queued.
func Trigger(ch chan<- struct{}) bool {
	select {
	case ch <- struct{}{}:
		return true
	default:
		return false
	}
}
