package engine

import (
	"context"
	"errors"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
	"github.com/MrSnakeDoc/linkshelf/internal/gateway"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

type RequestState int

const (
	Idle RequestState = iota
	Requesting
)

func (s RequestState) String() string {
	if s == Requesting {
		return "requesting"
	}
	return "idle"
}

type Outcome int

const (
	// Applied: the server answer replaced the collection.
	Applied Outcome = iota
	// Superseded: a newer reload was issued; this answer was dropped.
	Superseded
	// Fallback: the collection was loaded from the cache.
	Fallback
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Superseded:
		return "superseded"
	case Fallback:
		return "fallback"
	}
	return "unknown"
}

// Filters are forwarded to the server list call.
type Filters struct {
	Tags   []string
	Search string
}

type ReloadResult struct {
	Outcome Outcome
	// Err is why a fallback happened. Nil for the other outcomes.
	Err             error
	NeedsCredential bool
}

// Reload replaces the collection with the server's view. Any reload still in
// flight is canceled and its answer will be discarded even if it arrives
// later. Failures never escape: they turn into a cache fallback.
func (e *Engine) Reload(ctx context.Context, f Filters) ReloadResult {
	start := time.Now()

	e.mu.Lock()
	if e.cancelPending != nil {
		e.cancelPending()
	}
	e.generation++
	gen := e.generation
	reqCtx, cancel := context.WithCancel(ctx)
	e.cancelPending = cancel
	e.pending = gen
	e.journal = nil
	e.mu.Unlock()
	defer cancel()

	res := e.reload(ctx, reqCtx, gen, f)

	var outcome string
	switch {
	case res.Outcome == Fallback:
		outcome = "fallback_" + outcomeOf(res.Err)
	default:
		outcome = res.Outcome.String()
	}
	e.recorder.ObserveCommand("reload", outcome, time.Since(start))
	return res
}

func (e *Engine) reload(ctx, reqCtx context.Context, gen uint64, f Filters) ReloadResult {
	apiKey, err := e.apiKey(reqCtx)
	if err != nil {
		return e.fallback(ctx, gen, err, errors.Is(err, apperror.ErrNoCredential))
	}

	links, err := e.gw.List(reqCtx, apiKey, gateway.ListParams{Tags: f.Tags, Search: f.Search})
	if err != nil {
		if !e.isCurrent(gen) {
			return ReloadResult{Outcome: Superseded}
		}
		if errors.Is(err, apperror.ErrAuth) {
			e.logger.Warn("credential rejected, clearing it", logger.Error(err))
			if cerr := e.creds.Clear(context.WithoutCancel(ctx)); cerr != nil {
				e.logger.Error("failed to clear rejected credential", logger.Error(cerr))
			}
			return e.fallback(ctx, gen, err, true)
		}
		return e.fallback(ctx, gen, err, false)
	}

	// The vocabulary only enriches the tag list, so its failure is not
	// a reason to discard the links.
	vocab, vErr := e.gw.TagVocabulary(reqCtx, apiKey)
	if vErr != nil && e.isCurrent(gen) {
		e.logger.Debug("tag vocabulary unavailable", logger.Error(vErr))
	}

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return ReloadResult{Outcome: Superseded}
	}
	e.links = e.replay(dedupe(links))
	if vErr == nil {
		e.vocabulary = vocab
	}
	e.stale = false
	e.needsCredential = false
	e.pending = 0
	count := len(e.links)
	e.mu.Unlock()

	e.persist(ctx)
	e.logger.Debug("reload applied",
		logger.Uint64("generation", gen),
		logger.Int("count", count))
	return ReloadResult{Outcome: Applied}
}

// fallback loads the cached collection unless gen was superseded meanwhile.
func (e *Engine) fallback(ctx context.Context, gen uint64, cause error, needsCredential bool) ReloadResult {
	// The caller may have gone away; the fallback still has to land.
	cached, err := e.cache.Read(context.WithoutCancel(ctx))

	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation {
		return ReloadResult{Outcome: Superseded}
	}
	if err != nil {
		e.logger.Warn("failed to read link cache, keeping current links", logger.Error(err))
	} else {
		e.links = e.replay(dedupe(cached))
	}
	e.journal = nil
	e.stale = true
	e.needsCredential = needsCredential
	e.pending = 0

	e.logger.Info("showing cached links",
		logger.Uint64("generation", gen),
		logger.Int("count", len(e.links)),
		logger.Bool("needs_credential", needsCredential),
		logger.Error(cause))
	return ReloadResult{Outcome: Fallback, Err: cause, NeedsCredential: needsCredential}
}

func (e *Engine) isCurrent(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen == e.generation
}
