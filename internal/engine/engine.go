// Package engine owns the canonical link collection and reconciles it with
// the remote service and the on-device cache.
//
// All state lives on an Engine. Commands read and write the collection under
// a mutex that is never held across network or storage I/O; results that
// come back after the world moved on are checked again before they are
// applied.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/gateway"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

// Gateway is the slice of the remote client the engine needs.
type Gateway interface {
	List(ctx context.Context, apiKey string, params gateway.ListParams) ([]domain.Link, error)
	Create(ctx context.Context, apiKey string, draft domain.Draft) (domain.Link, error)
	Update(ctx context.Context, apiKey string, id int64, patch domain.Patch) (domain.Link, error)
	Delete(ctx context.Context, apiKey string, id int64) error
	BulkDelete(ctx context.Context, apiKey string, ids []int64) error
	TagVocabulary(ctx context.Context, apiKey string) ([]string, error)
}

type Credentials interface {
	Get(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

type Cache interface {
	Read(ctx context.Context) ([]domain.Link, error)
	Write(ctx context.Context, links []domain.Link) error
}

// Recorder observes command outcomes. The metrics package implements it.
type Recorder interface {
	ObserveCommand(command, outcome string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCommand(string, string, time.Duration) {}

type Deps struct {
	Gateway     Gateway
	Credentials Credentials
	Cache       Cache
	Recorder    Recorder
	Logger      logger.Logger
}

type Engine struct {
	gw       Gateway
	creds    Credentials
	cache    Cache
	recorder Recorder
	logger   logger.Logger

	mu              sync.Mutex
	links           []domain.Link
	vocabulary      []string
	stale           bool
	needsCredential bool
	generation      uint64
	pending         uint64 // generation of the outstanding list request, 0 when idle
	cancelPending   context.CancelFunc
	// journal holds mutations confirmed while the pending list request was
	// in flight.
	journal []mutation

	// persistMu serializes cache writes so the last write always carries
	// the latest collection.
	persistMu sync.Mutex
}

func New(d Deps) *Engine {
	rec := d.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		gw:       d.Gateway,
		creds:    d.Credentials,
		cache:    d.Cache,
		recorder: rec,
		logger:   log.With(logger.String("component", "engine")),
		links:    []domain.Link{},
	}
}

// Snapshot is a read-only copy of the engine state.
type Snapshot struct {
	Links []domain.Link
	// Vocabulary is the last tag list reported by the server.
	Vocabulary []string
	// Stale is set when Links came from the cache after a failed reload.
	Stale           bool
	NeedsCredential bool
	Generation      uint64
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		Links:           cloneLinks(e.links),
		Vocabulary:      append([]string(nil), e.vocabulary...),
		Stale:           e.stale,
		NeedsCredential: e.needsCredential,
		Generation:      e.generation,
	}
}

// Link returns a copy of the link with id, if present.
func (e *Engine) Link(id int64) (domain.Link, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i := e.indexOf(id); i >= 0 {
		return e.links[i].Clone(), true
	}
	return domain.Link{}, false
}

// RequestState reports whether a list request is outstanding.
func (e *Engine) RequestState() RequestState {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending != 0 {
		return Requesting
	}
	return Idle
}

// apiKey returns the stored credential or ErrNoCredential.
func (e *Engine) apiKey(ctx context.Context) (string, error) {
	key, err := e.creds.Get(ctx)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", apperror.NoCredential()
	}
	return key, nil
}

// persist mirrors the current collection to the cache. Failures are logged;
// the in-memory collection stays authoritative.
func (e *Engine) persist(ctx context.Context) {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	e.mu.Lock()
	snapshot := cloneLinks(e.links)
	e.mu.Unlock()

	if err := e.cache.Write(context.WithoutCancel(ctx), snapshot); err != nil {
		e.logger.Warn("failed to mirror links to cache",
			logger.Int("count", len(snapshot)),
			logger.Error(err))
	}
}

// observe reports a command outcome and returns err unchanged.
func (e *Engine) observe(command string, start time.Time, err error) error {
	e.recorder.ObserveCommand(command, outcomeOf(err), time.Since(start))
	return err
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return apperror.Name(err)
}

// indexOf must be called with mu held.
func (e *Engine) indexOf(id int64) int {
	if id == 0 {
		return -1
	}
	for i := range e.links {
		if e.links[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneLinks(links []domain.Link) []domain.Link {
	out := make([]domain.Link, len(links))
	for i := range links {
		out[i] = links[i].Clone()
	}
	return out
}

// dedupe keeps the first occurrence of every id. Links without an id are
// kept as is.
func dedupe(links []domain.Link) []domain.Link {
	seen := make(map[int64]struct{}, len(links))
	out := make([]domain.Link, 0, len(links))
	for _, l := range links {
		if l.ID != 0 {
			if _, dup := seen[l.ID]; dup {
				continue
			}
			seen[l.ID] = struct{}{}
		}
		out = append(out, l.Clone())
	}
	return out
}
