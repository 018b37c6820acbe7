package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/sources/homepage"
)

type countingReloader struct {
	calls atomic.Int32
	err   error
	done  chan struct{}
}

func (c *countingReloader) Reload(context.Context) error {
	c.calls.Add(1)
	if c.done != nil {
		select {
		case c.done <- struct{}{}:
		default:
		}
	}
	return c.err
}

func TestReloaderManualTrigger(t *testing.T) {
	target := &countingReloader{done: make(chan struct{}, 1)}
	trigger := make(chan struct{}, 1)

	r := NewReloader(target, logger.Nop(), 0, trigger)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Stop()

	<-target.done // initial reload
	if !Trigger(trigger) {
		t.Fatal("Trigger() = false on an empty channel")
	}

	select {
	case <-target.done:
	case <-time.After(2 * time.Second):
		t.Fatal("manual reload never ran")
	}
	if got := target.calls.Load(); got != 2 {
		t.Errorf("reloads = %d, want 2", got)
	}
}

func TestReloaderRemoteFailureIsNotFatal(t *testing.T) {
	target := &countingReloader{err: apperror.Network("list links", errors.New("refused"))}
	r := NewReloader(target, logger.Nop(), 0, make(chan struct{}, 1))
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	r.Stop()
	r.Stop()
}

func TestReloaderCanceledStartFails(t *testing.T) {
	target := &countingReloader{err: context.Canceled}
	r := NewReloader(target, logger.Nop(), time.Minute, make(chan struct{}, 1))
	if err := r.Start(context.Background()); err == nil {
		t.Fatal("Start() should fail when the initial reload is canceled")
	}
}

func TestReloaderPeriodic(t *testing.T) {
	target := &countingReloader{done: make(chan struct{}, 1)}
	r := NewReloader(target, logger.Nop(), 10*time.Millisecond, make(chan struct{}, 1))
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Stop()

	deadline := time.After(2 * time.Second)
	for target.calls.Load() < 3 {
		select {
		case <-target.done:
		case <-deadline:
			t.Fatalf("only %d reloads after 2s", target.calls.Load())
		}
	}
}

func TestTriggerDoesNotBlock(t *testing.T) {
	ch := make(chan struct{}, 1)
	if !Trigger(ch) {
		t.Fatal("first Trigger() = false")
	}
	if Trigger(ch) {
		t.Fatal("second Trigger() = true with a full channel")
	}
}

type memShelf struct {
	mu    sync.Mutex
	links []domain.Link
}

func (m *memShelf) CreateLink(_ context.Context, d domain.Draft) (domain.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := domain.Link{ID: int64(len(m.links) + 1), URL: d.URL, Title: d.Title, Tags: d.Tags}
	m.links = append(m.links, l)
	return l, nil
}

func (m *memShelf) Links() []domain.Link {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Link(nil), m.links...)
}

func TestImportJobSkipsKnownURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.yaml")
	content := `---
- Media:
    - Jellyfin:
        href: https://jellyfin.example.com
        description: Media server
    - Sonarr:
        href: https://sonarr.example.com
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	shelf := &memShelf{links: []domain.Link{{ID: 1, URL: "https://sonarr.example.com"}}}
	job := NewImportJob(path, homepage.Services, shelf, logger.Nop(), 0)

	res, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Created != 1 || res.Skipped != 1 {
		t.Fatalf("Run() = %+v, want 1 created and 1 skipped", res)
	}

	res, err = job.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if res.Created != 0 || res.Skipped != 2 {
		t.Fatalf("second Run() = %+v, want everything skipped", res)
	}
}

func TestImportJobMissingFile(t *testing.T) {
	job := NewImportJob(filepath.Join(t.TempDir(), "absent.yaml"), homepage.Bookmarks, &memShelf{}, logger.Nop(), 0)
	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("Run() should fail for a missing file")
	}
	job.Start(context.Background())
	job.Stop()
}
