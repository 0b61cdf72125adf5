package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mkessler/sitepulse/internal/config"
	"github.com/mkessler/sitepulse/internal/detect"
	"github.com/mkessler/sitepulse/internal/report"
	"github.com/mkessler/sitepulse/internal/snapshot"
	"github.com/mkessler/sitepulse/internal/ui"
)

// blockingFetcher parks every call until released, so tests can hold a cycle
// in flight.
type blockingFetcher struct {
	entered chan struct{}
	release chan struct{}
	calls   int32
}

func (f *blockingFetcher) Fetch(ctx context.Context, url string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.entered <- struct{}{}
	<-f.release
	return "content", nil
}

func testEngine(t *testing.T, cfg *config.Config, fetcher *blockingFetcher) *Engine {
	t.Helper()
	snapshots, err := snapshot.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := ui.New()
	return &Engine{
		cfg: cfg,
		detector: &detect.Detector{
			Snapshots: snapshots,
			Fetcher:   fetcher,
			Renderer:  report.Renderer{},
			Subject:   "Change detected on {url}",
			Logger:    logger,
		},
		logger:   logger,
		inflight: make(map[string]bool),
	}
}

func testConfig(urls ...string) *config.Config {
	cfg := &config.Config{}
	cfg.Scanning.Enabled = true
	cfg.Scanning.IntervalSeconds = 3600
	cfg.Scanning.CacheDir = "cache"
	for _, u := range urls {
		cfg.Scanning.Resources = append(cfg.Scanning.Resources, config.Resource{URL: u})
	}
	return cfg
}

func TestSingleFlightPerResource(t *testing.T) {
	fetcher := &blockingFetcher{
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	cfg := testConfig("https://example.com")
	e := testEngine(t, cfg, fetcher)
	res := cfg.Scanning.Resources[0]

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.checkOne(context.Background(), res)
	}()

	// First cycle is inside the fetch now.
	<-fetcher.entered

	// A second tick for the same resource must be skipped, not queued.
	done := make(chan struct{})
	go func() {
		e.checkOne(context.Background(), res)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("overlapping cycle neither ran nor was skipped")
	}
	if got := atomic.LoadInt32(&fetcher.calls); got != 1 {
		t.Fatalf("fetch ran %d times while a cycle was in flight, want 1", got)
	}

	close(fetcher.release)
	wg.Wait()

	// Token released: the next cycle runs again (release stays closed, so
	// this one returns immediately).
	e.checkOne(context.Background(), res)
	if got := atomic.LoadInt32(&fetcher.calls); got != 2 {
		t.Fatalf("fetch ran %d times total, want 2", got)
	}
}

func TestDifferentResourcesRunConcurrently(t *testing.T) {
	fetcher := &blockingFetcher{
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	cfg := testConfig("https://a.example", "https://b.example")
	e := testEngine(t, cfg, fetcher)

	var wg sync.WaitGroup
	for _, res := range cfg.Scanning.Resources {
		wg.Add(1)
		go func(res config.Resource) {
			defer wg.Done()
			e.checkOne(context.Background(), res)
		}(res)
	}

	// Both cycles must be in flight at once.
	for i := 0; i < 2; i++ {
		select {
		case <-fetcher.entered:
		case <-time.After(time.Second):
			t.Fatal("cycles for different resources did not run in parallel")
		}
	}

	close(fetcher.release)
	wg.Wait()
}

func TestRunNothingToWatch(t *testing.T) {
	cfg := testConfig()
	cfg.Scanning.Enabled = false
	e := testEngine(t, cfg, &blockingFetcher{})
	if err := e.Run(context.Background()); !errors.Is(err, ErrNothingToWatch) {
		t.Errorf("Run with scanning disabled = %v, want ErrNothingToWatch", err)
	}

	cfg = testConfig() // enabled but empty
	e = testEngine(t, cfg, &blockingFetcher{})
	if err := e.Run(context.Background()); !errors.Is(err, ErrNothingToWatch) {
		t.Errorf("Run with no resources = %v, want ErrNothingToWatch", err)
	}

	off := false
	cfg = testConfig("https://a.example")
	cfg.Scanning.Resources[0].Enabled = &off
	e = testEngine(t, cfg, &blockingFetcher{})
	if err := e.Run(context.Background()); !errors.Is(err, ErrNothingToWatch) {
		t.Errorf("Run with only disabled resources = %v, want ErrNothingToWatch", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	fetcher := &blockingFetcher{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	cfg := testConfig("https://example.com")
	e := testEngine(t, cfg, fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- e.Run(ctx) }()

	// Immediate first check is in flight.
	<-fetcher.entered
	cancel()
	close(fetcher.release)

	select {
	case err := <-runDone:
		if err != nil {
			t.Errorf("Run = %v, want nil after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel; in-flight cycle should finish and exit")
	}
}
