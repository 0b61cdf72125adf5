// Package engine wires the sitepulse components together and schedules
// detection cycles.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mkessler/sitepulse/internal/ai"
	"github.com/mkessler/sitepulse/internal/config"
	"github.com/mkessler/sitepulse/internal/detect"
	"github.com/mkessler/sitepulse/internal/fetch"
	"github.com/mkessler/sitepulse/internal/history"
	"github.com/mkessler/sitepulse/internal/notify"
	"github.com/mkessler/sitepulse/internal/report"
	"github.com/mkessler/sitepulse/internal/snapshot"
	"github.com/mkessler/sitepulse/internal/ui"
)

// ErrNothingToWatch is returned by Run when scanning is disabled or no
// resource is enabled, so the caller can tell the operator instead of idling
// silently.
var ErrNothingToWatch = errors.New("scanning disabled or no enabled resources")

// Engine owns one detector and runs it on schedule for every configured
// resource. Cycles for different resources run in parallel; cycles for the
// same resource never overlap.
type Engine struct {
	cfg      *config.Config
	detector *detect.Detector
	hist     *history.Store
	logger   *ui.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

// New creates an Engine with all components wired together.
func New(cfg *config.Config, logger *ui.Logger) (*Engine, error) {
	snapshots, err := snapshot.New(cfg.Scanning.CacheDir)
	if err != nil {
		return nil, err
	}

	hist, err := history.New("")
	if err != nil {
		return nil, err
	}

	var notifier notify.Notifier
	if cfg.Notification.Enabled {
		mailer, err := notify.NewMailer(cfg.Notification, logger)
		if err != nil {
			return nil, err
		}
		notifier = mailer
	}

	var summarizer detect.Summarizer
	if cfg.AI.Enabled {
		summarizer = ai.NewSummarizer(cfg.AI.APIKey, cfg.AI.Model)
	}

	detector := &detect.Detector{
		Snapshots:  snapshots,
		Fetcher:    fetch.NewHTTPFetcher(fetch.DefaultTimeout),
		Notifier:   notifier,
		Summarizer: summarizer,
		History:    hist,
		Renderer:   report.Renderer{},
		Subject:    cfg.Notification.Subject,
		Logger:     logger,
	}

	return &Engine{
		cfg:      cfg,
		detector: detector,
		hist:     hist,
		logger:   logger,
		inflight: make(map[string]bool),
	}, nil
}

// History exposes the cycle log for the dashboard.
func (e *Engine) History() *history.Store {
	return e.hist
}

// Run schedules detection cycles until ctx is cancelled. Each enabled
// resource gets its own runner goroutine with its own ticker; a tick that
// fires while that resource's previous cycle is still in flight is skipped.
// Returns ErrNothingToWatch without starting anything when there is no work.
func (e *Engine) Run(ctx context.Context) error {
	if !e.cfg.Scanning.Enabled {
		return ErrNothingToWatch
	}
	resources := e.cfg.EnabledResources()
	if len(resources) == 0 {
		return ErrNothingToWatch
	}

	var wg sync.WaitGroup
	for _, res := range resources {
		wg.Add(1)
		go func(res config.Resource) {
			defer wg.Done()
			e.runResource(ctx, res)
		}(res)
	}

	wg.Wait()
	return nil
}

func (e *Engine) runResource(ctx context.Context, res config.Resource) {
	interval := e.cfg.Interval(res)
	e.logger.Info("Watching", "url", res.URL, "interval", interval)

	e.checkOne(ctx, res)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.checkOne(ctx, res)
		case <-ctx.Done():
			return
		}
	}
}

// CheckAll runs one detection cycle for every enabled resource concurrently
// and waits for all of them. Resources whose scheduled cycle is currently in
// flight are skipped, never doubled.
func (e *Engine) CheckAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, res := range e.cfg.EnabledResources() {
		wg.Add(1)
		go func(res config.Resource) {
			defer wg.Done()
			e.checkOne(ctx, res)
		}(res)
	}
	wg.Wait()
}

// checkOne runs a single cycle for res under the per-resource execution
// token. If the token is already held the cycle is skipped: two writers on
// the same snapshot key must never race.
func (e *Engine) checkOne(ctx context.Context, res config.Resource) {
	if !e.acquire(res.ID()) {
		e.logger.Warn("Previous cycle still running, skipping", "url", res.URL)
		return
	}
	defer e.release(res.ID())

	e.detector.Check(ctx, res)
}

func (e *Engine) acquire(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight[id] {
		return false
	}
	e.inflight[id] = true
	return true
}

func (e *Engine) release(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, id)
}
