// Package detect runs one fetch–compare–update–notify pass for a single
// monitored resource.
package detect

import (
	"context"

	"github.com/mkessler/sitepulse/internal/config"
	"github.com/mkessler/sitepulse/internal/diff"
	"github.com/mkessler/sitepulse/internal/fetch"
	"github.com/mkessler/sitepulse/internal/history"
	"github.com/mkessler/sitepulse/internal/notify"
	"github.com/mkessler/sitepulse/internal/report"
	"github.com/mkessler/sitepulse/internal/ui"
)

// SnapshotStore is the persistence contract the detector needs.
type SnapshotStore interface {
	Get(id string) (content string, ok bool, err error)
	Put(id, content string) error
}

// Summarizer produces an optional plain-text description of a change.
type Summarizer interface {
	Summarize(ctx context.Context, url string, segs []diff.Segment) (string, error)
}

// Recorder receives the outcome of every cycle.
type Recorder interface {
	Append(history.Record) error
}

// Detector orchestrates one detection cycle per call. It never lets an
// internal failure escape: every error is logged, recorded, and converted
// into a completed cycle, so one resource cannot abort another's run.
type Detector struct {
	Snapshots  SnapshotStore
	Fetcher    fetch.Fetcher
	Notifier   notify.Notifier // nil disables notifications
	Summarizer Summarizer      // nil disables AI summaries
	History    Recorder        // nil disables the cycle log
	Renderer   report.Renderer
	Subject    string // subject template, {url} expanded per resource
	Logger     *ui.Logger
}

// Check runs one detection cycle for the resource and returns its outcome.
func (d *Detector) Check(ctx context.Context, res config.Resource) history.Record {
	rec := history.Record{Resource: res.ID(), URL: res.URL}

	body, err := d.Fetcher.Fetch(ctx, res.URL)
	if err != nil {
		// Transient outage or bad status: leave the snapshot alone so the
		// next successful fetch compares against real content.
		rec.Outcome = history.OutcomeFetchFailed
		rec.Error = err.Error()
		d.Logger.CycleFailure(rec.Resource, res.URL, rec.Outcome, err)
		return d.record(rec)
	}

	prev, ok, err := d.Snapshots.Get(res.ID())
	if err != nil {
		rec.Outcome = history.OutcomeStorageFailed
		rec.Error = err.Error()
		d.Logger.CycleFailure(rec.Resource, res.URL, rec.Outcome, err)
		return d.record(rec)
	}

	if !ok {
		// First observation establishes the baseline; there is nothing to
		// compare against, so no notification.
		if err := d.Snapshots.Put(res.ID(), body); err != nil {
			rec.Outcome = history.OutcomeStorageFailed
			rec.Error = err.Error()
			d.Logger.CycleFailure(rec.Resource, res.URL, rec.Outcome, err)
			return d.record(rec)
		}
		rec.Outcome = history.OutcomeBaseline
		d.Logger.Info("Baseline snapshot written", "url", res.URL)
		return d.record(rec)
	}

	if prev == body {
		rec.Outcome = history.OutcomeUnchanged
		return d.record(rec)
	}

	granularity := diff.Chars
	if res.CompareLines {
		granularity = diff.Lines
	}
	segs := diff.Compute(prev, body, granularity)
	significant := diff.Significant(segs, res.IgnoreList)
	rec.Significant = significant

	// The new content is the correct baseline for the next comparison
	// whether or not this change was significant. A failed write aborts the
	// cycle here: with the persisted state unknown, notifying could report
	// the same change twice or not at all.
	if err := d.Snapshots.Put(res.ID(), body); err != nil {
		rec.Outcome = history.OutcomeStorageFailed
		rec.Error = err.Error()
		d.Logger.CycleFailure(rec.Resource, res.URL, rec.Outcome, err)
		return d.record(rec)
	}

	if !significant {
		rec.Outcome = history.OutcomeIgnored
		d.Logger.Info("Change ignored", "url", res.URL, "patterns", len(res.IgnoreList))
		return d.record(rec)
	}

	d.Logger.ChangeDetected(res.URL, countChanged(segs))

	if d.Notifier == nil {
		rec.Outcome = history.OutcomeDetected
		return d.record(rec)
	}

	summary := d.summarize(ctx, res.URL, segs)
	bodyHTML := d.Renderer.Render(segs, res.URL, summary)
	subject := notify.SubjectFor(d.Subject, res.URL)

	if err := d.Notifier.Send(ctx, subject, bodyHTML); err != nil {
		// The snapshot write above stands: the operator missed this report,
		// but the next comparison still runs against the right baseline.
		rec.Outcome = history.OutcomeNotifyFailed
		rec.Error = err.Error()
		d.Logger.CycleFailure(rec.Resource, res.URL, rec.Outcome, err)
		return d.record(rec)
	}

	rec.Outcome = history.OutcomeNotified
	return d.record(rec)
}

func (d *Detector) summarize(ctx context.Context, url string, segs []diff.Segment) string {
	if d.Summarizer == nil {
		return ""
	}
	summary, err := d.Summarizer.Summarize(ctx, url, segs)
	if err != nil {
		d.Logger.Warn("AI summary failed, sending report without it", "url", url, "err", err)
		return ""
	}
	return summary
}

func (d *Detector) record(rec history.Record) history.Record {
	if d.History != nil {
		if err := d.History.Append(rec); err != nil {
			d.Logger.Warn("Failed to append history record", "resource", rec.Resource, "err", err)
		}
	}
	return rec
}

func countChanged(segs []diff.Segment) int {
	n := 0
	for _, s := range segs {
		if s.Kind != diff.Unchanged {
			n++
		}
	}
	return n
}
