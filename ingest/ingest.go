package ingest

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/RailOpsData/adaptive-signal-open-data/feed"
	"github.com/RailOpsData/adaptive-signal-open-data/gtfs"
	"github.com/RailOpsData/adaptive-signal-open-data/gtfsrt"
)

// TimestampLayout is the whole-second capture timestamp format used in
// snapshot names and metadata.
const TimestampLayout = "20060102_150405"

// Fetcher retrieves raw feed bytes. Implemented by fetch.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Store persists parsed feed data. A nil return means the snapshot is
// durably written. Called at most once per feed per cycle.
type Store interface {
	StoreRealtime(ctx context.Context, snap *gtfsrt.Snapshot, feedURL string, raw []byte, capturedAt, feedName string) error
	StoreStatic(ctx context.Context, tables *gtfs.TableSet, feedURL string, raw []byte, capturedAt, feedName string) error
}

// Publisher forwards freshly stored realtime records downstream.
// Publishing is best-effort: errors are logged and the ingestion outcome
// stays successful.
type Publisher interface {
	PublishRealtime(ctx context.Context, snap *gtfsrt.Snapshot) error
}

// Outcome is the per-feed result of one ingestion attempt.
type Outcome struct {
	Descriptor feed.Descriptor
	Succeeded  bool
	Err        error
}

// Results holds one Outcome per descriptor submitted to a fan-out, in
// submission order.
type Results []Outcome

// ByURL returns the url -> success view of the results. Keys are unique by
// feed URL.
func (r Results) ByURL() map[string]bool {
	m := make(map[string]bool, len(r))
	for _, o := range r {
		m[o.Descriptor.URL] = o.Succeeded
	}
	return m
}

// Successes counts succeeded outcomes.
func (r Results) Successes() int {
	n := 0
	for _, o := range r {
		if o.Succeeded {
			n++
		}
	}
	return n
}

// AllSucceeded reports whether every outcome succeeded.
func (r Results) AllSucceeded() bool {
	return r.Successes() == len(r)
}

// Ingestor owns the single-feed pipeline. The fetcher is a shared,
// process-lifetime resource; store and publisher are collaborators the
// ingestor never lets fail past its own boundary.
type Ingestor struct {
	fetcher   Fetcher
	store     Store
	publisher Publisher // nil disables publishing
}

// NewIngestor wires the pipeline. publisher may be nil.
func NewIngestor(fetcher Fetcher, store Store, publisher Publisher) *Ingestor {
	return &Ingestor{fetcher: fetcher, store: store, publisher: publisher}
}

// IngestRealtime fetches, parses, annotates and stores one realtime feed.
// captureTime overrides the snapshot capture timestamp when non-empty;
// otherwise the wall clock at capture start is stamped.
func (ing *Ingestor) IngestRealtime(ctx context.Context, d feed.Descriptor, captureTime string) Outcome {
	return ing.guarded(d, func() error { return ing.ingestRealtime(ctx, d, captureTime) })
}

// IngestStatic fetches, parses, annotates and stores one static feed.
func (ing *Ingestor) IngestStatic(ctx context.Context, d feed.Descriptor) Outcome {
	return ing.guarded(d, func() error { return ing.ingestStatic(ctx, d) })
}

// guarded converts run's error, or a recovered panic, into an Outcome and
// logs failures with feed-identifying context.
func (ing *Ingestor) guarded(d feed.Descriptor, run func() error) (out Outcome) {
	out = Outcome{Descriptor: d}
	defer func() {
		if r := recover(); r != nil {
			out.Succeeded = false
			out.Err = fmt.Errorf("panic during ingestion: %v", r)
			feedLog(d).Errorf("ingestion panicked: %v", r)
		}
	}()

	if err := run(); err != nil {
		out.Err = err
		feedLog(d).WithField("error_kind", string(feed.KindOf(err))).Errorf("ingestion failed: %v", err)
		return out
	}
	out.Succeeded = true
	return out
}

func (ing *Ingestor) ingestRealtime(ctx context.Context, d feed.Descriptor, captureTime string) error {
	if !d.Kind.Realtime() {
		return feed.Errf(feed.ErrUnsupportedKind, "feed kind %q is not realtime", d.Kind)
	}

	start := time.Now()
	raw, err := ing.fetcher.Fetch(ctx, d.URL)
	if err != nil {
		return err
	}
	if captureTime == "" {
		captureTime = start.Format(TimestampLayout)
	}

	snap, err := gtfsrt.Parse(raw, d.Kind)
	if err != nil {
		return err
	}
	if snap.RecordCount() == 0 {
		return feed.Errf(feed.ErrEmptyResult, "message carries no %s records", d.Kind)
	}
	snap.FeedURL = d.URL
	snap.FeedName = d.Name

	if err := ing.store.StoreRealtime(ctx, snap, d.URL, raw, captureTime, d.Name); err != nil {
		return feed.Wrap(feed.ErrStoreFailed, err)
	}

	if ing.publisher != nil {
		if err := ing.publisher.PublishRealtime(ctx, snap); err != nil {
			feedLog(d).Warnf("publishing records failed: %v", err)
		}
	}

	entry := feedLog(d).WithFields(log.Fields{
		"records":     snap.RecordCount(),
		"captured_at": captureTime,
	})
	if snap.SkippedEntities > 0 {
		entry = entry.WithField("skipped_entities", snap.SkippedEntities)
	}
	entry.Info("stored realtime snapshot")
	return nil
}

func (ing *Ingestor) ingestStatic(ctx context.Context, d feed.Descriptor) error {
	if d.Kind != feed.Static {
		return feed.Errf(feed.ErrUnsupportedKind, "feed kind %q is not static", d.Kind)
	}

	start := time.Now()
	raw, err := ing.fetcher.Fetch(ctx, d.URL)
	if err != nil {
		return err
	}
	captureTime := start.Format(TimestampLayout)

	tables, err := gtfs.Parse(raw)
	if err != nil {
		return err
	}
	if tables.TableCount() == 0 {
		return feed.Errf(feed.ErrEmptyResult, "archive contains no known GTFS tables")
	}
	tables.FeedURL = d.URL
	tables.FeedName = d.Name

	if err := ing.store.StoreStatic(ctx, tables, d.URL, raw, captureTime, d.Name); err != nil {
		return feed.Wrap(feed.ErrStoreFailed, err)
	}

	feedLog(d).WithFields(log.Fields{
		"tables":      tables.TableCount(),
		"rows":        tables.RowCount(),
		"captured_at": captureTime,
	}).Info("stored static snapshot")
	return nil
}

func feedLog(d feed.Descriptor) *log.Entry {
	return log.WithFields(log.Fields{
		"feed": d.Name,
		"url":  d.URL,
		"kind": string(d.Kind),
	})
}
