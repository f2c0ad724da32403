package ingest

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/RailOpsData/adaptive-signal-open-data/feed"
)

// IngestStaticFeeds ingests every static descriptor concurrently and waits
// for all of them. Exactly one outcome is produced per descriptor, however
// the attempt ends.
func (ing *Ingestor) IngestStaticFeeds(ctx context.Context, descriptors []feed.Descriptor) Results {
	return fanOut(ctx, descriptors, func(ctx context.Context, d feed.Descriptor) Outcome {
		return ing.IngestStatic(ctx, d)
	})
}

// IngestRealtimeFeeds ingests the realtime descriptors concurrently. When
// kinds are given, descriptors of other kinds are left out of the cycle
// entirely and get no outcome.
func (ing *Ingestor) IngestRealtimeFeeds(ctx context.Context, descriptors []feed.Descriptor, kinds ...feed.Kind) Results {
	return fanOut(ctx, filterKinds(descriptors, kinds), func(ctx context.Context, d feed.Descriptor) Outcome {
		return ing.IngestRealtime(ctx, d, "")
	})
}

// IngestAll runs the static fan-out to completion, then the realtime one,
// and merges the outcomes. Static failures never block the realtime pass.
func (ing *Ingestor) IngestAll(ctx context.Context, static, realtime []feed.Descriptor, kinds ...feed.Kind) Results {
	results := ing.IngestStaticFeeds(ctx, static)
	return append(results, ing.IngestRealtimeFeeds(ctx, realtime, kinds...)...)
}

// fanOut launches one goroutine per descriptor and joins them all. Each
// task writes only its own result slot. A panic escaping a task is caught
// at the join boundary and recorded as that feed's failure; siblings run
// on untouched.
func fanOut(ctx context.Context, descriptors []feed.Descriptor, task func(context.Context, feed.Descriptor) Outcome) Results {
	results := make(Results, len(descriptors))
	var wg sync.WaitGroup
	for i, d := range descriptors {
		wg.Add(1)
		go func(i int, d feed.Descriptor) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = Outcome{Descriptor: d, Err: fmt.Errorf("ingestion task panicked: %v", r)}
					log.Errorf("ingestion task for %s panicked: %v", d, r)
				}
			}()
			results[i] = task(ctx, d)
		}(i, d)
	}
	wg.Wait()
	return results
}

func filterKinds(descriptors []feed.Descriptor, kinds []feed.Kind) []feed.Descriptor {
	if len(kinds) == 0 {
		return descriptors
	}
	want := make(map[feed.Kind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	selected := make([]feed.Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if want[d.Kind] {
			selected = append(selected, d)
		}
	}
	return selected
}
